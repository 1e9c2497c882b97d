// Package app runs the local camera pipeline: frames from the camera go
// through the face detector and a classifier, and every emitted gesture is
// stored and dispatched to the plugin actions bound to it.
package app

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/facecomm/internal/capture"
	"github.com/ayusman/facecomm/internal/detector"
	"github.com/ayusman/facecomm/internal/gesture"
	"github.com/ayusman/facecomm/internal/store"
)

// DefaultFPS is the pipeline rate when Config.FPS is unset.
const DefaultFPS = 30

// sampleFlushSize is how many recorded samples are buffered before a write.
const sampleFlushSize = 30

// Config holds configuration options for the application.
type Config struct {
	Camera   capture.Camera
	Detector detector.Detector

	// Store is optional. Without it nothing is persisted and the thresholds
	// below are always used.
	Store *store.Store

	// Dispatcher is optional. When set, every event is handed to it.
	Dispatcher *Dispatcher

	// Thresholds are used when no profile is active. Zero means
	// gesture.DefaultThresholds.
	Thresholds gesture.Thresholds

	FPS    int
	Record bool
	Logger *slog.Logger
}

// App is the main application that orchestrates face detection, gesture
// classification and action dispatch.
type App struct {
	config     Config
	classifier *gesture.Classifier
	sessionID  string
	profileID  string
	logger     *slog.Logger

	mu        sync.RWMutex
	enabled   bool
	stopCh    chan struct{}
	done      chan struct{}
	listeners []gesture.Handler

	// recMu orders classification against Reset so recorded reset markers
	// land between the same frames they did live.
	recMu     sync.Mutex
	frameTime time.Time
	frames    int
	seq       int
	pending   []store.Sample
}

// New creates an App. The classifier thresholds come from the active profile
// when a store is configured.
func New(config Config) (*App, error) {
	if config.Camera == nil {
		return nil, errors.New("app: camera is required")
	}
	if config.Detector == nil {
		return nil, errors.New("app: detector is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	if config.Thresholds == (gesture.Thresholds{}) {
		config.Thresholds = gesture.DefaultThresholds()
	}
	config.Record = config.Record && config.Store != nil

	a := &App{
		config:    config,
		sessionID: uuid.New().String(),
		enabled:   true,
	}
	a.logger = config.Logger.With("session", a.sessionID)

	th := config.Thresholds
	if config.Store != nil {
		var err error
		th, a.profileID, err = config.Store.Profiles().ActiveThresholds(config.Thresholds)
		if err != nil {
			return nil, err
		}
	}

	a.classifier = gesture.New(th, gesture.WithClock(gesture.ClockFunc(func() time.Time {
		return a.frameTime
	})))
	a.classifier.Subscribe(a.handleEvent)
	return a, nil
}

// SetEnabled enables or disables gesture detection. Disabling resets the
// classifier so a half-seen gesture cannot complete after re-enabling.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()

	if changed && !enabled {
		a.Reset()
	}
	a.logger.Info("detection toggled", "enabled", enabled)
}

// IsEnabled returns whether gesture detection is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// OnGesture registers fn to run for every emitted event.
func (a *App) OnGesture(fn gesture.Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Reset clears all classifier state. A recorded session stores the reset so
// replay clears at the same point.
func (a *App) Reset() {
	a.recMu.Lock()
	defer a.recMu.Unlock()
	a.classifier.Reset()
	a.record(store.Sample{CapturedAt: time.Now(), Reset: true})
}

// SessionID returns the id under which this run is stored.
func (a *App) SessionID() string {
	return a.sessionID
}

// Classifier returns the classifier fed by the pipeline.
func (a *App) Classifier() *gesture.Classifier {
	return a.classifier
}

// Start opens the camera, creates the session row and begins the detection
// pipeline. Starting a running app is a no-op.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.config.Camera.Open(); err != nil {
		return err
	}
	a.config.Camera.SetFPS(a.config.FPS)

	if a.config.Store != nil {
		if err := a.config.Store.Sessions().Create(&store.Session{
			ID:        a.sessionID,
			Source:    store.SourceCamera,
			ProfileID: a.profileID,
			Recorded:  a.config.Record,
		}); err != nil {
			a.config.Camera.Close()
			return err
		}
	}

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	go a.runPipeline(a.stopCh, a.done)

	a.logger.Info("detection pipeline started", "fps", a.config.FPS, "profile", a.profileID, "record", a.config.Record)
	return nil
}

// Stop halts the pipeline, closes the session row and releases the camera
// and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done

	a.recMu.Lock()
	a.classifier.Reset()
	frames := a.frames
	if a.config.Store != nil {
		a.flush()
		if err := a.config.Store.Sessions().End(a.sessionID, frames, time.Now()); err != nil {
			a.logger.Error("failed to end session", "error", err)
		}
	}
	a.recMu.Unlock()
	if a.config.Dispatcher != nil {
		a.config.Dispatcher.Wait()
	}

	if err := a.config.Camera.Close(); err != nil {
		a.logger.Warn("error closing camera", "error", err)
	}
	if err := a.config.Detector.Close(); err != nil {
		a.logger.Warn("error closing detector", "error", err)
	}

	a.logger.Info("detection pipeline stopped", "frames", frames)
}

// handleEvent runs on the pipeline goroutine during classification.
func (a *App) handleEvent(ev gesture.Event) {
	a.logger.Info("gesture detected", "gesture", ev.Kind, "id", ev.ID)

	if a.config.Store != nil {
		if err := a.config.Store.Events().Record(a.sessionID, ev); err != nil {
			a.logger.Error("failed to record event", "gesture", ev.Kind, "error", err)
		}
	}
	if a.config.Dispatcher != nil {
		a.config.Dispatcher.Go(a.sessionID, ev)
	}
}

// notify passes events to the OnGesture listeners. Listeners may call Reset.
func (a *App) notify(events []gesture.Event) {
	a.mu.RLock()
	listeners := a.listeners
	a.mu.RUnlock()
	for _, ev := range events {
		for _, fn := range listeners {
			fn(ev)
		}
	}
}
