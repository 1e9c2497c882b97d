package app

import (
	"errors"
	"time"

	"github.com/ayusman/facecomm/internal/capture"
	"github.com/ayusman/facecomm/internal/gesture"
	"github.com/ayusman/facecomm/internal/store"
)

// runPipeline reads one frame per tick until stop is closed.
//
// Each tick:
//  1. Skip when detection is disabled.
//  2. Read a frame (the camera mirrors it when configured).
//  3. Detect the face. A detector failure drops the frame; no face is a
//     valid observation and pauses the face-dependent channels.
//  4. Extract features and classify.
//  5. Record the sample when recording is on, then notify listeners.
func (a *App) runPipeline(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			if _, err := a.step(); err != nil && !errors.Is(err, capture.ErrNoFrame) {
				a.logger.Debug("frame skipped", "error", err)
			}
		}
	}
}

// step processes a single camera frame.
func (a *App) step() (gesture.State, error) {
	frame, err := a.config.Camera.ReadFrame()
	if err != nil {
		return gesture.State{}, err
	}
	face, err := a.config.Detector.Detect(frame)
	frame.Close()
	if err != nil {
		return gesture.State{}, err
	}

	a.recMu.Lock()
	a.frameTime = time.Now()
	f := gesture.Extract(face)
	st, events := a.classifier.Classify(f)
	a.record(store.Sample{CapturedAt: a.frameTime, Features: f})
	a.frames++
	a.recMu.Unlock()

	a.notify(events)
	return st, nil
}

// record queues sm when recording is on. The caller holds recMu.
func (a *App) record(sm store.Sample) {
	if !a.config.Record {
		return
	}
	sm.Seq = a.seq
	a.seq++
	a.pending = append(a.pending, sm)
	if len(a.pending) >= sampleFlushSize {
		a.flush()
	}
}

func (a *App) flush() {
	if len(a.pending) == 0 {
		return
	}
	if err := a.config.Store.Samples().Append(a.sessionID, a.pending); err != nil {
		a.logger.Error("failed to store samples", "count", len(a.pending), "error", err)
	}
	a.pending = a.pending[:0]
}
