// Package gesture turns per-frame facial features into discrete gesture events.
//
// A Classifier keeps rolling windows of per-frame booleans, an eyebrow
// baseline, and a cooldown/latch state machine per gesture. Frames are fed in
// order through Classify; each call returns the frame snapshot and the gestures
// that fired on it.
package gesture

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/facecomm/internal/detector"
)

// Clock supplies the current time to a Classifier.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// Option configures a Classifier.
type Option func(*Classifier)

// WithClock sets the time source used for cooldowns and blink intervals.
func WithClock(c Clock) Option {
	return func(cl *Classifier) {
		if c != nil {
			cl.clock = c
		}
	}
}

// WithHandler subscribes h at construction time.
func WithHandler(h Handler) Option {
	return func(cl *Classifier) {
		if h != nil {
			cl.handlers = append(cl.handlers, h)
		}
	}
}

// Classifier is the temporal gesture state machine for one face stream.
// It is safe for concurrent use, but frames must be fed in order.
type Classifier struct {
	mu       sync.Mutex
	th       Thresholds
	clock    Clock
	handlers []Handler

	eyesClosed *Window
	mouthOpen  *Window
	browsUp    *Window
	tiltLeft   *Window
	tiltRight  *Window

	baseline *Baseline
	blinks   blinkSequence
	channels [numKinds]*channel
}

// New creates a Classifier using the given thresholds.
func New(th Thresholds, opts ...Option) *Classifier {
	c := &Classifier{
		th:       th,
		clock:    systemClock{},
		baseline: NewBaseline(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.channels[DoubleBlink] = newChannel(DoubleBlink, false)
	c.channels[LongClose] = newChannel(LongClose, false)
	c.channels[MouthOpen] = newChannel(MouthOpen, true)
	c.channels[EyebrowsRaised] = newChannel(EyebrowsRaised, true)
	c.channels[HeadTiltLeft] = newChannel(HeadTiltLeft, true)
	c.channels[HeadTiltRight] = newChannel(HeadTiltRight, true)

	c.allocWindows()
	return c
}

func (c *Classifier) allocWindows() {
	c.eyesClosed = NewWindow(c.th.LongCloseFrames)
	c.mouthOpen = NewWindow(c.th.MouthConfirmFrames)
	c.browsUp = NewWindow(c.th.EyebrowConfirmFrames)
	c.tiltLeft = NewWindow(c.th.HeadTiltConfirmFrames)
	c.tiltRight = NewWindow(c.th.HeadTiltConfirmFrames)
}

// Subscribe registers h to receive every emitted event. Handlers run on the
// caller's goroutine after the frame has been fully classified, in emission order.
func (c *Classifier) Subscribe(h Handler) {
	if h == nil {
		return
	}
	c.mu.Lock()
	c.handlers = append(c.handlers, h)
	c.mu.Unlock()
}

// Thresholds returns the thresholds currently in effect.
func (c *Classifier) Thresholds() Thresholds {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.th
}

// UpdateThresholds replaces the numeric thresholds immediately. Window
// capacities keep their old sizes until the next Reset.
func (c *Classifier) UpdateThresholds(th Thresholds) {
	c.mu.Lock()
	c.th = th
	c.mu.Unlock()
}

// Reset clears all temporal state and resizes the windows from the current
// thresholds.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.allocWindows()
	c.baseline.Reset()
	c.blinks.reset()
	for _, ch := range c.channels {
		if ch != nil {
			ch.reset()
		}
	}
}

// Channel reports the cooldown and latch state of one gesture.
func (c *Classifier) Channel(k Kind) ChannelStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if k <= None || k >= numKinds {
		return ChannelStatus{Kind: k}
	}
	return c.channels[k].status(c.clock.Now(), c.th.Cooldown)
}

// Baseline returns the current eyebrow baseline and whether one is established.
func (c *Classifier) Baseline() (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseline.Value()
}

// Observe extracts features from lm and classifies them.
func (c *Classifier) Observe(lm *detector.FaceLandmarks) (State, []Event) {
	return c.Classify(Extract(lm))
}

// Classify advances the state machine by one frame. A nil sample means no face
// was found: the neutral snapshot is returned and no temporal state changes.
func (c *Classifier) Classify(f *Features) (State, []Event) {
	c.mu.Lock()
	state, events := c.classify(f)
	handlers := c.handlers
	c.mu.Unlock()

	for _, ev := range events {
		for _, h := range handlers {
			h(ev)
		}
	}
	return state, events
}

func (c *Classifier) classify(f *Features) (State, []Event) {
	if f == nil {
		return neutralState(), nil
	}

	th := c.th
	now := c.clock.Now()
	st := State{
		FaceDetected:    true,
		LeftEAR:         f.LeftEAR,
		RightEAR:        f.RightEAR,
		MouthAR:         f.MouthAR,
		EyebrowPosition: f.EyebrowPosition,
		HeadTiltAngle:   f.HeadTilt,
	}
	var events []Event
	emit := func(k Kind) {
		c.channels[k].fire(now)
		st.Detected = k
		events = append(events, Event{ID: uuid.NewString(), Kind: k, Time: now})
	}

	// Eyes: blink edge, then long close.
	st.EyesClosed = f.AverageEAR() < th.EyeARThreshold
	c.eyesClosed.Push(st.EyesClosed)
	if prev, ok := c.eyesClosed.Last(1); ok && prev && !st.EyesClosed {
		if !c.channels[DoubleBlink].available(now, th.Cooldown) {
			c.blinks.reset()
		} else if c.blinks.register(now, th.DoubleBlinkInterval) {
			emit(DoubleBlink)
		}
	}
	if c.eyesClosed.Saturated() && c.channels[LongClose].available(now, th.Cooldown) {
		emit(LongClose)
	}

	// Mouth.
	st.MouthOpen = f.MouthAR > th.MouthARThreshold
	if !st.MouthOpen {
		c.channels[MouthOpen].release()
	}
	c.mouthOpen.Push(st.MouthOpen)
	if c.mouthOpen.Saturated() && c.channels[MouthOpen].ready(now, th.Cooldown) {
		emit(MouthOpen)
	}

	// Eyebrows, only while the head is near upright.
	if f.HeadTilt.EyebrowEligible(th.HeadTiltThreshold) {
		if base, ok := c.baseline.Value(); ok {
			st.EyebrowsRaised = f.EyebrowPosition-base > th.EyebrowRaiseThreshold
		}
		if !st.EyebrowsRaised {
			c.baseline.Add(f.EyebrowPosition)
			c.channels[EyebrowsRaised].release()
		}
	}
	c.browsUp.Push(st.EyebrowsRaised)
	if c.browsUp.Saturated() && c.channels[EyebrowsRaised].ready(now, th.Cooldown) {
		emit(EyebrowsRaised)
	}

	// Head tilt.
	switch f.HeadTilt.Band(th.HeadTiltDeadzone) {
	case BandCentered:
		st.HeadTiltCenter = true
		c.channels[HeadTiltLeft].release()
		c.channels[HeadTiltRight].release()
	case BandLeft:
		st.HeadTiltLeft = true
	case BandRight:
		st.HeadTiltRight = true
	}
	c.tiltLeft.Push(st.HeadTiltLeft)
	c.tiltRight.Push(st.HeadTiltRight)
	if c.tiltLeft.Saturated() && c.channels[HeadTiltLeft].ready(now, th.Cooldown) {
		emit(HeadTiltLeft)
	}
	if c.tiltRight.Saturated() && c.channels[HeadTiltRight].ready(now, th.Cooldown) {
		emit(HeadTiltRight)
	}

	return st, events
}
