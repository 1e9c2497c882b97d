package gesture

import (
	"time"
)

const frameInterval = 33 * time.Millisecond

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// frame returns an upright, neutral face sample.
func frame() *Features {
	return &Features{
		LeftEAR:         0.30,
		RightEAR:        0.30,
		MouthAR:         0.10,
		EyebrowPosition: -0.13,
		HeadTilt:        180,
	}
}

func (f *Features) closed() *Features {
	f.LeftEAR, f.RightEAR = 0.10, 0.12
	return f
}

func (f *Features) mouth() *Features {
	f.MouthAR = 0.50
	return f
}

func (f *Features) brows(pos float64) *Features {
	f.EyebrowPosition = pos
	return f
}

func (f *Features) tilt(a float64) *Features {
	f.HeadTilt = TiltAngle(a)
	return f
}

// harness feeds frames at a fixed rate and records every emitted event with its
// 1-based frame number.
type harness struct {
	c     *Classifier
	clock *fakeClock
	n     int
	fired map[Kind][]int
}

func newHarness(th Thresholds) *harness {
	clock := newFakeClock()
	return &harness{
		c:     New(th, WithClock(clock)),
		clock: clock,
		fired: make(map[Kind][]int),
	}
}

func (h *harness) feed(f *Features) (State, []Event) {
	if h.n > 0 {
		h.clock.Advance(frameInterval)
	}
	h.n++
	st, events := h.c.Classify(f)
	for _, ev := range events {
		h.fired[ev.Kind] = append(h.fired[ev.Kind], h.n)
	}
	return st, events
}

func (h *harness) repeat(count int, mk func() *Features) {
	for i := 0; i < count; i++ {
		h.feed(mk())
	}
}

func open() *Features { return frame() }

func shut() *Features { return frame().closed() }
