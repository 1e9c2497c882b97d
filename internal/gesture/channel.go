package gesture

import "time"

// Phase describes where a gesture channel sits in its firing cycle.
type Phase int

const (
	// PhaseIdle can fire on the next qualifying frame.
	PhaseIdle Phase = iota
	// PhaseLatched has fired and waits for the condition to clear.
	PhaseLatched
	// PhaseCoolingDown has fired and waits for the cooldown to elapse.
	PhaseCoolingDown
)

func (p Phase) String() string {
	switch p {
	case PhaseLatched:
		return "latched"
	case PhaseCoolingDown:
		return "cooling_down"
	default:
		return "idle"
	}
}

// ChannelStatus is a read-only view of one gesture channel.
type ChannelStatus struct {
	Kind      Kind
	Phase     Phase
	Latched   bool
	LastFired time.Time // zero when the channel has never fired
}

// channel holds the per-gesture cooldown and latch. Level-triggered channels
// latch on fire and stay silent until released; edge-triggered ones only cool down.
type channel struct {
	kind           Kind
	levelTriggered bool
	latched        bool
	fired          bool
	lastFired      time.Time
}

func newChannel(kind Kind, levelTriggered bool) *channel {
	return &channel{kind: kind, levelTriggered: levelTriggered}
}

// available reports whether the cooldown since the last fire has elapsed.
// A channel that never fired is always available.
func (c *channel) available(now time.Time, cooldown time.Duration) bool {
	return !c.fired || now.Sub(c.lastFired) >= cooldown
}

// ready reports whether the channel may fire: available and not latched.
func (c *channel) ready(now time.Time, cooldown time.Duration) bool {
	return c.available(now, cooldown) && !c.latched
}

func (c *channel) fire(now time.Time) {
	c.fired = true
	c.lastFired = now
	if c.levelTriggered {
		c.latched = true
	}
}

func (c *channel) release() {
	c.latched = false
}

func (c *channel) reset() {
	c.latched = false
	c.fired = false
	c.lastFired = time.Time{}
}

func (c *channel) status(now time.Time, cooldown time.Duration) ChannelStatus {
	st := ChannelStatus{Kind: c.kind, Latched: c.latched}
	if c.fired {
		st.LastFired = c.lastFired
	}
	switch {
	case c.latched:
		st.Phase = PhaseLatched
	case !c.available(now, cooldown):
		st.Phase = PhaseCoolingDown
	default:
		st.Phase = PhaseIdle
	}
	return st
}
