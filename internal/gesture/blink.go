package gesture

import "time"

// blinkSequence counts completed blinks toward a double blink.
type blinkSequence struct {
	count int
	last  time.Time
}

// register records a blink completed at now and reports whether it closes a
// double blink. A blink arriving after interval starts a new sequence.
func (b *blinkSequence) register(now time.Time, interval time.Duration) bool {
	if b.count >= 1 && now.Sub(b.last) < interval {
		b.count++
		b.last = now
		if b.count >= 2 {
			b.reset()
			return true
		}
		return false
	}
	b.count = 1
	b.last = now
	return false
}

func (b *blinkSequence) reset() {
	b.count = 0
	b.last = time.Time{}
}
