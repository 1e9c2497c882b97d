package gesture

import "gonum.org/v1/gonum/stat"

const (
	// BaselineCapacity bounds the neutral eyebrow history.
	BaselineCapacity = 30
	// BaselineMinSamples is the history length at which a baseline is first set.
	BaselineMinSamples = 10
)

// Baseline tracks the user's neutral eyebrow position as the mean of the most
// recent non-raised samples.
type Baseline struct {
	history []float64
	value   float64
	set     bool
}

// NewBaseline returns an empty baseline.
func NewBaseline() *Baseline {
	return &Baseline{history: make([]float64, 0, BaselineCapacity)}
}

// Add records a neutral sample and refreshes the mean once enough samples exist.
func (b *Baseline) Add(pos float64) {
	if len(b.history) == BaselineCapacity {
		copy(b.history, b.history[1:])
		b.history = b.history[:BaselineCapacity-1]
	}
	b.history = append(b.history, pos)

	if len(b.history) >= BaselineMinSamples {
		b.value = stat.Mean(b.history, nil)
		b.set = true
	}
}

// Value returns the baseline and whether it has been established.
func (b *Baseline) Value() (float64, bool) {
	return b.value, b.set
}

// Samples returns the number of neutral samples held.
func (b *Baseline) Samples() int {
	return len(b.history)
}

// Reset forgets the baseline and its history.
func (b *Baseline) Reset() {
	b.history = b.history[:0]
	b.value = 0
	b.set = false
}
