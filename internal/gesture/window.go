package gesture

// Window is a fixed-capacity FIFO of booleans. Pushing onto a full window
// evicts the oldest sample.
type Window struct {
	samples []bool
	size    int
}

// NewWindow creates a window holding at most size samples. A zero-size window
// holds nothing and is always full.
func NewWindow(size int) *Window {
	return &Window{
		samples: make([]bool, 0, size),
		size:    size,
	}
}

// Push appends v, dropping the oldest sample when the window is full.
func (w *Window) Push(v bool) {
	if w.size == 0 {
		return
	}
	if len(w.samples) == w.size {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:w.size-1]
	}
	w.samples = append(w.samples, v)
}

// Len returns the number of samples held.
func (w *Window) Len() int {
	return len(w.samples)
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return w.size
}

// Full reports whether the window holds Cap samples.
func (w *Window) Full() bool {
	return len(w.samples) == w.size
}

// All reports whether every held sample is true. It is vacuously true for an
// empty window.
func (w *Window) All() bool {
	for _, v := range w.samples {
		if !v {
			return false
		}
	}
	return true
}

// Saturated reports Full && All.
func (w *Window) Saturated() bool {
	return w.Full() && w.All()
}

// Last returns the i-th most recent sample, where Last(0) is the newest.
// ok is false when fewer than i+1 samples are held.
func (w *Window) Last(i int) (v bool, ok bool) {
	n := len(w.samples)
	if i < 0 || i >= n {
		return false, false
	}
	return w.samples[n-1-i], true
}

// Clear drops every sample.
func (w *Window) Clear() {
	w.samples = w.samples[:0]
}

// Snapshot returns a copy of the samples, oldest first.
func (w *Window) Snapshot() []bool {
	out := make([]bool, len(w.samples))
	copy(out, w.samples)
	return out
}
