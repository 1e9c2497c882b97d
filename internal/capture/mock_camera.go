package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera serves a fixed list of frames for tests.
type MockCamera struct {
	mu     sync.Mutex
	frames []*gocv.Mat
	loop   bool
	fps    int
	open   bool
	next   int
	served int
}

var _ Camera = (*MockCamera)(nil)

// NewMockCamera returns a camera that serves frames in order and starts over
// at the end when loop is set.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{frames: frames, loop: loop, fps: DefaultFPS}
}

// Open rewinds to the first frame.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	c.open, c.next = true, 0
	c.mu.Unlock()
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	c.open = false
	c.mu.Unlock()
	return nil
}

// ReadFrame returns a clone of the next frame.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case !c.open:
		return nil, ErrCameraNotOpen
	case len(c.frames) == 0:
		return nil, ErrNoFrame
	case c.next == len(c.frames):
		if !c.loop {
			return nil, ErrNoFrame
		}
		c.next = 0
	}

	mat := c.frames[c.next].Clone()
	c.next++
	c.served++
	return &mat, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps > 0 {
		c.mu.Lock()
		c.fps = fps
		c.mu.Unlock()
	}
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// Reads returns how many frames have been served since construction.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.served
}
