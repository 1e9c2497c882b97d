// Package capture reads webcam frames and decodes frames sent by browser clients.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Defaults applied to zero Options fields.
const (
	DefaultFPS    = 30
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned by ReadFrame before Open or after Close.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrNoFrame is returned when the source produced no usable frame.
	ErrNoFrame = errors.New("no frame available")
)

// Camera is a frame source. Frames returned by ReadFrame belong to the caller.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// Options configures a Device.
type Options struct {
	DeviceID int
	Width    int
	Height   int
	FPS      int
	// Mirror flips frames horizontally, matching a selfie preview.
	Mirror bool
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	return o
}

// Device captures from a local video device through OpenCV.
type Device struct {
	mu   sync.Mutex
	opts Options
	vc   *gocv.VideoCapture
}

var _ Camera = (*Device)(nil)

// NewCamera returns a closed Device for opts.DeviceID.
func NewCamera(opts Options) *Device {
	return &Device{opts: opts.withDefaults()}
}

// Open starts capturing. Opening an open device does nothing.
func (d *Device) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc != nil {
		return nil
	}

	vc, err := gocv.OpenVideoCapture(d.opts.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", d.opts.DeviceID, err)
	}
	for prop, v := range map[gocv.VideoCaptureProperties]int{
		gocv.VideoCaptureFrameWidth:  d.opts.Width,
		gocv.VideoCaptureFrameHeight: d.opts.Height,
		gocv.VideoCaptureFPS:         d.opts.FPS,
	} {
		vc.Set(prop, float64(v))
	}
	d.vc = vc
	return nil
}

// Close releases the device. Closing a closed device returns nil.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil
	}
	err := d.vc.Close()
	d.vc = nil
	return err
}

// ReadFrame grabs the next frame, mirrored when configured.
func (d *Device) ReadFrame() (*gocv.Mat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.vc == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if !d.vc.Read(&mat) || mat.Empty() {
		mat.Close()
		return nil, ErrNoFrame
	}
	if d.opts.Mirror {
		if err := Mirror(&mat); err != nil {
			mat.Close()
			return nil, err
		}
	}
	return &mat, nil
}

// SetFPS changes the capture rate. Non-positive values are ignored.
func (d *Device) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.opts.FPS = fps
	if d.vc != nil {
		d.vc.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (d *Device) FPS() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts.FPS
}

func (d *Device) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.vc != nil
}

// Mirror flips mat horizontally in place.
func Mirror(mat *gocv.Mat) error {
	flipped := gocv.NewMat()
	if err := gocv.Flip(*mat, &flipped, 1); err != nil {
		flipped.Close()
		return fmt.Errorf("mirror frame: %w", err)
	}
	mat.Close()
	*mat = flipped
	return nil
}
