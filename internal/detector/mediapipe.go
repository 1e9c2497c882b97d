package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// ServiceScript is the face mesh helper launched by MediaPipeDetector.
const ServiceScript = "face_mesh_service.py"

// IdleShutdown is how long the helper process may sit unused before it is stopped.
const IdleShutdown = 30 * time.Second

// ErrServiceNotFound is returned when the face mesh helper script cannot be located.
var ErrServiceNotFound = errors.New(ServiceScript + " not found")

// MediaPipeDetector implements Detector using a Python MediaPipe Face Mesh
// subprocess. The process starts on the first Detect and stops after
// IdleShutdown without frames.
type MediaPipeDetector struct {
	config Config
	script string

	mu   sync.Mutex
	proc *meshProcess
	idle *time.Timer
}

// NewMediaPipeDetector locates the helper script. Nothing is started yet.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := locate(filepath.Join("scripts", ServiceScript))
	if script == "" {
		return nil, ErrServiceNotFound
	}
	return &MediaPipeDetector{config: config, script: script}, nil
}

// Detect sends frame to the helper and returns the first face, or nil.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) (*FaceLandmarks, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.proc == nil {
		if d.proc, err = startMesh(d.config, d.script); err != nil {
			return nil, err
		}
	}

	line, err := d.proc.roundTrip(buf.GetBytes())
	if err != nil {
		// A broken pipe leaves the helper unusable; the next frame restarts it.
		d.stop()
		return nil, err
	}
	d.armIdle(d.proc)

	return parseResponse(line)
}

// Close stops the helper process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop()
}

func (d *MediaPipeDetector) stop() error {
	if d.idle != nil {
		d.idle.Stop()
		d.idle = nil
	}
	if d.proc == nil {
		return nil
	}
	err := d.proc.close()
	d.proc = nil
	return err
}

// armIdle schedules p to stop unless another frame arrives first.
func (d *MediaPipeDetector) armIdle(p *meshProcess) {
	if d.idle != nil {
		d.idle.Stop()
	}
	d.idle = time.AfterFunc(IdleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.proc == p {
			d.stop()
		}
	})
}

// meshProcess is one running helper. Frames go in as a 4-byte big-endian
// length followed by JPEG bytes; each frame is answered by one JSON line.
type meshProcess struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out *bufio.Reader
}

func startMesh(cfg Config, script string) (*meshProcess, error) {
	python := locate(filepath.Join("venv", "bin", "python"))
	if python == "" {
		python = "python3"
	}

	cmd := exec.Command(python, script,
		"--max-faces", strconv.Itoa(cfg.MaxFaces),
		"--refine-landmarks", strconv.FormatBool(cfg.RefineLandmarks),
		"--min-detection-confidence", strconv.FormatFloat(cfg.MinConfidence, 'f', -1, 64),
		"--min-tracking-confidence", strconv.FormatFloat(cfg.MinTrackingConf, 'f', -1, 64),
	)
	cmd.Stderr = os.Stderr

	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start face mesh service: %w", err)
	}
	return &meshProcess{cmd: cmd, in: in, out: bufio.NewReader(out)}, nil
}

func (p *meshProcess) roundTrip(jpeg []byte) ([]byte, error) {
	msg := binary.BigEndian.AppendUint32(make([]byte, 0, 4+len(jpeg)), uint32(len(jpeg)))
	if _, err := p.in.Write(append(msg, jpeg...)); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}
	line, err := p.out.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return line, nil
}

// close ends the helper by closing its stdin and waits for it to exit.
func (p *meshProcess) close() error {
	p.in.Close()
	return p.cmd.Wait()
}

// locate returns the absolute path of rel under the working directory, its
// parent, the executable's directory or ~/.facecomm, whichever exists first.
func locate(rel string) string {
	roots := []string{".", ".."}
	if exe, err := os.Executable(); err == nil {
		roots = append(roots, filepath.Dir(exe))
	}
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, filepath.Join(home, ".facecomm"))
	}

	for _, root := range roots {
		path := filepath.Join(root, rel)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}

// serviceResponse is one line emitted by the face mesh helper.
type serviceResponse struct {
	Faces []struct {
		Points [][2]float64 `json:"points"`
		Score  float64      `json:"score"`
	} `json:"faces"`
	Error string `json:"error,omitempty"`
}

// parseResponse decodes a helper line into the first face, or nil when none was found.
func parseResponse(line []byte) (*FaceLandmarks, error) {
	var resp serviceResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("face mesh service: %s", resp.Error)
	}
	if len(resp.Faces) == 0 {
		return nil, nil
	}

	f := resp.Faces[0]
	lm := &FaceLandmarks{
		Points: make([]Point, len(f.Points)),
		Score:  f.Score,
	}
	for i, p := range f.Points {
		lm.Points[i] = Point{X: p[0], Y: p[1]}
	}

	if !lm.Complete() {
		return nil, fmt.Errorf("face mesh service returned %d landmarks, want at least %d", len(lm.Points), NumLandmarks)
	}
	return lm, nil
}
