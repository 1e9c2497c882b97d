package server

import (
	"bytes"
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"

	"github.com/ayusman/facecomm/internal/capture"
	"github.com/ayusman/facecomm/internal/detector"
	"github.com/ayusman/facecomm/internal/gesture"
)

// previewInterval paces the MJPEG preview and the landmark broadcast (~15 FPS).
const previewInterval = 66 * time.Millisecond

// StreamHandler serves the camera as an MJPEG preview.
type StreamHandler struct {
	camera capture.Camera
}

// NewStreamHandler creates a new StreamHandler with the given camera.
func NewStreamHandler(camera capture.Camera) *StreamHandler {
	return &StreamHandler{camera: camera}
}

// ServeHTTP writes one multipart JPEG part per tick until the client leaves.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mw := multipart.NewWriter(w)
	mw.SetBoundary("frame")
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)

	ticker := time.NewTicker(previewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		jpeg, err := h.snapshot()
		if err != nil {
			continue
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":   {"image/jpeg"},
			"Content-Length": {strconv.Itoa(len(jpeg))},
		})
		if err != nil {
			return
		}
		if _, err := part.Write(jpeg); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func (h *StreamHandler) snapshot() ([]byte, error) {
	frame, err := h.camera.ReadFrame()
	if err != nil {
		return nil, err
	}
	defer frame.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	return bytes.Clone(buf.GetBytes()), nil
}

// landmarkFrame is one broadcast message on /api/landmarks.
type landmarkFrame struct {
	Face      *detector.FaceLandmarks `json:"face"`
	Features  *gesture.Features       `json:"features"`
	Timestamp int64                   `json:"timestamp"`
}

// LandmarksHandler broadcasts the camera's face landmarks and features to
// every connected WebSocket client. It does not classify.
type LandmarksHandler struct {
	detector detector.Detector
	camera   capture.Camera
	logger   *slog.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
}

// NewLandmarksHandler creates a LandmarksHandler. Call Run to start broadcasting.
func NewLandmarksHandler(d detector.Detector, c capture.Camera, logger *slog.Logger) *LandmarksHandler {
	return &LandmarksHandler{
		detector: d,
		camera:   c,
		logger:   logger,
		clients:  make(map[*websocket.Conn]struct{}),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *LandmarksHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	defer h.drop(conn)

	// Clients never send anything; reading only notices the disconnect.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *LandmarksHandler) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// Clients returns the number of connected clients.
func (h *LandmarksHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run broadcasts until ctx is done. Frames are only read while someone is listening.
func (h *LandmarksHandler) Run(ctx context.Context) {
	ticker := time.NewTicker(previewInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if h.Clients() == 0 {
			continue
		}

		msg, ok := h.sample()
		if !ok {
			continue
		}

		h.broadcast(msg)
	}
}

// broadcast is only called from Run, so each connection has a single writer.
func (h *LandmarksHandler) broadcast(msg landmarkFrame) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(msg); err != nil {
			h.logger.Debug("landmark client dropped", "error", err)
			h.drop(conn)
			conn.Close()
		}
	}
}

func (h *LandmarksHandler) sample() (landmarkFrame, bool) {
	frame, err := h.camera.ReadFrame()
	if err != nil {
		return landmarkFrame{}, false
	}
	defer frame.Close()

	face, err := h.detector.Detect(frame)
	if err != nil {
		h.logger.Debug("landmark detection failed", "error", err)
		return landmarkFrame{}, false
	}

	return landmarkFrame{
		Face:      face,
		Features:  gesture.Extract(face),
		Timestamp: time.Now().UnixMilli(),
	}, true
}
