package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/facecomm/internal/capture"
	"github.com/ayusman/facecomm/internal/detector"
	"github.com/ayusman/facecomm/internal/gesture"
	"github.com/ayusman/facecomm/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Inbound message types.
const (
	msgFrame     = "frame"
	msgLandmarks = "landmarks"
	msgPing      = "ping"
	msgReset     = "reset"
)

// Outbound message types.
const (
	msgConnected     = "connected"
	msgFaceState     = "face_state"
	msgGesture       = "gesture"
	msgPong          = "pong"
	msgResetComplete = "reset_complete"
	msgError         = "error"
)

// Error codes sent in error payloads.
const (
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeDecode           = "DECODE_ERROR"
	ErrCodeDetect           = "DETECT_ERROR"
	ErrCodeInvalidLandmarks = "INVALID_LANDMARKS"
)

// sampleFlushSize is how many recorded samples are buffered before a write.
const sampleFlushSize = 30

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type framePayload struct {
	Data string `json:"data"`
}

type outbound struct {
	Type      string      `json:"type"`
	Payload   any         `json:"payload,omitempty"`
	Gesture   *gestureRef `json:"gesture,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type gestureRef struct {
	Type gesture.Kind `json:"type"`
	Name string       `json:"name"`
}

type gesturePayload struct {
	ID   string       `json:"id"`
	Type gesture.Kind `json:"type"`
	Name string       `json:"name"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type connectedPayload struct {
	SessionID string `json:"session_id"`
	ProfileID string `json:"profile_id,omitempty"`
	Message   string `json:"message"`
}

// faceStatePayload mirrors gesture.State with display rounding applied.
type faceStatePayload struct {
	FaceDetected    bool    `json:"face_detected"`
	EyesClosed      bool    `json:"eyes_closed"`
	LeftEAR         float64 `json:"left_eye_ar"`
	RightEAR        float64 `json:"right_eye_ar"`
	MouthOpen       bool    `json:"mouth_open"`
	MouthAR         float64 `json:"mouth_ar"`
	EyebrowsRaised  bool    `json:"eyebrows_raised"`
	EyebrowPosition float64 `json:"eyebrow_position"`
	HeadTiltAngle   float64 `json:"head_tilt_angle"`
	HeadTiltLeft    bool    `json:"head_tilt_left"`
	HeadTiltRight   bool    `json:"head_tilt_right"`
	HeadTiltCenter  bool    `json:"head_tilt_center"`
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func toFaceState(st gesture.State) faceStatePayload {
	return faceStatePayload{
		FaceDetected:    st.FaceDetected,
		EyesClosed:      st.EyesClosed,
		LeftEAR:         round(st.LeftEAR, 3),
		RightEAR:        round(st.RightEAR, 3),
		MouthOpen:       st.MouthOpen,
		MouthAR:         round(st.MouthAR, 3),
		EyebrowsRaised:  st.EyebrowsRaised,
		EyebrowPosition: round(st.EyebrowPosition, 4),
		HeadTiltAngle:   round(st.HeadTiltAngle.Degrees(), 1),
		HeadTiltLeft:    st.HeadTiltLeft,
		HeadTiltRight:   st.HeadTiltRight,
		HeadTiltCenter:  st.HeadTiltCenter,
	}
}

// GestureSocket serves /ws. Each connection is one session with its own
// classifier, built from the thresholds active when it connects.
type GestureSocket struct {
	detector   detector.Detector
	store      *store.Store
	thresholds gesture.Thresholds
	record     bool
	onEvent    func(sessionID string, ev gesture.Event)
	logger     *slog.Logger
}

// ServeHTTP upgrades the request and runs the session until the client leaves.
func (h *GestureSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s, err := h.open(conn)
	if err != nil {
		h.logger.Error("failed to open session", "error", err)
		return
	}
	defer s.close()

	s.send(outbound{Type: msgConnected, Payload: connectedPayload{
		SessionID: s.id,
		ProfileID: s.profileID,
		Message:   "connected to gesture detection server",
	}})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		s.handle(data)
	}
}

// wsSession is the state of one /ws connection.
type wsSession struct {
	id         string
	profileID  string
	conn       *websocket.Conn
	classifier *gesture.Classifier
	detector   detector.Detector
	store      *store.Store
	record     bool
	logger     *slog.Logger

	frameTime time.Time
	frames    int
	seq       int // next sample seq; reset markers take one too
	pending   []store.Sample
}

func (h *GestureSocket) open(conn *websocket.Conn) (*wsSession, error) {
	s := &wsSession{
		id:       uuid.New().String(),
		conn:     conn,
		detector: h.detector,
		store:    h.store,
		record:   h.record && h.store != nil,
	}
	s.logger = h.logger.With("session", s.id)

	th := h.thresholds
	if h.store != nil {
		var err error
		th, s.profileID, err = h.store.Profiles().ActiveThresholds(h.thresholds)
		if err != nil {
			return nil, err
		}
		if err := h.store.Sessions().Create(&store.Session{
			ID:        s.id,
			Source:    store.SourceWebSocket,
			ProfileID: s.profileID,
			Recorded:  s.record,
		}); err != nil {
			return nil, err
		}
	}

	// The classifier reads the same timestamp that is recorded with each
	// sample, so a replay sees identical intervals.
	s.classifier = gesture.New(th, gesture.WithClock(gesture.ClockFunc(func() time.Time {
		return s.frameTime
	})))
	if h.store != nil {
		s.classifier.Subscribe(s.persist)
	}
	if h.onEvent != nil {
		s.classifier.Subscribe(func(ev gesture.Event) { h.onEvent(s.id, ev) })
	}

	s.logger.Info("session opened", "profile", s.profileID, "record", s.record)
	return s, nil
}

func (s *wsSession) close() {
	s.classifier.Reset()
	if s.store == nil {
		return
	}
	s.flush()
	if err := s.store.Sessions().End(s.id, s.frames, time.Now()); err != nil {
		s.logger.Error("failed to end session", "error", err)
	}
	s.logger.Info("session closed", "frames", s.frames)
}

func (s *wsSession) send(msg outbound) {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Debug("websocket write failed", "type", msg.Type, "error", err)
	}
}

func (s *wsSession) sendError(code string, err error) {
	s.send(outbound{Type: msgError, Payload: errorPayload{Code: code, Message: err.Error()}})
}

func (s *wsSession) handle(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(ErrCodeInvalidJSON, errors.New("invalid JSON message"))
		return
	}

	switch msg.Type {
	case msgFrame:
		s.handleFrame(msg.Payload)
	case msgLandmarks:
		s.handleLandmarks(msg.Payload)
	case msgPing:
		s.send(outbound{Type: msgPong})
	case msgReset:
		s.classifier.Reset()
		// Replay must reset at the same point to reproduce the live events.
		s.appendSample(store.Sample{CapturedAt: time.Now(), Reset: true})
		s.send(outbound{Type: msgResetComplete})
	default:
		s.logger.Debug("ignoring message", "type", msg.Type)
	}
}

func (s *wsSession) handleFrame(raw json.RawMessage) {
	var p framePayload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			s.sendError(ErrCodeDecode, err)
			return
		}
	}

	mat, err := capture.DecodeFrame(p.Data)
	if err != nil {
		s.sendError(ErrCodeDecode, err)
		return
	}
	defer mat.Close()

	if s.detector == nil {
		s.sendError(ErrCodeDetect, errors.New("no face detector configured"))
		return
	}
	lm, err := s.detector.Detect(mat)
	if err != nil {
		s.sendError(ErrCodeDetect, err)
		return
	}
	s.classify(lm)
}

// handleLandmarks accepts landmarks detected client-side. An empty point list
// means no face.
func (s *wsSession) handleLandmarks(raw json.RawMessage) {
	var lm detector.FaceLandmarks
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &lm); err != nil {
			s.sendError(ErrCodeInvalidLandmarks, err)
			return
		}
	}
	if len(lm.Points) == 0 {
		s.classify(nil)
		return
	}
	if !lm.Complete() {
		s.sendError(ErrCodeInvalidLandmarks, errors.New("incomplete landmark set"))
		return
	}
	s.classify(&lm)
}

func (s *wsSession) classify(lm *detector.FaceLandmarks) {
	s.frameTime = time.Now()
	f := gesture.Extract(lm)
	st, events := s.classifier.Classify(f)

	s.appendSample(store.Sample{CapturedAt: s.frameTime, Features: f})
	s.frames++

	ts := s.frameTime.UnixMilli()
	state := outbound{Type: msgFaceState, Payload: toFaceState(st), Timestamp: ts}
	if st.Detected != gesture.None {
		state.Gesture = &gestureRef{Type: st.Detected, Name: st.Detected.Label()}
	}
	s.send(state)

	for _, ev := range events {
		s.send(outbound{
			Type:      msgGesture,
			Payload:   gesturePayload{ID: ev.ID, Type: ev.Kind, Name: ev.Kind.Label()},
			Timestamp: ev.Time.UnixMilli(),
		})
	}
}

// persist stores one emitted event.
func (s *wsSession) persist(ev gesture.Event) {
	if err := s.store.Events().Record(s.id, ev); err != nil {
		s.logger.Error("failed to record event", "gesture", ev.Kind, "error", err)
	}
}

// appendSample queues sm for storage when the session is recorded.
func (s *wsSession) appendSample(sm store.Sample) {
	if !s.record {
		return
	}
	sm.Seq = s.seq
	s.seq++
	s.pending = append(s.pending, sm)
	if len(s.pending) >= sampleFlushSize {
		s.flush()
	}
}

func (s *wsSession) flush() {
	if len(s.pending) == 0 {
		return
	}
	if err := s.store.Samples().Append(s.id, s.pending); err != nil {
		s.logger.Error("failed to store samples", "count", len(s.pending), "error", err)
	}
	s.pending = s.pending[:0]
}
