package server

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/facecomm/internal/capture"
	"github.com/ayusman/facecomm/internal/detector"
	"github.com/ayusman/facecomm/internal/gesture"
	"github.com/ayusman/facecomm/internal/logging"
	"github.com/ayusman/facecomm/internal/store"
)

type wsMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Gesture   *gestureRef     `json:"gesture"`
	Timestamp int64           `json:"timestamp"`
}

type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dialWS(t *testing.T, cfg Config) (*wsClient, string) {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	ts := httptest.NewServer(New(cfg))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &wsClient{t: t, conn: conn}
	hello := c.read()
	require.Equal(t, msgConnected, hello.Type)

	var p connectedPayload
	require.NoError(t, json.Unmarshal(hello.Payload, &p))
	require.NotEmpty(t, p.SessionID)
	return c, p.SessionID
}

func (c *wsClient) send(msgType string, payload any) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}))
}

func (c *wsClient) read() wsMessage {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg wsMessage
	require.NoError(c.t, c.conn.ReadJSON(&msg))
	require.NotZero(c.t, msg.Timestamp, "message %s has no timestamp", msg.Type)
	return msg
}

func (c *wsClient) face(lm *detector.FaceLandmarks) (faceStatePayload, wsMessage) {
	c.t.Helper()
	if lm == nil {
		c.send(msgLandmarks, map[string]any{"points": []any{}})
	} else {
		c.send(msgLandmarks, lm)
	}
	msg := c.read()
	require.Equal(c.t, msgFaceState, msg.Type)
	var st faceStatePayload
	require.NoError(c.t, json.Unmarshal(msg.Payload, &st))
	return st, msg
}

func (c *wsClient) expectError(code string) {
	c.t.Helper()
	msg := c.read()
	require.Equal(c.t, msgError, msg.Type)
	var p errorPayload
	require.NoError(c.t, json.Unmarshal(msg.Payload, &p))
	require.Equal(c.t, code, p.Code)
	require.NotEmpty(c.t, p.Message)
}

func TestGestureSocket_Control(t *testing.T) {
	c, _ := dialWS(t, Config{})

	t.Run("ping", func(t *testing.T) {
		c.send(msgPing, nil)
		require.Equal(t, msgPong, c.read().Type)
	})

	t.Run("reset", func(t *testing.T) {
		c.send(msgReset, nil)
		require.Equal(t, msgResetComplete, c.read().Type)
	})

	t.Run("unknown types are ignored", func(t *testing.T) {
		c.send("hello", nil)
		c.send(msgPing, nil)
		require.Equal(t, msgPong, c.read().Type)
	})

	t.Run("invalid json", func(t *testing.T) {
		require.NoError(t, c.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
		c.expectError(ErrCodeInvalidJSON)
	})

	t.Run("undecodable frame", func(t *testing.T) {
		c.send(msgFrame, map[string]string{"data": "data:image/jpeg;base64,!!!"})
		c.expectError(ErrCodeDecode)
	})

	t.Run("incomplete landmarks", func(t *testing.T) {
		c.send(msgLandmarks, map[string]any{"points": []map[string]float64{{"x": 0.5, "y": 0.5}}})
		c.expectError(ErrCodeInvalidLandmarks)
	})
}

func TestGestureSocket_NoFace(t *testing.T) {
	c, _ := dialWS(t, Config{})

	st, msg := c.face(nil)
	require.False(t, st.FaceDetected)
	require.True(t, st.HeadTiltCenter)
	require.Nil(t, msg.Gesture)
}

func TestGestureSocket_FaceState(t *testing.T) {
	c, _ := dialWS(t, Config{})

	st, _ := c.face(detector.NeutralFaceLandmarks())
	require.True(t, st.FaceDetected)
	require.False(t, st.EyesClosed)
	require.InDelta(t, 0.3, st.LeftEAR, 1e-9)
	require.InDelta(t, 0.125, st.MouthAR, 1e-9)
	require.InDelta(t, 180.0, st.HeadTiltAngle, 1e-9)
	require.True(t, st.HeadTiltCenter)
}

func TestGestureSocket_MouthOpenGesture(t *testing.T) {
	s := newTestStore(t)
	c, sessionID := dialWS(t, Config{Store: s})

	var fired []gesture.Event
	for i := 1; i <= 5; i++ {
		_, msg := c.face(detector.MouthOpenLandmarks())
		if i < 5 {
			require.Nil(t, msg.Gesture, "frame %d", i)
			continue
		}

		require.NotNil(t, msg.Gesture)
		require.Equal(t, gesture.MouthOpen, msg.Gesture.Type)

		ev := c.read()
		require.Equal(t, msgGesture, ev.Type)
		var p gesturePayload
		require.NoError(t, json.Unmarshal(ev.Payload, &p))
		require.Equal(t, gesture.MouthOpen, p.Type)
		require.NotEmpty(t, p.ID)
		fired = append(fired, gesture.Event{ID: p.ID, Kind: p.Type})
	}

	// Held open: latched, no further events.
	_, msg := c.face(detector.MouthOpenLandmarks())
	require.Nil(t, msg.Gesture)

	events, err := s.Events().ListBySession(sessionID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, fired[0].ID, events[0].ID)

	c.conn.Close()
	require.Eventually(t, func() bool {
		sess, err := s.Sessions().GetByID(sessionID)
		return err == nil && sess.EndedAt != nil && sess.Frames == 6
	}, 5*time.Second, 20*time.Millisecond)
}

func TestGestureSocket_OnEvent(t *testing.T) {
	type delivery struct {
		sessionID string
		kind      gesture.Kind
	}
	got := make(chan delivery, 1)
	c, sessionID := dialWS(t, Config{OnEvent: func(id string, ev gesture.Event) {
		got <- delivery{sessionID: id, kind: ev.Kind}
	}})

	for i := 0; i < 5; i++ {
		c.face(detector.MouthOpenLandmarks())
	}

	select {
	case d := <-got:
		require.Equal(t, sessionID, d.sessionID)
		require.Equal(t, gesture.MouthOpen, d.kind)
	case <-time.After(5 * time.Second):
		t.Fatal("OnEvent was not called")
	}
}

func TestGestureSocket_Recording(t *testing.T) {
	s := newTestStore(t)
	c, sessionID := dialWS(t, Config{Store: s, Record: true})

	c.face(detector.NeutralFaceLandmarks())
	c.face(nil)
	c.face(detector.EyesClosedLandmarks())
	c.conn.Close()

	var samples []store.Sample
	require.Eventually(t, func() bool {
		var err error
		samples, err = s.Samples().ListBySession(sessionID)
		return err == nil && len(samples) == 3
	}, 5*time.Second, 20*time.Millisecond)

	require.NotNil(t, samples[0].Features)
	require.Nil(t, samples[1].Features)
	require.InDelta(t, 0.1, samples[2].Features.AverageEAR(), 1e-9)
	require.False(t, samples[2].CapturedAt.Before(samples[0].CapturedAt))
}

func TestGestureSocket_RecordsReset(t *testing.T) {
	s := newTestStore(t)
	c, sessionID := dialWS(t, Config{Store: s, Record: true})

	c.face(detector.EyesClosedLandmarks())
	c.send(msgReset, nil)
	require.Equal(t, msgResetComplete, c.read().Type)
	c.face(detector.EyesClosedLandmarks())
	c.conn.Close()

	var samples []store.Sample
	require.Eventually(t, func() bool {
		var err error
		samples, err = s.Samples().ListBySession(sessionID)
		return err == nil && len(samples) == 3
	}, 5*time.Second, 20*time.Millisecond)

	require.Equal(t, []int{0, 1, 2}, []int{samples[0].Seq, samples[1].Seq, samples[2].Seq})
	require.True(t, samples[1].Reset)
	require.Nil(t, samples[1].Features)
	require.False(t, samples[2].Reset)

	require.Eventually(t, func() bool {
		sess, err := s.Sessions().GetByID(sessionID)
		return err == nil && sess.EndedAt != nil && sess.Frames == 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestGestureSocket_Frames(t *testing.T) {
	mat := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer mat.Close()
	data, err := capture.EncodeFrame(&mat)
	require.NoError(t, err)

	det := detector.NewMockDetector()
	c, _ := dialWS(t, Config{Detector: det})

	t.Run("face", func(t *testing.T) {
		det.SetFace(detector.HeadTiltLandmarks(-160))
		c.send(msgFrame, framePayload{Data: data})
		msg := c.read()
		require.Equal(t, msgFaceState, msg.Type)

		var st faceStatePayload
		require.NoError(t, json.Unmarshal(msg.Payload, &st))
		require.True(t, st.FaceDetected)
		require.InDelta(t, -160.0, st.HeadTiltAngle, 0.05)
		require.False(t, st.HeadTiltCenter)
	})

	t.Run("detector error", func(t *testing.T) {
		det.SetError(errors.New("face mesh crashed"))
		c.send(msgFrame, framePayload{Data: data})
		c.expectError(ErrCodeDetect)
		det.SetError(nil)
	})

	require.Equal(t, 2, det.Calls())
}

func TestGestureSocket_NoDetector(t *testing.T) {
	mat := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
	defer mat.Close()
	data, err := capture.EncodeFrame(&mat)
	require.NoError(t, err)

	c, _ := dialWS(t, Config{})
	c.send(msgFrame, framePayload{Data: data})
	c.expectError(ErrCodeDetect)
}

func TestRound(t *testing.T) {
	tests := []struct {
		v      float64
		places int
		want   float64
	}{
		{0.12345, 3, 0.123},
		{0.12346, 4, 0.1235},
		{-179.96, 1, -180.0},
		{2, 0, 2},
	}
	for _, tt := range tests {
		if got := round(tt.v, tt.places); got != tt.want {
			t.Errorf("round(%v, %d) = %v, want %v", tt.v, tt.places, got, tt.want)
		}
	}
}
