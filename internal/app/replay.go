package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/facecomm/internal/gesture"
	"github.com/ayusman/facecomm/internal/store"
)

// ErrNotRecorded is returned when a session has no stored samples.
var ErrNotRecorded = errors.New("session has no recorded samples")

// ReplayOptions configures Replay.
type ReplayOptions struct {
	// Thresholds override the session's profile. Zero means the thresholds of
	// the profile the session ran with, or the defaults if it is gone.
	Thresholds gesture.Thresholds
	// Persist stores the replay as a new session with its events.
	Persist bool
	Logger  *slog.Logger
}

// ReplayResult compares a replay with the recorded run.
type ReplayResult struct {
	SessionID string // replay session; empty unless persisted
	SourceID  string
	Frames    int
	Resets    int
	Events    []gesture.Event
	Original  []*store.Event
}

// Matches reports whether the replay emitted the same gestures at the same
// times, to the millisecond, as the recorded run.
func (r *ReplayResult) Matches() bool {
	if len(r.Events) != len(r.Original) {
		return false
	}
	for i, ev := range r.Events {
		o := r.Original[i]
		if ev.Kind != o.Gesture || ev.Time.UnixMilli() != o.OccurredAt.UnixMilli() {
			return false
		}
	}
	return true
}

// Replay runs a recorded session's samples through a fresh classifier whose
// clock reads each sample's capture time. Reset markers reset the classifier
// where the live run was reset.
func Replay(s *store.Store, sessionID string, opts ReplayOptions) (*ReplayResult, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	src, err := s.Sessions().GetByID(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	samples, err := s.Samples().ListBySession(sessionID)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotRecorded)
	}
	original, err := s.Events().ListBySession(sessionID)
	if err != nil {
		return nil, err
	}

	th, profileID, err := replayThresholds(s, src, opts.Thresholds)
	if err != nil {
		return nil, err
	}

	res := &ReplayResult{SourceID: sessionID, Original: original}
	if opts.Persist {
		res.SessionID = uuid.New().String()
		if err := s.Sessions().Create(&store.Session{
			ID:        res.SessionID,
			Source:    store.SourceReplay,
			ProfileID: profileID,
		}); err != nil {
			return nil, err
		}
	}

	var now time.Time
	c := gesture.New(th, gesture.WithClock(gesture.ClockFunc(func() time.Time { return now })))
	c.Subscribe(func(ev gesture.Event) {
		res.Events = append(res.Events, ev)
		if !opts.Persist {
			return
		}
		if err := s.Events().Record(res.SessionID, ev); err != nil {
			opts.Logger.Error("failed to record replay event", "gesture", ev.Kind, "error", err)
		}
	})

	for _, sm := range samples {
		if sm.Reset {
			c.Reset()
			res.Resets++
			continue
		}
		now = sm.CapturedAt
		c.Classify(sm.Features)
		res.Frames++
	}

	if opts.Persist {
		if err := s.Sessions().End(res.SessionID, res.Frames, time.Now()); err != nil {
			return nil, err
		}
	}

	opts.Logger.Info("replay finished",
		"source", sessionID, "frames", res.Frames, "resets", res.Resets, "events", len(res.Events), "recorded_events", len(original))
	return res, nil
}

func replayThresholds(s *store.Store, src *store.Session, override gesture.Thresholds) (gesture.Thresholds, string, error) {
	if override != (gesture.Thresholds{}) {
		return override, "", nil
	}
	if src.ProfileID == "" {
		return gesture.DefaultThresholds(), "", nil
	}
	p, err := s.Profiles().GetByID(src.ProfileID)
	if errors.Is(err, store.ErrNotFound) {
		return gesture.DefaultThresholds(), "", nil
	}
	if err != nil {
		return gesture.Thresholds{}, "", err
	}
	return p.Thresholds, p.ID, nil
}
