package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ayusman/facecomm/internal/gesture"
)

// Event is a stored gesture event.
type Event struct {
	ID         string
	SessionID  string
	Gesture    gesture.Kind
	OccurredAt time.Time
}

// EventRepository stores emitted gesture events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Record stores a classifier event for a session.
func (r *EventRepository) Record(sessionID string, ev gesture.Event) error {
	_, err := r.db.Exec(
		`INSERT INTO gesture_events (id, session_id, gesture, occurred_at) VALUES (?, ?, ?, ?)`,
		ev.ID, sessionID, ev.Kind.String(), ev.Time,
	)
	return err
}

func scanEvent(row rowScanner) (*Event, error) {
	e := &Event{}
	var kind string
	if err := row.Scan(&e.ID, &e.SessionID, &kind, &e.OccurredAt); err != nil {
		return nil, err
	}
	k, err := gesture.ParseKind(kind)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", e.ID, err)
	}
	e.Gesture = k
	return e, nil
}

// ListBySession returns a session's events in the order they occurred.
func (r *EventRepository) ListBySession(sessionID string) ([]*Event, error) {
	return queryAll(r.db, scanEvent,
		`SELECT id, session_id, gesture, occurred_at
		 FROM gesture_events
		 WHERE session_id = ?
		 ORDER BY occurred_at, rowid`,
		sessionID,
	)
}

// CountByGesture returns how many times each gesture fired in a session.
func (r *EventRepository) CountByGesture(sessionID string) (map[gesture.Kind]int, error) {
	rows, err := r.db.Query(
		`SELECT gesture, COUNT(*) FROM gesture_events WHERE session_id = ? GROUP BY gesture`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[gesture.Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		k, err := gesture.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		counts[k] = n
	}
	return counts, rows.Err()
}
