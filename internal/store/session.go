package store

import (
	"database/sql"
	"time"
)

// Session sources.
const (
	SourceWebSocket = "websocket"
	SourceCamera    = "camera"
	SourceReplay    = "replay"
)

// Session is one continuous face stream fed through a classifier.
type Session struct {
	ID        string
	Source    string
	ProfileID string // empty when the defaults were used
	Recorded  bool
	Frames    int
	StartedAt time.Time
	EndedAt   *time.Time
}

// SessionRepository provides operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

const sessionColumns = `id, source, profile_id, recorded, frames, started_at, ended_at`

func scanSession(row rowScanner) (*Session, error) {
	s := &Session{}
	var profileID sql.NullString
	var recorded int
	var ended sql.NullTime

	if err := row.Scan(&s.ID, &s.Source, &profileID, &recorded, &s.Frames, &s.StartedAt, &ended); err != nil {
		return nil, err
	}
	s.ProfileID = profileID.String
	s.Recorded = recorded != 0
	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}
	return s, nil
}

// Create inserts a new session. StartedAt defaults to now.
func (r *SessionRepository) Create(s *Session) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}

	var profileID any
	if s.ProfileID != "" {
		profileID = s.ProfileID
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, source, profile_id, recorded, frames, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.Source, profileID, s.Recorded, s.Frames, s.StartedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	return queryOne(r.db, scanSession, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
}

// List returns the most recent sessions first. A limit <= 0 returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions ORDER BY started_at DESC`
	if limit > 0 {
		return queryAll(r.db, scanSession, q+` LIMIT ?`, limit)
	}
	return queryAll(r.db, scanSession, q)
}

// End records the frame count and end time of a session.
func (r *SessionRepository) End(id string, frames int, at time.Time) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET frames = ?, ended_at = ? WHERE id = ?`,
		frames, at, id,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Delete removes a session together with its events and samples.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}
