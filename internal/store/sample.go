package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ayusman/facecomm/internal/gesture"
)

// Sample is one recorded classifier input. Features is nil for frames without
// a face. A Reset sample carries no features and marks a classifier reset
// between the samples around it.
type Sample struct {
	Seq        int
	CapturedAt time.Time
	Features   *gesture.Features
	Reset      bool
}

// SampleRepository stores recorded feature samples for replay.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Append stores samples for a session in a single transaction.
func (r *SampleRepository) Append(sessionID string, samples []Sample) error {
	return inTx(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(
			`INSERT INTO feature_samples
			 (session_id, seq, captured_at_ns, left_ear, right_ear, mouth_ar, eyebrow_position, head_tilt, reset)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, s := range samples {
			var l, rt, m, e, h any
			if f := s.Features; f != nil && !s.Reset {
				l, rt, m, e, h = f.LeftEAR, f.RightEAR, f.MouthAR, f.EyebrowPosition, f.HeadTilt.Degrees()
			}
			if _, err := stmt.Exec(sessionID, s.Seq, s.CapturedAt.UnixNano(), l, rt, m, e, h, s.Reset); err != nil {
				return fmt.Errorf("sample %d: %w", s.Seq, err)
			}
		}
		return nil
	})
}

func scanSample(row rowScanner) (Sample, error) {
	var s Sample
	var ns int64
	var l, rt, m, e, h sql.NullFloat64
	if err := row.Scan(&s.Seq, &ns, &l, &rt, &m, &e, &h, &s.Reset); err != nil {
		return s, err
	}
	s.CapturedAt = time.Unix(0, ns)
	if l.Valid {
		s.Features = &gesture.Features{
			LeftEAR:         l.Float64,
			RightEAR:        rt.Float64,
			MouthAR:         m.Float64,
			EyebrowPosition: e.Float64,
			HeadTilt:        gesture.TiltAngle(h.Float64),
		}
	}
	return s, nil
}

// ListBySession returns a session's samples in sequence order.
func (r *SampleRepository) ListBySession(sessionID string) ([]Sample, error) {
	return queryAll(r.db, scanSample,
		`SELECT seq, captured_at_ns, left_ear, right_ear, mouth_ar, eyebrow_position, head_tilt, reset
		 FROM feature_samples
		 WHERE session_id = ?
		 ORDER BY seq`,
		sessionID,
	)
}

// Count returns the number of samples recorded for a session.
func (r *SampleRepository) Count(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM feature_samples WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
