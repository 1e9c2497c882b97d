package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/facecomm/internal/config"
	"github.com/ayusman/facecomm/internal/gesture"
)

// activeProfileKey is the settings key holding the active profile ID.
const activeProfileKey = "active_profile"

// Profile is a named set of classifier thresholds.
type Profile struct {
	ID         string
	Name       string
	Thresholds gesture.Thresholds
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProfileRepository provides CRUD operations for threshold profiles.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

func encodeThresholds(th gesture.Thresholds) (string, error) {
	data, err := json.Marshal(config.FromGesture(th))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeThresholds(data string) (gesture.Thresholds, error) {
	t := config.FromGesture(gesture.DefaultThresholds())
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return gesture.Thresholds{}, fmt.Errorf("decode thresholds: %w", err)
	}
	return t.Gesture(), nil
}

// Create inserts a new profile into the database.
func (r *ProfileRepository) Create(p *Profile) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	th, err := encodeThresholds(p.Thresholds)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(
		`INSERT INTO profiles (id, name, thresholds, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, th, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

const profileColumns = `id, name, thresholds, created_at, updated_at`

func scanProfile(row rowScanner) (*Profile, error) {
	p := &Profile{}
	var th string
	if err := row.Scan(&p.ID, &p.Name, &th, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if p.Thresholds, err = decodeThresholds(th); err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.ID, err)
	}
	return p, nil
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	return queryOne(r.db, scanProfile, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
}

// GetByName retrieves a profile by its name.
func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	return queryOne(r.db, scanProfile, `SELECT `+profileColumns+` FROM profiles WHERE name = ?`, name)
}

// List retrieves all profiles, oldest first.
func (r *ProfileRepository) List() ([]*Profile, error) {
	return queryAll(r.db, scanProfile, `SELECT `+profileColumns+` FROM profiles ORDER BY created_at, name`)
}

// Update updates the name and thresholds of an existing profile.
func (r *ProfileRepository) Update(p *Profile) error {
	p.UpdatedAt = time.Now()

	th, err := encodeThresholds(p.Thresholds)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(
		`UPDATE profiles SET name = ?, thresholds = ?, updated_at = ? WHERE id = ?`,
		p.Name, th, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Delete removes a profile by its ID. Deleting the active profile clears the
// active selection.
func (r *ProfileRepository) Delete(id string) error {
	return inTx(r.db, func(tx *sql.Tx) error {
		result, err := tx.Exec(`DELETE FROM profiles WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if err := checkAffected(result); err != nil {
			return err
		}
		_, err = tx.Exec(`DELETE FROM settings WHERE key = ? AND value = ?`, activeProfileKey, id)
		return err
	})
}

// SetActive marks the profile with the given ID as active.
func (r *ProfileRepository) SetActive(id string) error {
	if _, err := r.GetByID(id); err != nil {
		return err
	}
	return (&SettingRepository{db: r.db}).Set(activeProfileKey, id)
}

// Active returns the active profile, or ErrNotFound when none is selected.
func (r *ProfileRepository) Active() (*Profile, error) {
	id, err := (&SettingRepository{db: r.db}).Get(activeProfileKey)
	if err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

// ActiveThresholds returns the active profile's thresholds and ID. When no
// profile is active it returns fallback and an empty ID.
func (r *ProfileRepository) ActiveThresholds(fallback gesture.Thresholds) (gesture.Thresholds, string, error) {
	p, err := r.Active()
	if errors.Is(err, ErrNotFound) {
		return fallback, "", nil
	}
	if err != nil {
		return fallback, "", fmt.Errorf("load active profile: %w", err)
	}
	return p.Thresholds, p.ID, nil
}
