package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/facecomm/internal/gesture"
)

// Action represents a gesture-to-plugin binding stored in the database.
type Action struct {
	ID         string
	Gesture    gesture.Kind
	PluginName string
	ActionName string
	Config     json.RawMessage
	Enabled    bool
	CreatedAt  time.Time
}

// ActionRepository provides CRUD operations for actions.
type ActionRepository struct {
	db *sql.DB
}

// Actions returns the action repository for this store.
func (s *Store) Actions() *ActionRepository {
	return &ActionRepository{db: s.db}
}

const actionColumns = `id, gesture, plugin_name, action_name, config, enabled, created_at`

func scanAction(row rowScanner) (*Action, error) {
	a := &Action{}
	var kind, config string
	var enabled int

	if err := row.Scan(&a.ID, &kind, &a.PluginName, &a.ActionName, &config, &enabled, &a.CreatedAt); err != nil {
		return nil, err
	}

	k, err := gesture.ParseKind(kind)
	if err != nil {
		return nil, fmt.Errorf("action %s: %w", a.ID, err)
	}
	a.Gesture = k
	a.Config = json.RawMessage(config)
	a.Enabled = enabled != 0
	return a, nil
}

func actionConfig(a *Action) string {
	if a.Config == nil {
		return "{}"
	}
	return string(a.Config)
}

// Create inserts a new action into the database.
func (r *ActionRepository) Create(a *Action) error {
	a.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO actions (`+actionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Gesture.String(), a.PluginName, a.ActionName, actionConfig(a), a.Enabled, a.CreatedAt,
	)
	return err
}

// GetByID retrieves an action by its ID.
func (r *ActionRepository) GetByID(id string) (*Action, error) {
	return queryOne(r.db, scanAction, `SELECT `+actionColumns+` FROM actions WHERE id = ?`, id)
}

// ListByGesture retrieves the enabled actions bound to a gesture, oldest first.
// An unbound gesture yields an empty list.
func (r *ActionRepository) ListByGesture(k gesture.Kind) ([]*Action, error) {
	return queryAll(r.db, scanAction,
		`SELECT `+actionColumns+` FROM actions
		 WHERE gesture = ? AND enabled = 1 ORDER BY created_at`,
		k.String(),
	)
}

// List retrieves all actions, newest first.
func (r *ActionRepository) List() ([]*Action, error) {
	return queryAll(r.db, scanAction, `SELECT `+actionColumns+` FROM actions ORDER BY created_at DESC`)
}

// Update updates an existing action in the database.
func (r *ActionRepository) Update(a *Action) error {
	result, err := r.db.Exec(
		`UPDATE actions SET gesture = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		a.Gesture.String(), a.PluginName, a.ActionName, actionConfig(a), a.Enabled, a.ID,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Delete removes an action from the database by its ID.
func (r *ActionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM actions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}
