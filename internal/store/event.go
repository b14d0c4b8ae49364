package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Event is one emitted gesture. Error is set when the key tap failed.
type Event struct {
	ID         string
	SessionID  string
	Gesture    string
	Key        string
	Fingers    string
	Error      string
	OccurredAt time.Time
}

// EventRepository records and queries gesture events.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create inserts e, assigning an ID when it has none.
func (r *EventRepository) Create(e *Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	e.OccurredAt = e.OccurredAt.UTC()

	_, err := r.db.Exec(
		`INSERT INTO gesture_events (id, session_id, gesture, key, fingers, error, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Gesture, e.Key, e.Fingers, e.Error, e.OccurredAt,
	)
	return err
}

// ListBySession returns a session's events in the order they were recorded.
func (r *EventRepository) ListBySession(sessionID string) ([]*Event, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, gesture, key, fingers, error, occurred_at
		 FROM gesture_events WHERE session_id = ? ORDER BY rowid`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Gesture, &e.Key, &e.Fingers, &e.Error, &e.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountByGesture returns how often each gesture was emitted in a session.
func (r *EventRepository) CountByGesture(sessionID string) (map[string]int, error) {
	rows, err := r.db.Query(
		`SELECT gesture, COUNT(*) FROM gesture_events WHERE session_id = ? GROUP BY gesture`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var g string
		var n int
		if err := rows.Scan(&g, &n); err != nil {
			return nil, err
		}
		counts[g] = n
	}
	return counts, rows.Err()
}
