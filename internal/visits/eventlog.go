// Package visits records completed field visits and keeps an immutable event
// trail of them.
package visits

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType classifies a visit event record.
type EventType string

const (
	// EventVisitCompleted is logged when a doctor is marked visited.
	EventVisitCompleted EventType = "visit.completed"
)

// Event is an immutable visit log record.
type Event struct {
	ID        string    `json:"id"`
	EventType EventType `json:"event_type"`
	OrgID     string    `json:"org_id"`
	DoctorID  string    `json:"doctor_id"`
	VisitDate string    `json:"visit_date"`
	CreatedAt time.Time `json:"created_at"`
}

// EventLog persists visit events. A nil log is a no-op, used when no
// DATABASE_URL is configured.
type EventLog struct {
	db *sql.DB
}

// NewEventLog creates an event log backed by the relational database.
func NewEventLog(db *sql.DB) *EventLog {
	if db == nil {
		return nil
	}
	return &EventLog{db: db}
}

// LogEvent records a visit event.
func (l *EventLog) LogEvent(ctx context.Context, event Event) error {
	if l == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO visit_events (id, event_type, org_id, doctor_id, visit_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := l.db.ExecContext(ctx, query,
		event.ID, event.EventType, event.OrgID, event.DoctorID, event.VisitDate, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("visits: failed to log event: %w", err)
	}
	return nil
}

// EventsForDoctor returns the visit history for one doctor, newest first.
func (l *EventLog) EventsForDoctor(ctx context.Context, orgID, doctorID string, limit int) ([]Event, error) {
	if l == nil {
		return []Event{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, event_type, org_id, doctor_id, visit_date, created_at
		FROM visit_events
		WHERE org_id = $1 AND doctor_id = $2
		ORDER BY created_at DESC
		LIMIT $3`, orgID, doctorID, limit)
	if err != nil {
		return nil, fmt.Errorf("visits: failed to query events: %w", err)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.EventType, &e.OrgID, &e.DoctorID, &e.VisitDate, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("visits: failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
