// Package audit persists the invocation trail: one append-only row per
// settled tool call. No updates or deletes are supported.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jsalazar/toolforge/internal/domain/dispatch"
	"github.com/jsalazar/toolforge/internal/domain/tool"
	"github.com/jsalazar/toolforge/internal/infra/eventbus"
)

// Service records settled invocations and serves read queries over the trail.
// It implements dispatch.Recorder.
type Service struct {
	db     *sql.DB
	bus    eventbus.EventBus
	logger *zap.Logger
}

// NewService creates an audit service. bus may be nil to skip event
// publication.
func NewService(db *sql.DB, bus eventbus.EventBus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, bus: bus, logger: logger}
}

// Record persists one settled call and publishes it on the bus. Dispatch is
// never failed by audit problems; errors are logged and swallowed.
func (s *Service) Record(ctx context.Context, ev dispatch.Event) {
	entry := InvocationEvent{
		ID:         newEventID(),
		TurnID:     ev.TurnID,
		CallID:     ev.CallID,
		ToolName:   ev.Tool,
		Status:     ev.Status,
		Attempts:   ev.Attempts,
		DurationMS: ev.Duration.Milliseconds(),
		Error:      ev.Error,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.insert(ctx, entry); err != nil {
		s.logger.Error("audit insert failed",
			zap.String("turn_id", entry.TurnID),
			zap.String("call_id", entry.CallID),
			zap.Error(err))
		return
	}
	if s.bus != nil {
		s.bus.Publish(TopicInvocationSettled, entry)
	}
}

func (s *Service) insert(ctx context.Context, entry InvocationEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invocation_event
			(id, turn_id, call_id, tool_name, status, attempts, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.TurnID,
		entry.CallID,
		entry.ToolName,
		string(entry.Status),
		entry.Attempts,
		entry.DurationMS,
		nullable(entry.Error),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// ListByTurn returns the events of one turn in insertion order.
func (s *Service) ListByTurn(ctx context.Context, turnID string) ([]InvocationEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, turn_id, call_id, tool_name, status, attempts, duration_ms, error, created_at
		FROM invocation_event
		WHERE turn_id = ?
		ORDER BY created_at ASC, id ASC`, turnID)
	if err != nil {
		return nil, fmt.Errorf("audit: list by turn: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Recent returns the newest events, newest first. limit <= 0 means 50.
func (s *Service) Recent(ctx context.Context, limit int) ([]InvocationEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, turn_id, call_id, tool_name, status, attempts, duration_ms, error, created_at
		FROM invocation_event
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: recent: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]InvocationEvent, error) {
	var events []InvocationEvent
	for rows.Next() {
		var (
			ev        InvocationEvent
			status    string
			errText   sql.NullString
			createdAt string
		)
		if err := rows.Scan(
			&ev.ID, &ev.TurnID, &ev.CallID, &ev.ToolName,
			&status, &ev.Attempts, &ev.DurationMS, &errText, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		ev.Status = tool.Status(status)
		ev.Error = errText.String
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			ev.CreatedAt = t
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// newEventID returns a UUID v7, which sorts by timestamp and keeps the
// primary key index append-friendly.
func newEventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
