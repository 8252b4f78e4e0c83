package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"stream-verification/internal/dto"
	"stream-verification/internal/service"
)

// ErrSessionNotFound is returned when no stream session has the requested id.
var ErrSessionNotFound = errors.New("stream session not found")

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateStreamSession inserts a new stream session row.
func (r *SessionRepository) CreateStreamSession(ctx context.Context, id string, kind string, startedAt time.Time) error {
	query := `
		INSERT INTO stream_sessions (id, kind, status, started_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, id, kind, "streaming", startedAt)
	if err != nil {
		return fmt.Errorf("failed to create stream session: %w", err)
	}
	return nil
}

// FinishStreamSession records the final counters of a stopped session.
func (r *SessionRepository) FinishStreamSession(ctx context.Context, id string, stats service.StopStats, finishedAt time.Time) error {
	query := `
		UPDATE stream_sessions
		SET status = $1, total_units = $2, total_analyses = $3, suspicious_count = $4, finished_at = $5
		WHERE id = $6
	`
	_, err := r.db.ExecContext(ctx, query,
		"stopped", stats.TotalUnits, stats.TotalAnalyses, stats.SuspiciousCount, finishedAt, id)
	if err != nil {
		return fmt.Errorf("failed to finish stream session: %w", err)
	}
	return nil
}

// RecordAlert persists a raised alert.
func (r *SessionRepository) RecordAlert(ctx context.Context, event dto.AlertEvent) error {
	query := `
		INSERT INTO alerts (id, session_id, kind, unit_number, alert_type, confidence, findings, anomaly_types, raised_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		event.AlertID,
		event.SessionID,
		event.Kind,
		event.UnitNumber,
		event.AlertType,
		event.Confidence,
		pq.Array(event.Findings),
		pq.Array(event.AnomalyTypes),
		event.RaisedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record alert: %w", err)
	}
	return nil
}

// GetStreamSession retrieves one stream session row.
func (r *SessionRepository) GetStreamSession(ctx context.Context, id string) (*StreamSessionRow, error) {
	query := `
		SELECT id, kind, status, total_units, total_analyses, suspicious_count, started_at, finished_at
		FROM stream_sessions
		WHERE id = $1
	`
	var row StreamSessionRow
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&row.ID,
		&row.Kind,
		&row.Status,
		&row.TotalUnits,
		&row.TotalAnalyses,
		&row.SuspiciousCount,
		&row.StartedAt,
		&row.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get stream session: %w", err)
	}
	return &row, nil
}

// ListAlertsBySession retrieves all alerts raised for a session.
func (r *SessionRepository) ListAlertsBySession(ctx context.Context, sessionID string) ([]dto.AlertEvent, error) {
	query := `
		SELECT id, session_id, kind, unit_number, alert_type, confidence, findings, anomaly_types, raised_at
		FROM alerts
		WHERE session_id = $1
		ORDER BY raised_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []dto.AlertEvent
	for rows.Next() {
		var event dto.AlertEvent
		err := rows.Scan(
			&event.AlertID,
			&event.SessionID,
			&event.Kind,
			&event.UnitNumber,
			&event.AlertType,
			&event.Confidence,
			pq.Array(&event.Findings),
			pq.Array(&event.AnomalyTypes),
			&event.RaisedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, event)
	}
	return alerts, nil
}

// StreamSessionRow mirrors one stream_sessions row.
type StreamSessionRow struct {
	ID              string
	Kind            string
	Status          string
	TotalUnits      int64
	TotalAnalyses   int
	SuspiciousCount int
	StartedAt       time.Time
	FinishedAt      sql.NullTime
}
