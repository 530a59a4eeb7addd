package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/cse408-project/secureherai-api/internal/models"
)

type AlertRepository interface {
	Create(ctx context.Context, alert models.Alert) (models.Alert, error)
	GetByID(ctx context.Context, alertID string) (models.Alert, error)
	// LatestOpenForUser returns the most recent ACTIVE/CRITICAL alert for
	// the user triggered at or after since, or sql.ErrNoRows.
	LatestOpenForUser(ctx context.Context, userID string, since time.Time) (models.Alert, error)
	// Transition conditionally moves an alert out of the given statuses.
	// Returns the number of rows updated, so callers can detect a lost
	// race without a separate read.
	Transition(ctx context.Context, alertID string, from []models.AlertStatus, to models.AlertStatus, stampCanceled, stampResolved *time.Time) (int64, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Alert, error)
	ListOpen(ctx context.Context) ([]models.Alert, error)
	ListInWindow(ctx context.Context, start, end time.Time, limit int) ([]models.Alert, error)
	ListInArea(ctx context.Context, latMin, latMax, lonMin, lonMax float64, limit int) ([]models.Alert, error)
	ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]models.Alert, error)
}

type alertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) AlertRepository {
	return &alertRepository{db: db}
}

const alertColumns = `id, user_id, latitude, longitude, address, trigger_method, alert_message,
	audio_recording, triggered_at, status, verification_status, canceled_at, resolved_at`

func (r *alertRepository) Create(ctx context.Context, alert models.Alert) (models.Alert, error) {
	const query = `
		INSERT INTO alerts (id, user_id, latitude, longitude, address, trigger_method,
			alert_message, audio_recording, triggered_at, status, verification_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + alertColumns

	row := r.db.QueryRowContext(ctx, query,
		alert.ID,
		alert.UserID,
		alert.Location.Latitude,
		alert.Location.Longitude,
		alert.Location.Address,
		alert.TriggerMethod,
		nullIfEmpty(alert.Message),
		nullIfEmpty(alert.AudioRecording),
		alert.TriggeredAt,
		alert.Status,
		alert.VerificationStatus,
	)
	return scanAlert(row)
}

func (r *alertRepository) GetByID(ctx context.Context, alertID string) (models.Alert, error) {
	const query = `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	return scanAlert(r.db.QueryRowContext(ctx, query, alertID))
}

func (r *alertRepository) LatestOpenForUser(ctx context.Context, userID string, since time.Time) (models.Alert, error) {
	const query = `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE user_id = $1 AND status IN ('active', 'critical') AND triggered_at >= $2
		ORDER BY triggered_at DESC
		LIMIT 1
	`
	return scanAlert(r.db.QueryRowContext(ctx, query, userID, since))
}

func (r *alertRepository) Transition(ctx context.Context, alertID string, from []models.AlertStatus, to models.AlertStatus, stampCanceled, stampResolved *time.Time) (int64, error) {
	const query = `
		UPDATE alerts
		SET status = $2,
		    canceled_at = COALESCE($3, canceled_at),
		    resolved_at = COALESCE($4, resolved_at)
		WHERE id = $1 AND status = ANY($5)
	`
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}
	res, err := r.db.ExecContext(ctx, query, alertID, to, stampCanceled, stampResolved, pq.Array(fromStrs))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *alertRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Alert, error) {
	const query = `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE user_id = $1
		ORDER BY triggered_at DESC
		LIMIT $2
	`
	return r.queryAlerts(ctx, query, userID, clampLimit(limit))
}

func (r *alertRepository) ListOpen(ctx context.Context) ([]models.Alert, error) {
	const query = `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE status IN ('active', 'critical')
		ORDER BY triggered_at DESC
	`
	return r.queryAlerts(ctx, query)
}

func (r *alertRepository) ListInWindow(ctx context.Context, start, end time.Time, limit int) ([]models.Alert, error) {
	const query = `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE triggered_at >= $1 AND triggered_at < $2
		ORDER BY triggered_at DESC
		LIMIT $3
	`
	return r.queryAlerts(ctx, query, start, end, clampLimit(limit))
}

func (r *alertRepository) ListInArea(ctx context.Context, latMin, latMax, lonMin, lonMax float64, limit int) ([]models.Alert, error) {
	const query = `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4
		ORDER BY triggered_at DESC
		LIMIT $5
	`
	return r.queryAlerts(ctx, query, latMin, latMax, lonMin, lonMax, clampLimit(limit))
}

func (r *alertRepository) ListOpenOlderThan(ctx context.Context, cutoff time.Time) ([]models.Alert, error) {
	const query = `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE status IN ('active', 'critical') AND triggered_at < $1
		ORDER BY triggered_at ASC
	`
	return r.queryAlerts(ctx, query, cutoff)
}

func (r *alertRepository) queryAlerts(ctx context.Context, query string, args ...interface{}) ([]models.Alert, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func scanAlert(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Alert, error) {
	var (
		alert      models.Alert
		message    sql.NullString
		audio      sql.NullString
		canceledAt sql.NullTime
		resolvedAt sql.NullTime
	)
	if err := scanner.Scan(
		&alert.ID,
		&alert.UserID,
		&alert.Location.Latitude,
		&alert.Location.Longitude,
		&alert.Location.Address,
		&alert.TriggerMethod,
		&message,
		&audio,
		&alert.TriggeredAt,
		&alert.Status,
		&alert.VerificationStatus,
		&canceledAt,
		&resolvedAt,
	); err != nil {
		return models.Alert{}, err
	}
	alert.Message = message.String
	alert.AudioRecording = audio.String
	if canceledAt.Valid {
		t := canceledAt.Time
		alert.CanceledAt = &t
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		alert.ResolvedAt = &t
	}
	return alert, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
