package repository

import (
	"context"
	"database/sql"

	"github.com/cse408-project/secureherai-api/internal/models"
)

type ResponderRepository interface {
	Get(ctx context.Context, responderID string) (models.Responder, error)
	// ListAvailable returns active responders currently marked AVAILABLE.
	ListAvailable(ctx context.Context) ([]models.Responder, error)
	SetAvailability(ctx context.Context, responderID string, status models.AvailabilityStatus) error
}

type responderRepository struct {
	db *sql.DB
}

func NewResponderRepository(db *sql.DB) ResponderRepository {
	return &responderRepository{db: db}
}

const responderColumns = `user_id, name, responder_type, status, latitude, longitude, push_token, active`

func (r *responderRepository) Get(ctx context.Context, responderID string) (models.Responder, error) {
	const query = `SELECT ` + responderColumns + ` FROM responders WHERE user_id = $1`
	return scanResponder(r.db.QueryRowContext(ctx, query, responderID))
}

func (r *responderRepository) ListAvailable(ctx context.Context) ([]models.Responder, error) {
	const query = `
		SELECT ` + responderColumns + `
		FROM responders
		WHERE active = TRUE AND status = 'AVAILABLE'
		ORDER BY user_id ASC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responders []models.Responder
	for rows.Next() {
		resp, err := scanResponder(rows)
		if err != nil {
			return nil, err
		}
		responders = append(responders, resp)
	}
	return responders, rows.Err()
}

func (r *responderRepository) SetAvailability(ctx context.Context, responderID string, status models.AvailabilityStatus) error {
	const query = `UPDATE responders SET status = $2 WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, responderID, status)
	return err
}

func scanResponder(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Responder, error) {
	var (
		resp      models.Responder
		latitude  sql.NullFloat64
		longitude sql.NullFloat64
		pushToken sql.NullString
	)
	if err := scanner.Scan(
		&resp.ID,
		&resp.Name,
		&resp.Type,
		&resp.Status,
		&latitude,
		&longitude,
		&pushToken,
		&resp.Active,
	); err != nil {
		return models.Responder{}, err
	}
	if latitude.Valid && longitude.Valid {
		resp.Location = &models.Location{Latitude: latitude.Float64, Longitude: longitude.Float64}
	}
	resp.PushToken = pushToken.String
	return resp, nil
}
