package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/cse408-project/secureherai-api/internal/models"
)

type NotificationRepository interface {
	Create(ctx context.Context, notif models.AlertNotification) (models.AlertNotification, error)
	SetDeliveryStatus(ctx context.Context, notificationID string, status models.DeliveryStatus) error
	ListByAlert(ctx context.Context, alertID string) ([]models.AlertNotification, error)
	// ResponderRow returns the latest assignment-bearing row for the
	// responder on the alert, or sql.ErrNoRows if never notified.
	ResponderRow(ctx context.Context, alertID, responderID string) (models.AlertNotification, error)
	// AcquireAssignment atomically sets the responder's status to ACCEPTED
	// iff no responder currently holds ACCEPTED/EN_ROUTE/ARRIVED on the
	// alert. Returns the number of rows updated; 0 means the lock is held
	// or the row is missing.
	AcquireAssignment(ctx context.Context, alertID, responderID string) (int64, error)
	// SetResponderStatus conditionally moves the responder's assignment
	// from one of the given statuses; returns rows updated.
	SetResponderStatus(ctx context.Context, alertID, responderID string, from []models.ResponderStatus, to models.ResponderStatus) (int64, error)
	// HoldingResponder returns the responder ID currently holding the
	// active assignment on the alert, or sql.ErrNoRows.
	HoldingResponder(ctx context.Context, alertID string) (string, error)
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `id, alert_id, contact_id, responder_id, recipient_type,
	recipient_name, delivery_status, responder_status, notified_at`

func (r *notificationRepository) Create(ctx context.Context, notif models.AlertNotification) (models.AlertNotification, error) {
	const query = `
		INSERT INTO alert_recipients (id, alert_id, contact_id, responder_id, recipient_type,
			recipient_name, delivery_status, responder_status, notified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + notificationColumns

	notifiedAt := notif.NotifiedAt
	if notifiedAt.IsZero() {
		notifiedAt = time.Now().UTC()
	}
	row := r.db.QueryRowContext(ctx, query,
		notif.ID,
		notif.AlertID,
		notif.ContactID,
		notif.ResponderID,
		notif.RecipientType,
		notif.RecipientName,
		notif.DeliveryStatus,
		notif.ResponderStatus,
		notifiedAt,
	)
	return scanAlertNotification(row)
}

func (r *notificationRepository) SetDeliveryStatus(ctx context.Context, notificationID string, status models.DeliveryStatus) error {
	const query = `UPDATE alert_recipients SET delivery_status = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, notificationID, status)
	return err
}

func (r *notificationRepository) ListByAlert(ctx context.Context, alertID string) ([]models.AlertNotification, error) {
	const query = `
		SELECT ` + notificationColumns + `
		FROM alert_recipients
		WHERE alert_id = $1
		ORDER BY notified_at ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, alertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifs []models.AlertNotification
	for rows.Next() {
		notif, err := scanAlertNotification(rows)
		if err != nil {
			return nil, err
		}
		notifs = append(notifs, notif)
	}
	return notifs, rows.Err()
}

func (r *notificationRepository) ResponderRow(ctx context.Context, alertID, responderID string) (models.AlertNotification, error) {
	const query = `
		SELECT ` + notificationColumns + `
		FROM alert_recipients
		WHERE alert_id = $1 AND responder_id = $2 AND responder_status IS NOT NULL
		ORDER BY notified_at DESC
		LIMIT 1
	`
	return scanAlertNotification(r.db.QueryRowContext(ctx, query, alertID, responderID))
}

func (r *notificationRepository) AcquireAssignment(ctx context.Context, alertID, responderID string) (int64, error) {
	// Uniqueness check and write in one statement so two responders
	// cannot both observe "no holder" and accept.
	const query = `
		UPDATE alert_recipients
		SET responder_status = 'ACCEPTED'
		WHERE alert_id = $1 AND responder_id = $2
		  AND responder_status IN ('PENDING', 'REJECTED')
		  AND NOT EXISTS (
			SELECT 1 FROM alert_recipients held
			WHERE held.alert_id = $1
			  AND held.responder_status IN ('ACCEPTED', 'EN_ROUTE', 'ARRIVED')
		  )
	`
	res, err := r.db.ExecContext(ctx, query, alertID, responderID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) SetResponderStatus(ctx context.Context, alertID, responderID string, from []models.ResponderStatus, to models.ResponderStatus) (int64, error) {
	const query = `
		UPDATE alert_recipients
		SET responder_status = $3
		WHERE alert_id = $1 AND responder_id = $2 AND responder_status = ANY($4)
	`
	fromStrs := make([]string, len(from))
	for i, s := range from {
		fromStrs[i] = string(s)
	}
	res, err := r.db.ExecContext(ctx, query, alertID, responderID, to, pq.Array(fromStrs))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *notificationRepository) HoldingResponder(ctx context.Context, alertID string) (string, error) {
	const query = `
		SELECT responder_id
		FROM alert_recipients
		WHERE alert_id = $1 AND responder_status IN ('ACCEPTED', 'EN_ROUTE', 'ARRIVED')
		LIMIT 1
	`
	var responderID string
	err := r.db.QueryRowContext(ctx, query, alertID).Scan(&responderID)
	return responderID, err
}

func scanAlertNotification(scanner interface {
	Scan(dest ...interface{}) error
}) (models.AlertNotification, error) {
	var (
		notif       models.AlertNotification
		contactID   sql.NullString
		responderID sql.NullString
		respStatus  sql.NullString
	)
	if err := scanner.Scan(
		&notif.ID,
		&notif.AlertID,
		&contactID,
		&responderID,
		&notif.RecipientType,
		&notif.RecipientName,
		&notif.DeliveryStatus,
		&respStatus,
		&notif.NotifiedAt,
	); err != nil {
		return models.AlertNotification{}, err
	}
	if contactID.Valid {
		v := contactID.String
		notif.ContactID = &v
	}
	if responderID.Valid {
		v := responderID.String
		notif.ResponderID = &v
	}
	if respStatus.Valid {
		s := models.ResponderStatus(respStatus.String)
		notif.ResponderStatus = &s
	}
	return notif, nil
}
