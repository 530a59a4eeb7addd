package repository

import (
	"context"
	"database/sql"

	"github.com/cse408-project/secureherai-api/internal/models"
)

// ContactRepository is the read-only view of the contact-management
// subsystem's data the dispatcher needs.
type ContactRepository interface {
	// ListShareable returns the user's trusted contacts that opted in to
	// location sharing.
	ListShareable(ctx context.Context, userID string) ([]models.TrustedContact, error)
}

type contactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) ListShareable(ctx context.Context, userID string) ([]models.TrustedContact, error) {
	const query = `
		SELECT id, user_id, name, phone, email, relationship, share_location
		FROM trusted_contacts
		WHERE user_id = $1 AND share_location = TRUE
		ORDER BY name ASC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []models.TrustedContact
	for rows.Next() {
		var c models.TrustedContact
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Phone, &c.Email, &c.Relationship, &c.ShareLocation); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
