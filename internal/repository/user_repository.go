package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/cse408-project/secureherai-api/internal/models"
)

type UserRepository interface {
	Get(ctx context.Context, userID string) (models.User, error)
	// DeleteUnverifiedBefore removes accounts that never completed
	// verification and are older than the cutoff. Returns rows deleted.
	DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Get(ctx context.Context, userID string) (models.User, error) {
	const query = `
		SELECT id, full_name, email, phone, role, sos_keyword, verified, created_at
		FROM users
		WHERE id = $1
	`
	var u models.User
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&u.ID,
		&u.FullName,
		&u.Email,
		&u.Phone,
		&u.Role,
		&u.SOSKeyword,
		&u.Verified,
		&u.CreatedAt,
	)
	return u, err
}

func (r *userRepository) DeleteUnverifiedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM users WHERE verified = FALSE AND created_at < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
