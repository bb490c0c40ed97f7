// user_repository.go implements UserRepository, read-only lookups over
// platform accounts: single-user fetches for alert payloads and the
// responder-set query used by the notification dispatcher.
package repositories

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/order-sentinel/order-sentinel/internal/db/models"
)

// UserRepository handles read-only user queries
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetUserByID retrieves a user by ID. Returns (nil, nil) when no such user
// exists — detectors treat that as a lookup miss, not an error.
func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT id, username, email, role, is_active, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	user := &models.User{}
	err := r.db.GetContext(ctx, user, query, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// AdministratorIDs returns the ids of active users whose role is "admin",
// "super_admin", or the given domain role. An empty result is valid: the
// caller records the finding anyway and skips notification.
func (r *UserRepository) AdministratorIDs(ctx context.Context, requiredRole string) ([]string, error) {
	query := `
		SELECT id
		FROM users
		WHERE is_active = TRUE AND role IN ($1, $2, $3)
	`

	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, query, models.RoleAdmin, requiredRole, models.RoleSuperAdmin); err != nil {
		return nil, err
	}
	return ids, nil
}

// GetUsersByIDs retrieves users for the given ids, used to resolve recipient
// email addresses. Missing ids are silently absent from the result.
func (r *UserRepository) GetUsersByIDs(ctx context.Context, userIDs []string) ([]*models.User, error) {
	if len(userIDs) == 0 {
		return []*models.User{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, username, email, role, is_active, created_at, updated_at
		FROM users
		WHERE id IN (?)
	`, userIDs)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0)
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return users, nil
}
