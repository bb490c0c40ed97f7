// finding_repository.go implements FindingRepository, the only writer in this
// service. CreateFinding appends one row per detector hit — deliberately no
// dedup against earlier findings for the same condition, so an unresolved
// condition produces a fresh row on every sweep that still matches. That is
// current behavior, not a guaranteed contract; callers wanting suppression
// must do it upstream.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/order-sentinel/order-sentinel/internal/db/models"
)

// FindingRepository handles anomaly finding persistence
type FindingRepository struct {
	db *sqlx.DB
}

// NewFindingRepository creates a new FindingRepository
func NewFindingRepository(db *sqlx.DB) *FindingRepository {
	return &FindingRepository{db: db}
}

// FindingFilters contains filters for querying findings
type FindingFilters struct {
	Type       *string
	UserID     *string
	IsResolved *bool
	StartDate  *time.Time
	EndDate    *time.Time
}

// CreateFinding inserts a new finding with is_resolved=false. The id and
// detection timestamp are assigned here.
func (r *FindingRepository) CreateFinding(ctx context.Context, finding *models.Finding) error {
	finding.ID = uuid.New().String()
	if finding.DetectedAt.IsZero() {
		finding.DetectedAt = time.Now()
	}
	finding.IsResolved = false

	query := `
		INSERT INTO findings (id, type, severity, user_id, details, detected_at, is_resolved)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		finding.ID,
		finding.Type,
		finding.Severity,
		finding.UserID,
		[]byte(finding.Details),
		finding.DetectedAt,
		finding.IsResolved,
	)

	return err
}

// ResolveFinding marks a finding resolved and stamps resolved_at/resolved_by
// in the same statement, so the resolution invariant (both set iff resolved)
// holds for every row this repository ever produces.
func (r *FindingRepository) ResolveFinding(ctx context.Context, findingID, resolvedBy string, notes *string) error {
	query := `
		UPDATE findings
		SET is_resolved = TRUE, resolved_at = $2, resolved_by = $3, notes = $4
		WHERE id = $1 AND is_resolved = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, findingID, time.Now(), resolvedBy, notes)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("finding %s not found or already resolved", findingID)
	}
	return nil
}

// ListFindings retrieves findings with optional filters, newest first.
func (r *FindingRepository) ListFindings(ctx context.Context, filters FindingFilters, limit, offset int) ([]*models.Finding, int, error) {
	countQuery := `SELECT COUNT(*) FROM findings WHERE 1=1`
	query := `
		SELECT id, type, severity, user_id, details, detected_at,
		       is_resolved, resolved_at, resolved_by, notes
		FROM findings
		WHERE 1=1
	`

	args := make([]interface{}, 0)
	paramIndex := 1

	if filters.Type != nil {
		clause := fmt.Sprintf(` AND type = $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.Type)
		paramIndex++
	}

	if filters.UserID != nil {
		clause := fmt.Sprintf(` AND user_id = $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.UserID)
		paramIndex++
	}

	if filters.IsResolved != nil {
		clause := fmt.Sprintf(` AND is_resolved = $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.IsResolved)
		paramIndex++
	}

	if filters.StartDate != nil {
		clause := fmt.Sprintf(` AND detected_at >= $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.StartDate)
		paramIndex++
	}

	if filters.EndDate != nil {
		clause := fmt.Sprintf(` AND detected_at <= $%d`, paramIndex)
		countQuery += clause
		query += clause
		args = append(args, *filters.EndDate)
		paramIndex++
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY detected_at DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	findings := make([]*models.Finding, 0)
	if err := r.db.SelectContext(ctx, &findings, query, args...); err != nil {
		return nil, 0, err
	}

	return findings, total, nil
}
