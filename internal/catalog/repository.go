// AngelaMos | 2026
// repository.go

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/carterperez-dev/studentshelf/internal/core"
)

type Repository interface {
	Create(ctx context.Context, ebook *Ebook) error
	GetByID(ctx context.Context, id string) (*Ebook, error)
	List(ctx context.Context, params ListParams) ([]Ebook, int, error)
	Transition(ctx context.Context, id string, from, to Status, review *Review) (bool, error)
	RecomputeStats(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[Status]int, error)
}

// Review carries the admin fields stamped by a review transition.
type Review struct {
	AdminID string
	Notes   string
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const ebookColumns = `
	id, title, description, author_id, base_price, currency, status, file_ref,
	total_sales, total_revenue, author_earnings, platform_earnings,
	review_notes, reviewed_by, published_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, e *Ebook) error {
	query := `
		INSERT INTO ebooks (id, title, description, author_id, base_price, currency, status, file_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, e, query,
		e.ID,
		e.Title,
		e.Description,
		e.AuthorID,
		e.BasePrice,
		e.Currency,
		e.Status,
		e.FileRef,
	)
	if err != nil {
		return fmt.Errorf("create ebook: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Ebook, error) {
	query := `SELECT ` + ebookColumns + ` FROM ebooks WHERE id = $1`

	var e Ebook
	err := r.db.GetContext(ctx, &e, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get ebook: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get ebook: %w", err)
	}

	return &e, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Ebook, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	if params.AuthorID != "" {
		conditions = append(conditions, fmt.Sprintf("author_id = $%d", argIdx))
		args = append(args, params.AuthorID)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM ebooks WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count ebooks: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM ebooks
		WHERE %s
		ORDER BY COALESCE(published_at, created_at) DESC
		LIMIT $%d OFFSET $%d`,
		ebookColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var out []Ebook
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list ebooks: %w", err)
	}

	return out, total, nil
}

// Transition moves id from one status to another only if it is still in
// from. It reports whether this call made the change.
func (r *repository) Transition(
	ctx context.Context,
	id string,
	from, to Status,
	review *Review,
) (bool, error) {
	var adminID, notes *string
	if review != nil {
		adminID = &review.AdminID
		notes = &review.Notes
	}

	query := `
		UPDATE ebooks
		SET status = $3,
		    reviewed_by = COALESCE($4, reviewed_by),
		    review_notes = COALESCE($5, review_notes),
		    published_at = CASE WHEN $3 = 'published' THEN NOW() ELSE published_at END,
		    updated_at = NOW()
		WHERE id = $1 AND status = $2`

	rows, err := core.ExecAffected(ctx, r.db, query, id, from, to, adminID, notes)
	if err != nil {
		return false, fmt.Errorf("transition ebook: %w", err)
	}

	return rows == 1, nil
}

// RecomputeStats derives the sales aggregates from completed purchases.
// Re-running it is harmless.
func (r *repository) RecomputeStats(ctx context.Context, id string) error {
	query := `
		UPDATE ebooks e
		SET total_sales = s.sales,
		    total_revenue = s.revenue,
		    author_earnings = s.author,
		    platform_earnings = s.platform,
		    updated_at = NOW()
		FROM (
			SELECT COUNT(*) AS sales,
			       COALESCE(SUM(final_price), 0) AS revenue,
			       COALESCE(SUM(author_earnings), 0) AS author,
			       COALESCE(SUM(platform_fee), 0) AS platform
			FROM purchases
			WHERE ebook_id = $1 AND status = 'completed'
		) s
		WHERE e.id = $1`

	rows, err := core.ExecAffected(ctx, r.db, query, id)
	if err != nil {
		return fmt.Errorf("recompute ebook stats: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("recompute ebook stats: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	query := `SELECT status, COUNT(*) AS n FROM ebooks GROUP BY status`

	var rows []struct {
		Status Status `db:"status"`
		N      int    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count ebooks by status: %w", err)
	}

	out := make(map[Status]int, len(rows))
	for _, row := range rows {
		out[row.Status] = row.N
	}
	return out, nil
}
