// AngelaMos | 2026
// repository.go

package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carterperez-dev/studentshelf/internal/core"
)

type Repository interface {
	Bootstrap(ctx context.Context, defs []Definition) (int64, error)
	List(ctx context.Context) ([]Setting, error)
	Get(ctx context.Context, key string) (*Setting, error)
	Update(ctx context.Context, key, value, updatedBy string) (*Setting, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// Bootstrap inserts missing keys only. Admin edits are never overwritten.
func (r *repository) Bootstrap(ctx context.Context, defs []Definition) (int64, error) {
	query := `
		INSERT INTO platform_settings (key, value, category)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO NOTHING`

	var inserted int64
	for _, d := range defs {
		n, err := core.ExecAffected(ctx, r.db, query, d.Key, d.Default, d.Category)
		if err != nil {
			return inserted, fmt.Errorf("bootstrap setting %s: %w", d.Key, err)
		}
		inserted += n
	}

	return inserted, nil
}

func (r *repository) List(ctx context.Context) ([]Setting, error) {
	query := `
		SELECT key, value, category, version, updated_by, updated_at
		FROM platform_settings
		ORDER BY category, key`

	var out []Setting
	if err := r.db.SelectContext(ctx, &out, query); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}

	return out, nil
}

func (r *repository) Get(ctx context.Context, key string) (*Setting, error) {
	query := `
		SELECT key, value, category, version, updated_by, updated_at
		FROM platform_settings
		WHERE key = $1`

	var s Setting
	err := r.db.GetContext(ctx, &s, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get setting: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get setting: %w", err)
	}

	return &s, nil
}

func (r *repository) Update(
	ctx context.Context,
	key, value, updatedBy string,
) (*Setting, error) {
	query := `
		UPDATE platform_settings
		SET value = $2, version = version + 1, updated_by = $3, updated_at = NOW()
		WHERE key = $1
		RETURNING key, value, category, version, updated_by, updated_at`

	var s Setting
	err := r.db.GetContext(ctx, &s, query, key, value, updatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update setting: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update setting: %w", err)
	}

	return &s, nil
}
