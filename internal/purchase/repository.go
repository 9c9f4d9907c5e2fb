// AngelaMos | 2026
// repository.go

package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/studentshelf/internal/core"
)

type Repository interface {
	Create(ctx context.Context, p *Purchase) error
	GetByID(ctx context.Context, id string) (*Purchase, error)
	GetByOrderID(ctx context.Context, orderID string) (*Purchase, error)
	SetCheckout(ctx context.Context, id, token, redirectURL string) error
	Complete(ctx context.Context, id, transactionID string) (bool, error)
	Fail(ctx context.Context, id, reason string) (bool, error)
	CompletedCredentials(ctx context.Context, itemID, email string) ([]string, error)
	List(ctx context.Context, params ListParams) ([]Purchase, int, error)
	Summary(ctx context.Context) (*Summary, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const purchaseColumns = `
	id, order_id, buyer_email, buyer_class, ebook_id,
	list_price, discount, platform_fee, author_earnings, final_price, currency,
	credential, status, provider_transaction_id, payment_token, payment_redirect_url,
	failure_reason, completed_at, failed_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p *Purchase) error {
	query := `
		INSERT INTO purchases (
			id, order_id, buyer_email, buyer_class, ebook_id,
			list_price, discount, platform_fee, author_earnings, final_price,
			currency, credential, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, p, query,
		p.ID,
		p.OrderID,
		p.BuyerEmail,
		p.BuyerClass,
		p.EbookID,
		p.ListPrice,
		p.Discount,
		p.PlatformFee,
		p.AuthorEarnings,
		p.FinalPrice,
		p.Currency,
		p.Credential,
		p.Status,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create purchase: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create purchase: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Purchase, error) {
	return r.getOne(ctx, "get purchase", `SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id)
}

func (r *repository) GetByOrderID(ctx context.Context, orderID string) (*Purchase, error) {
	return r.getOne(ctx, "get purchase by order", `SELECT `+purchaseColumns+` FROM purchases WHERE order_id = $1`, orderID)
}

func (r *repository) getOne(ctx context.Context, op, query string, arg any) (*Purchase, error) {
	var p Purchase
	err := r.db.GetContext(ctx, &p, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &p, nil
}

func (r *repository) SetCheckout(ctx context.Context, id, token, redirectURL string) error {
	query := `
		UPDATE purchases
		SET payment_token = NULLIF($2, ''),
		    payment_redirect_url = NULLIF($3, ''),
		    updated_at = NOW()
		WHERE id = $1`

	rows, err := core.ExecAffected(ctx, r.db, query, id, token, redirectURL)
	if err != nil {
		return fmt.Errorf("set checkout: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("set checkout: %w", core.ErrNotFound)
	}
	return nil
}

// Complete moves a pending purchase to completed. It reports whether this
// call made the change.
func (r *repository) Complete(ctx context.Context, id, transactionID string) (bool, error) {
	query := `
		UPDATE purchases
		SET status = 'completed',
		    provider_transaction_id = $2,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	rows, err := core.ExecAffected(ctx, r.db, query, id, transactionID)
	if err != nil {
		return false, fmt.Errorf("complete purchase: %w", err)
	}
	return rows == 1, nil
}

func (r *repository) Fail(ctx context.Context, id, reason string) (bool, error) {
	query := `
		UPDATE purchases
		SET status = 'failed',
		    failure_reason = $2,
		    failed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`

	rows, err := core.ExecAffected(ctx, r.db, query, id, reason)
	if err != nil {
		return false, fmt.Errorf("fail purchase: %w", err)
	}
	return rows == 1, nil
}

func (r *repository) CompletedCredentials(
	ctx context.Context,
	itemID, email string,
) ([]string, error) {
	query := `
		SELECT credential
		FROM purchases
		WHERE ebook_id = $1 AND buyer_email = $2 AND status = 'completed'`

	var out []string
	if err := r.db.SelectContext(ctx, &out, query, itemID, email); err != nil {
		return nil, fmt.Errorf("completed credentials: %w", err)
	}
	return out, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Purchase, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	if params.EbookID != "" {
		conditions = append(conditions, fmt.Sprintf("ebook_id = $%d", argIdx))
		args = append(args, params.EbookID)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM purchases WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM purchases
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		purchaseColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var out []Purchase
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list purchases: %w", err)
	}

	return out, total, nil
}

func (r *repository) Summary(ctx context.Context) (*Summary, error) {
	query := `
		SELECT status,
		       COUNT(*) AS n,
		       COALESCE(SUM(final_price), 0) AS revenue,
		       COALESCE(SUM(platform_fee), 0) AS platform
		FROM purchases
		GROUP BY status`

	var rows []struct {
		Status   Status          `db:"status"`
		N        int             `db:"n"`
		Revenue  decimal.Decimal `db:"revenue"`
		Platform decimal.Decimal `db:"platform"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("purchase summary: %w", err)
	}

	out := &Summary{Counts: make(map[Status]int, len(rows))}
	for _, row := range rows {
		out.Counts[row.Status] = row.N
		if row.Status == StatusCompleted {
			out.Revenue = row.Revenue
			out.PlatformEarnings = row.Platform
		}
	}
	return out, nil
}
