// AngelaMos | 2026
// entity.go

package catalog

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
)

const DefaultCurrency = "IDR"

// Rejected is terminal. There is no resubmission path.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusPublished, StatusRejected},
}

func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[s], next)
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusPublished, StatusRejected:
		return true
	}
	return false
}

type Ebook struct {
	ID               string          `db:"id"`
	Title            string          `db:"title"`
	Description      string          `db:"description"`
	AuthorID         string          `db:"author_id"`
	BasePrice        decimal.Decimal `db:"base_price"`
	Currency         string          `db:"currency"`
	Status           Status          `db:"status"`
	FileRef          string          `db:"file_ref"`
	TotalSales       int             `db:"total_sales"`
	TotalRevenue     decimal.Decimal `db:"total_revenue"`
	AuthorEarnings   decimal.Decimal `db:"author_earnings"`
	PlatformEarnings decimal.Decimal `db:"platform_earnings"`
	ReviewNotes      *string         `db:"review_notes"`
	ReviewedBy       *string         `db:"reviewed_by"`
	PublishedAt      *time.Time      `db:"published_at"`
	CreatedAt        time.Time       `db:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at"`
}

func (e *Ebook) IsPublished() bool {
	return e.Status == StatusPublished
}
