// AngelaMos | 2026
// dto.go

package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateEbookRequest struct {
	Title       string `validate:"required,min=1,max=200"`
	Description string `validate:"max=5000"`
	BasePrice   string `validate:"required,numeric"`
	Currency    string `validate:"omitempty,len=3,uppercase"`
}

type ReviewRequest struct {
	Status string `json:"status" validate:"required,oneof=published rejected"`
	Notes  string `json:"notes"  validate:"max=2000"`
}

type ListParams struct {
	Status   Status
	AuthorID string
	Page     int
	PageSize int
}

func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
}

func (p *ListParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// PublicEbook is what anonymous buyers see. File references and earnings
// stay private.
type PublicEbook struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	AuthorID    string          `json:"author_id"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Currency    string          `json:"currency"`
	TotalSales  int             `json:"total_sales"`
	PublishedAt *time.Time      `json:"published_at,omitempty"`
}

type EbookResponse struct {
	PublicEbook
	Status           Status          `json:"status"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	AuthorEarnings   decimal.Decimal `json:"author_earnings"`
	PlatformEarnings decimal.Decimal `json:"platform_earnings"`
	ReviewNotes      *string         `json:"review_notes,omitempty"`
	ReviewedBy       *string         `json:"reviewed_by,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func ToPublicEbook(e *Ebook) PublicEbook {
	return PublicEbook{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		AuthorID:    e.AuthorID,
		BasePrice:   e.BasePrice,
		Currency:    e.Currency,
		TotalSales:  e.TotalSales,
		PublishedAt: e.PublishedAt,
	}
}

func ToEbookResponse(e *Ebook) EbookResponse {
	return EbookResponse{
		PublicEbook:      ToPublicEbook(e),
		Status:           e.Status,
		TotalRevenue:     e.TotalRevenue,
		AuthorEarnings:   e.AuthorEarnings,
		PlatformEarnings: e.PlatformEarnings,
		ReviewNotes:      e.ReviewNotes,
		ReviewedBy:       e.ReviewedBy,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}
