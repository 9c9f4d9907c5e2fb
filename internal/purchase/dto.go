// AngelaMos | 2026
// dto.go

package purchase

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/studentshelf/internal/pricing"
)

type CreatePurchaseRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

type ConfirmRequest struct {
	TransactionID string `json:"transaction_id" validate:"omitempty,max=255"`
}

type ListParams struct {
	Status   Status
	EbookID  string
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

type PaymentInfo struct {
	Status      Status `json:"status"`
	Token       string `json:"token,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// DownloadInfo is shown to the buyer once. The secret is not retrievable
// through any other route.
type DownloadInfo struct {
	Email       string `json:"email"`
	Secret      string `json:"secret"`
	DownloadURL string `json:"download_url"`
}

type CreatePurchaseResponse struct {
	PurchaseID   string        `json:"purchase_id"`
	OrderID      string        `json:"order_id"`
	Pricing      pricing.Quote `json:"pricing"`
	Payment      PaymentInfo   `json:"payment"`
	DownloadInfo DownloadInfo  `json:"download_info"`
}

type PurchaseResponse struct {
	ID                    string          `json:"id"`
	OrderID               string          `json:"order_id"`
	BuyerEmail            string          `json:"buyer_email"`
	BuyerClass            BuyerClass      `json:"buyer_class"`
	EbookID               string          `json:"ebook_id"`
	ListPrice             decimal.Decimal `json:"list_price"`
	Discount              decimal.Decimal `json:"discount"`
	PlatformFee           decimal.Decimal `json:"platform_fee"`
	AuthorEarnings        decimal.Decimal `json:"author_earnings"`
	FinalPrice            decimal.Decimal `json:"final_price"`
	Currency              string          `json:"currency"`
	Status                Status          `json:"status"`
	ProviderTransactionID *string         `json:"provider_transaction_id,omitempty"`
	FailureReason         *string         `json:"failure_reason,omitempty"`
	CompletedAt           *time.Time      `json:"completed_at,omitempty"`
	FailedAt              *time.Time      `json:"failed_at,omitempty"`
	CreatedAt             time.Time       `json:"created_at"`
}

func ToPurchaseResponse(p *Purchase) PurchaseResponse {
	return PurchaseResponse{
		ID:                    p.ID,
		OrderID:               p.OrderID,
		BuyerEmail:            p.BuyerEmail,
		BuyerClass:            p.BuyerClass,
		EbookID:               p.EbookID,
		ListPrice:             p.ListPrice,
		Discount:              p.Discount,
		PlatformFee:           p.PlatformFee,
		AuthorEarnings:        p.AuthorEarnings,
		FinalPrice:            p.FinalPrice,
		Currency:              p.Currency,
		Status:                p.Status,
		ProviderTransactionID: p.ProviderTransactionID,
		FailureReason:         p.FailureReason,
		CompletedAt:           p.CompletedAt,
		FailedAt:              p.FailedAt,
		CreatedAt:             p.CreatedAt,
	}
}

type NotificationResponse struct {
	Status string `json:"status"`
}
