// AngelaMos | 2026
// entity.go

package purchase

import (
	"crypto/rand"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

// Refunds are recorded by hand for now; nothing transitions into refunded.
var transitions = map[Status][]Status{
	StatusPending: {StatusCompleted, StatusFailed},
}

func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[s], next)
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

type BuyerClass string

const (
	BuyerStudent BuyerClass = "student"
	BuyerRegular BuyerClass = "regular"
)

func ClassFor(privileged bool) BuyerClass {
	if privileged {
		return BuyerStudent
	}
	return BuyerRegular
}

// FreeTransactionID marks purchases completed without a gateway session.
const FreeTransactionID = "free"

type Purchase struct {
	ID                    string          `db:"id"`
	OrderID               string          `db:"order_id"`
	BuyerEmail            string          `db:"buyer_email"`
	BuyerClass            BuyerClass      `db:"buyer_class"`
	EbookID               string          `db:"ebook_id"`
	ListPrice             decimal.Decimal `db:"list_price"`
	Discount              decimal.Decimal `db:"discount"`
	PlatformFee           decimal.Decimal `db:"platform_fee"`
	AuthorEarnings        decimal.Decimal `db:"author_earnings"`
	FinalPrice            decimal.Decimal `db:"final_price"`
	Currency              string          `db:"currency"`
	Credential            string          `db:"credential"`
	Status                Status          `db:"status"`
	ProviderTransactionID *string         `db:"provider_transaction_id"`
	PaymentToken          *string         `db:"payment_token"`
	PaymentRedirectURL    *string         `db:"payment_redirect_url"`
	FailureReason         *string         `db:"failure_reason"`
	CompletedAt           *time.Time      `db:"completed_at"`
	FailedAt              *time.Time      `db:"failed_at"`
	CreatedAt             time.Time       `db:"created_at"`
	UpdatedAt             time.Time       `db:"updated_at"`
}

// Summary aggregates purchases for the admin overview.
type Summary struct {
	Counts           map[Status]int  `json:"counts"`
	Revenue          decimal.Decimal `json:"revenue"`
	PlatformEarnings decimal.Decimal `json:"platform_earnings"`
}

// NewOrderID returns ORD-YYYYMMDD-XXXXXXXX with a random base32 suffix.
func NewOrderID(now time.Time) string {
	return "ORD-" + now.UTC().Format("20060102") + "-" + rand.Text()[:8]
}
