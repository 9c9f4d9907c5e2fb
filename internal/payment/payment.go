// AngelaMos | 2026
// payment.go

package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=payment.go -destination=mocks/provider.go -package=mocks

var ErrInvalidSignature = errors.New("invalid notification signature")

type CheckoutRequest struct {
	OrderID  string
	Amount   decimal.Decimal
	Currency string
	ItemID   string
	ItemName string
	Email    string
}

type Checkout struct {
	Token       string `json:"token,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// Notification is the gateway callback body. Field names follow the
// gateway's JSON.
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
	PaymentType       string `json:"payment_type"`
}

type Outcome string

const (
	OutcomePaid    Outcome = "paid"
	OutcomeFailed  Outcome = "failed"
	OutcomeIgnored Outcome = "ignored"
)

type Provider interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	VerifyNotification(n Notification) error
}

// MapStatus folds gateway statuses into what the purchase lifecycle acts on.
// Challenged card captures wait for a later settlement or deny.
func MapStatus(n Notification) Outcome {
	switch strings.ToLower(n.TransactionStatus) {
	case "settlement":
		return OutcomePaid
	case "capture":
		if strings.EqualFold(n.FraudStatus, "accept") || n.FraudStatus == "" {
			return OutcomePaid
		}
		return OutcomeIgnored
	case "deny", "cancel", "expire", "failure":
		return OutcomeFailed
	default:
		return OutcomeIgnored
	}
}

// OfflineProvider opens no gateway session. Purchases it creates stay
// pending until an administrator confirms them.
type OfflineProvider struct{}

func (OfflineProvider) CreateCheckout(context.Context, CheckoutRequest) (*Checkout, error) {
	return &Checkout{}, nil
}

func (OfflineProvider) VerifyNotification(Notification) error {
	return ErrInvalidSignature
}
