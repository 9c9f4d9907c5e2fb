// AngelaMos | 2026
// midtrans.go

package payment

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/carterperez-dev/studentshelf/internal/config"
	"github.com/carterperez-dev/studentshelf/internal/core"
)

const maxItemNameLen = 50

type MidtransProvider struct {
	client    snap.Client
	serverKey string
}

func NewMidtransProvider(cfg config.MidtransConfig) *MidtransProvider {
	env := midtrans.Sandbox
	if cfg.Production {
		env = midtrans.Production
	}

	p := &MidtransProvider{serverKey: cfg.ServerKey}
	p.client.New(cfg.ServerKey, env)
	return p
}

// CreateCheckout opens a Snap session. The gateway takes whole currency
// units so the amount is rounded half-up.
func (p *MidtransProvider) CreateCheckout(
	_ context.Context,
	req CheckoutRequest,
) (*Checkout, error) {
	amount := req.Amount.Round(0).IntPart()
	if amount <= 0 {
		return nil, fmt.Errorf("checkout %s: non-positive amount", req.OrderID)
	}

	name := req.ItemName
	if len(name) > maxItemNameLen {
		name = name[:maxItemNameLen]
	}

	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			Email: req.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:       req.ItemID,
				Price:    amount,
				Qty:      1,
				Name:     name,
				Category: "ebook",
			},
		},
		CreditCard: &snap.CreditCardDetails{Secure: true},
	}

	resp, merr := p.client.CreateTransaction(snapReq)
	if merr != nil {
		return nil, fmt.Errorf("midtrans checkout %s: %s: %w", req.OrderID, merr.Message, core.ErrUpstream)
	}

	return &Checkout{
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
	}, nil
}

func (p *MidtransProvider) VerifyNotification(n Notification) error {
	if n.SignatureKey == "" || p.serverKey == "" {
		return ErrInvalidSignature
	}

	want := Signature(n.OrderID, n.StatusCode, n.GrossAmount, p.serverKey)
	if !core.ConstantTimeEqual(want, strings.ToLower(n.SignatureKey)) {
		return ErrInvalidSignature
	}
	return nil
}

// Signature is SHA512(order_id + status_code + gross_amount + server_key), hex.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}
