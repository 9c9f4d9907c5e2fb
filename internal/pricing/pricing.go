// AngelaMos | 2026
// pricing.go

package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/settings"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

type Rates struct {
	DiscountPercent decimal.Decimal
	FeePercent      decimal.Decimal
}

// Quote always reconciles: Original = Discount + PlatformFee + AuthorEarnings.
type Quote struct {
	Original       decimal.Decimal `json:"original_price"`
	Discount       decimal.Decimal `json:"discount"`
	PlatformFee    decimal.Decimal `json:"platform_fee"`
	AuthorEarnings decimal.Decimal `json:"author_earnings"`
	Final          decimal.Decimal `json:"final_price"`
	Privileged     bool            `json:"student_price_applied"`
}

func (r Rates) validate() error {
	for name, pct := range map[string]decimal.Decimal{
		"discount": r.DiscountPercent,
		"fee":      r.FeePercent,
	} {
		if pct.IsNegative() || pct.GreaterThan(hundred) {
			return fmt.Errorf(
				"%s percentage %s outside 0-100: %w",
				name,
				pct.String(),
				core.ErrConfiguration,
			)
		}
	}
	return nil
}

// Calculate splits base into buyer discount, platform fee and author share.
// Money is rounded half-up to cents at each step.
func Calculate(base decimal.Decimal, privileged bool, rates Rates) (Quote, error) {
	if !base.IsPositive() {
		return Quote{}, core.ValidationError("base price must be greater than zero")
	}
	if err := rates.validate(); err != nil {
		return Quote{}, err
	}

	original := base.Round(moneyPlaces)

	discount := decimal.Zero
	if privileged {
		discount = original.Mul(rates.DiscountPercent).Div(hundred).Round(moneyPlaces)
	}

	final := original.Sub(discount)
	fee := final.Mul(rates.FeePercent).Div(hundred).Round(moneyPlaces)

	return Quote{
		Original:       original,
		Discount:       discount,
		PlatformFee:    fee,
		AuthorEarnings: final.Sub(fee),
		Final:          final,
		Privileged:     privileged,
	}, nil
}

type SettingsReader interface {
	Decimal(ctx context.Context, key string) (decimal.Decimal, error)
}

type Engine struct {
	settings SettingsReader
}

func NewEngine(settings SettingsReader) *Engine {
	return &Engine{settings: settings}
}

func (e *Engine) Rates(ctx context.Context) (Rates, error) {
	discount, err := e.settings.Decimal(ctx, settings.KeyStudentDiscount)
	if err != nil {
		return Rates{}, fmt.Errorf("read discount rate: %w", err)
	}

	fee, err := e.settings.Decimal(ctx, settings.KeyPlatformFee)
	if err != nil {
		return Rates{}, fmt.Errorf("read platform fee: %w", err)
	}

	return Rates{DiscountPercent: discount, FeePercent: fee}, nil
}

func (e *Engine) Price(
	ctx context.Context,
	base decimal.Decimal,
	privileged bool,
) (Quote, error) {
	rates, err := e.Rates(ctx)
	if err != nil {
		return Quote{}, err
	}
	return Calculate(base, privileged, rates)
}
