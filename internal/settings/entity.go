// AngelaMos | 2026
// entity.go

package settings

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KeyStudentDiscount = "student_discount_percentage"
	KeyPlatformFee     = "platform_fee_percentage"
	KeyMaxUploadSizeMB = "max_upload_size_mb"
)

const (
	CategoryPricing = "pricing"
	CategoryUploads = "uploads"
)

type Setting struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	Category  string    `db:"category"`
	Version   int       `db:"version"`
	UpdatedBy *string   `db:"updated_by"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Definition is a known key with its hard-coded fallback.
type Definition struct {
	Key      string
	Default  string
	Category string
	Validate func(value string) error
}

var definitions = []Definition{
	{
		Key:      KeyStudentDiscount,
		Default:  "20",
		Category: CategoryPricing,
		Validate: percentage,
	},
	{
		Key:      KeyPlatformFee,
		Default:  "15",
		Category: CategoryPricing,
		Validate: percentage,
	},
	{
		Key:      KeyMaxUploadSizeMB,
		Default:  "5",
		Category: CategoryUploads,
		Validate: intRange(1, 100),
	},
}

func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

func Lookup(key string) (Definition, bool) {
	for _, d := range definitions {
		if d.Key == key {
			return d, true
		}
	}
	return Definition{}, false
}

var hundred = decimal.NewFromInt(100)

func percentage(value string) error {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("must be a decimal number")
	}
	if d.IsNegative() || d.GreaterThan(hundred) {
		return fmt.Errorf("must be between 0 and 100")
	}
	return nil
}

func intRange(lo, hi int) func(string) error {
	return func(value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("must be a whole number")
		}
		if n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}
