package cart

import (
	"strings"

	"backend/internal/models"
)

// DiscountResolver turns a discount code into the discount it grants. The
// pricing algorithm never sees codes, only the resolved amount/percentage
// pair, so the registry can be swapped without touching it.
type DiscountResolver interface {
	Resolve(code string) (models.Discount, bool)
}

// StaticDiscounts resolves codes from a fixed in-memory table.
type StaticDiscounts map[string]models.Discount

func (s StaticDiscounts) Resolve(code string) (models.Discount, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	discount, ok := s[normalized]
	if !ok {
		return models.Discount{}, false
	}
	discount.Code = normalized
	return discount, true
}

// DefaultDiscounts is the built-in promotion table.
func DefaultDiscounts() StaticDiscounts {
	return StaticDiscounts{
		"WELCOME10":  {Percentage: 10},
		"SAVE20":     {Percentage: 20},
		"FIRSTORDER": {Percentage: 15},
		"STUDENT10":  {Percentage: 10},
	}
}
