package money

import (
	"github.com/shopspring/decimal"
)

// Money is a rupee amount that always serializes with two decimal places, e.g. "5.90".
type Money struct {
	decimal.Decimal
}

var Zero = Money{decimal.Zero}

func Of(d decimal.Decimal) Money {
	return Money{d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decimal.UnmarshalJSON(data)
}
