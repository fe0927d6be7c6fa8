package charges

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/yungbote/upi-transfer-backend/internal/payments/money"
	"github.com/yungbote/upi-transfer-backend/internal/payments/rules"
)

var hundred = decimal.NewFromInt(100)

// Result is the fee breakdown for one transfer. All money values carry two decimal places.
type Result struct {
	Amount          money.Money `json:"amount"`
	TransactionType string      `json:"transaction_type"`
	InterBank       bool        `json:"inter_bank"`
	BaseFee         money.Money `json:"base_fee"`
	GST             money.Money `json:"gst"`
	TotalCharges    money.Money `json:"total_charges"`
	NetAmount       money.Money `json:"net_amount"`
}

func (r Result) IsFree() bool {
	return r.TotalCharges.IsZero()
}

type Calculator struct {
	rules *rules.Rules
}

func NewCalculator(r *rules.Rules) *Calculator {
	if r == nil {
		r = rules.Default()
	}
	return &Calculator{rules: r}
}

// ResolveType maps a caller-supplied transaction type onto a configured tier.
// Empty and unknown types resolve to the default tier.
func (c *Calculator) ResolveType(txnType string) string {
	t := strings.ToUpper(strings.TrimSpace(txnType))
	if _, ok := c.rules.TierPercent[t]; ok {
		return t
	}
	return c.rules.DefaultType
}

func (c *Calculator) Calculate(amount decimal.Decimal, txnType string, interBank bool) Result {
	res := Result{
		Amount:          money.Of(amount),
		TransactionType: txnType,
		InterBank:       interBank,
		BaseFee:         money.Zero,
		GST:             money.Zero,
		TotalCharges:    money.Zero,
		NetAmount:       money.Of(amount),
	}
	if !amount.IsPositive() {
		return res
	}

	base := c.baseFee(amount, txnType)
	if interBank && base.IsPositive() {
		base = base.Add(c.rules.InterBankSurcharge)
	}
	if base.GreaterThan(c.rules.MaxFee) {
		base = c.rules.MaxFee
	}
	gst := c.GST(base)
	total := base.Add(gst)

	res.BaseFee = money.Of(base)
	res.GST = money.Of(gst)
	res.TotalCharges = money.Of(total)
	res.NetAmount = money.Of(amount.Add(total))
	return res
}

func (c *Calculator) baseFee(amount decimal.Decimal, txnType string) decimal.Decimal {
	pct := c.rules.TierPercent[c.ResolveType(txnType)]
	return amount.Mul(pct).Div(hundred).Round(2)
}

// GST is levied on the base fee only; non-positive fees carry no tax.
func (c *Calculator) GST(baseFee decimal.Decimal) decimal.Decimal {
	if !baseFee.IsPositive() {
		return decimal.Zero
	}
	return baseFee.Mul(c.rules.GSTPercent).Div(hundred).Round(2)
}

func (c *Calculator) IsFreeType(txnType string) bool {
	if strings.TrimSpace(txnType) == "" {
		return true
	}
	pct, ok := c.rules.TierPercent[strings.ToUpper(strings.TrimSpace(txnType))]
	return ok && pct.IsZero()
}
