package rules

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/upi-transfer-backend/internal/platform/logger"
)

const rulesPathEnv = "UPI_RULES_YAML"

//go:embed rules.yaml
var rulesFS embed.FS

// Spec is the on-disk shape of a rule set. Decimal values are kept as strings
// so the file round-trips without float noise.
type Spec struct {
	Ruleset         string   `yaml:"ruleset"`
	Version         int      `yaml:"version"`
	VPAPattern      string   `yaml:"vpa_pattern"`
	BankHandles     []string `yaml:"bank_handles"`
	BlockedPatterns []string `yaml:"blocked_patterns"`
	Amount          struct {
		Min string `yaml:"min"`
		Max string `yaml:"max"`
	} `yaml:"amount"`
	Fees FeeSpec `yaml:"fees"`
}

type FeeSpec struct {
	DefaultType        string     `yaml:"default_type"`
	GSTPercent         string     `yaml:"gst_percent"`
	InterBankSurcharge string     `yaml:"inter_bank_surcharge"`
	MaxFee             string     `yaml:"max_fee"`
	Tiers              []TierSpec `yaml:"tiers"`
}

type TierSpec struct {
	Percent string   `yaml:"percent"`
	Types   []string `yaml:"types"`
}

// Rules is a compiled, read-only rule set shared by the validator and the fee calculator.
type Rules struct {
	VPAPattern      *regexp.Regexp
	BankHandles     map[string]struct{}
	BlockedPatterns []string
	MinAmount       decimal.Decimal
	MaxAmount       decimal.Decimal

	DefaultType        string
	GSTPercent         decimal.Decimal
	InterBankSurcharge decimal.Decimal
	MaxFee             decimal.Decimal
	TierPercent        map[string]decimal.Decimal

	spec Spec
}

var fallbackSpec = Spec{
	Ruleset:    "upi_transfer",
	Version:    1,
	VPAPattern: `^[a-zA-Z0-9][a-zA-Z0-9._-]{0,49}@[a-zA-Z][a-zA-Z0-9]{1,20}$`,
	BankHandles: []string{
		"sbi", "hdfc", "icici", "axis", "pnb", "boi", "bob", "canara", "union",
		"kotak", "indus", "yes", "idbi", "federal", "rbl", "dcb", "kvb", "csb",
		"paytm", "ybl", "okhdfcbank", "okicici", "okaxis", "oksbi", "apl",
		"upi", "gpay", "phonepe", "amazonpay", "freecharge", "mobikwik",
		"idfcbank", "axisbank", "hdfcbank", "icicibank", "sbibank",
	},
	BlockedPatterns: []string{"test", "admin", "root", "system", "null", "undefined", "blocked", "fraud"},
	Fees: FeeSpec{
		DefaultType:        "P2P",
		GSTPercent:         "18.00",
		InterBankSurcharge: "2.00",
		MaxFee:             "750.00",
		Tiers: []TierSpec{
			{Percent: "0.00", Types: []string{"P2P", "UPI", "UPI_LITE"}},
			{Percent: "0.30", Types: []string{"P2M", "MERCHANT"}},
			{Percent: "0.50", Types: []string{"BILL", "BILLPAY"}},
		},
	},
}

func init() {
	fallbackSpec.Amount.Min = "1.00"
	fallbackSpec.Amount.Max = "100000.00"
}

// Default returns the compiled-in rule set.
func Default() *Rules {
	r, err := Compile(fallbackSpec)
	if err != nil {
		panic(fmt.Sprintf("rules: fallback spec invalid: %v", err))
	}
	return r
}

// Load reads the rule set from UPI_RULES_YAML, or the embedded rules.yaml when unset.
// Any read or validation failure falls back to Default.
func Load(log *logger.Logger) *Rules {
	data, err := readRules()
	if err == nil {
		var r *Rules
		if r, err = Parse(data); err == nil {
			return r
		}
	}
	if log != nil {
		log.Warn("rules: load failed; using fallback", "error", err, "path", os.Getenv(rulesPathEnv))
	}
	return Default()
}

func readRules() ([]byte, error) {
	if path := strings.TrimSpace(os.Getenv(rulesPathEnv)); path != "" {
		return os.ReadFile(path)
	}
	return rulesFS.ReadFile("rules.yaml")
}

func Parse(data []byte) (*Rules, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	return Compile(spec)
}

func Compile(spec Spec) (*Rules, error) {
	if strings.TrimSpace(spec.Ruleset) != "upi_transfer" {
		return nil, fmt.Errorf("unexpected ruleset: %q", spec.Ruleset)
	}
	pattern, err := regexp.Compile(strings.TrimSpace(spec.VPAPattern))
	if err != nil {
		return nil, fmt.Errorf("vpa_pattern: %w", err)
	}

	handles := make(map[string]struct{}, len(spec.BankHandles))
	for _, h := range spec.BankHandles {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		handles[h] = struct{}{}
	}
	if len(handles) == 0 {
		return nil, errors.New("no bank handles defined")
	}

	blocked := make([]string, 0, len(spec.BlockedPatterns))
	for _, p := range spec.BlockedPatterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			blocked = append(blocked, p)
		}
	}

	minAmount, err := parseDecimal("amount.min", spec.Amount.Min)
	if err != nil {
		return nil, err
	}
	maxAmount, err := parseDecimal("amount.max", spec.Amount.Max)
	if err != nil {
		return nil, err
	}
	if !minAmount.IsPositive() {
		return nil, errors.New("amount.min must be positive")
	}
	if minAmount.GreaterThan(maxAmount) {
		return nil, errors.New("amount.min exceeds amount.max")
	}

	gst, err := parseDecimal("fees.gst_percent", spec.Fees.GSTPercent)
	if err != nil {
		return nil, err
	}
	surcharge, err := parseDecimal("fees.inter_bank_surcharge", spec.Fees.InterBankSurcharge)
	if err != nil {
		return nil, err
	}
	maxFee, err := parseDecimal("fees.max_fee", spec.Fees.MaxFee)
	if err != nil {
		return nil, err
	}

	tiers := map[string]decimal.Decimal{}
	for i, tier := range spec.Fees.Tiers {
		pct, err := parseDecimal(fmt.Sprintf("fees.tiers[%d].percent", i), tier.Percent)
		if err != nil {
			return nil, err
		}
		for _, t := range tier.Types {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			if _, dup := tiers[t]; dup {
				return nil, fmt.Errorf("duplicate transaction type: %s", t)
			}
			tiers[t] = pct
		}
	}
	defaultType := strings.ToUpper(strings.TrimSpace(spec.Fees.DefaultType))
	if _, ok := tiers[defaultType]; !ok {
		return nil, fmt.Errorf("default_type %q has no tier", spec.Fees.DefaultType)
	}

	return &Rules{
		VPAPattern:         pattern,
		BankHandles:        handles,
		BlockedPatterns:    blocked,
		MinAmount:          minAmount,
		MaxAmount:          maxAmount,
		DefaultType:        defaultType,
		GSTPercent:         gst,
		InterBankSurcharge: surcharge,
		MaxFee:             maxFee,
		TierPercent:        tiers,
		spec:               spec,
	}, nil
}

func parseDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", field, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}

// SortedHandles returns the allow-list in lexical order.
func (r *Rules) SortedHandles() []string {
	out := make([]string, 0, len(r.BankHandles))
	for h := range r.BankHandles {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// MarshalYAML dumps the source spec the rules were compiled from.
func (r *Rules) MarshalYAML() (interface{}, error) {
	return r.spec, nil
}
