package vpa

import (
	"strings"

	"github.com/yungbote/upi-transfer-backend/internal/payments/rules"
)

const (
	MsgEmpty         = "VPA cannot be null or empty"
	MsgInvalidFormat = "Invalid VPA format. Expected: username@bankhandle"
	MsgBlocked       = "VPA contains blocked/reserved pattern"
	MsgUnknownHandle = "Unknown bank handle: "
	WarnUnlisted     = "Handle may be valid but not in approved list"
)

// Result is the detailed outcome of Validate.
type Result struct {
	VPA        string   `json:"vpa"`
	Valid      bool     `json:"valid"`
	Username   string   `json:"username,omitempty"`
	BankHandle string   `json:"bank_handle,omitempty"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
}

func (r Result) HasErrors() bool   { return len(r.Errors) > 0 }
func (r Result) HasWarnings() bool { return len(r.Warnings) > 0 }

type Validator struct {
	rules *rules.Rules
}

func NewValidator(r *rules.Rules) *Validator {
	if r == nil {
		r = rules.Default()
	}
	return &Validator{rules: r}
}

func (v *Validator) IsValidFormat(vpa string) bool {
	vpa = strings.TrimSpace(vpa)
	if vpa == "" {
		return false
	}
	return v.rules.VPAPattern.MatchString(vpa)
}

func (v *Validator) HasValidBankHandle(vpa string) bool {
	if !v.IsValidFormat(vpa) {
		return false
	}
	return v.isKnownHandle(ExtractBankHandle(strings.TrimSpace(vpa)))
}

func (v *Validator) isKnownHandle(handle string) bool {
	if handle == "" {
		return false
	}
	_, ok := v.rules.BankHandles[strings.ToLower(handle)]
	return ok
}

func (v *Validator) ContainsBlockedPattern(vpa string) bool {
	lower := strings.ToLower(vpa)
	for _, p := range v.rules.BlockedPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// Validate runs every VPA check and reports the first failing one.
// An unlisted handle is the only failure that also carries a warning.
func (v *Validator) Validate(vpa string) Result {
	res := Result{VPA: vpa, Errors: []string{}, Warnings: []string{}}

	trimmed := strings.TrimSpace(vpa)
	if trimmed == "" {
		res.Errors = append(res.Errors, MsgEmpty)
		return res
	}
	if !v.IsValidFormat(trimmed) {
		res.Errors = append(res.Errors, MsgInvalidFormat)
		return res
	}
	if v.ContainsBlockedPattern(trimmed) {
		res.Errors = append(res.Errors, MsgBlocked)
		return res
	}

	res.Username = ExtractUsername(trimmed)
	res.BankHandle = ExtractBankHandle(trimmed)
	if !v.isKnownHandle(res.BankHandle) {
		res.Errors = append(res.Errors, MsgUnknownHandle+res.BankHandle)
		res.Warnings = append(res.Warnings, WarnUnlisted)
		return res
	}
	res.Valid = true
	return res
}

// BankHandles returns the allow-list, sorted.
func (v *Validator) BankHandles() []string {
	return v.rules.SortedHandles()
}

// ExtractBankHandle returns the lower-cased handle, or "" unless vpa has exactly one '@'.
func ExtractBankHandle(vpa string) string {
	parts := strings.Split(vpa, "@")
	if len(parts) != 2 {
		return ""
	}
	return strings.ToLower(parts[1])
}

func ExtractUsername(vpa string) string {
	i := strings.Index(vpa, "@")
	if i < 0 {
		return ""
	}
	return vpa[:i]
}

// AreDifferent reports whether two VPAs name different accounts. Empty input is never "different".
func AreDifferent(a, b string) bool {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return false
	}
	return !strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func IsSameBank(a, b string) bool {
	ha := ExtractBankHandle(strings.TrimSpace(a))
	hb := ExtractBankHandle(strings.TrimSpace(b))
	if ha == "" || hb == "" {
		return false
	}
	return ha == hb
}

func Normalize(vpa string) string {
	return strings.ToLower(strings.TrimSpace(vpa))
}
