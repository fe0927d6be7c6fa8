package reference

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"sync/atomic"
	"time"
)

const (
	refPrefix = "TXN"
	refLayout = "20060102150405"
)

var (
	refShape = regexp.MustCompile(`^TXN\d{16}$`)
	rrnSpace = big.NewInt(1_000_000_000_000)
)

// Generator issues transaction references and simulated bank RRNs.
// A single Generator is safe for concurrent use.
type Generator struct {
	counter atomic.Uint64
	now     func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

// NewGeneratorWithClock is used by tests that need a deterministic timestamp.
func NewGeneratorWithClock(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// TransactionRef returns "TXN" + yyyyMMddHHmmss + a two-digit rolling suffix.
// References issued within the same second are distinct for up to 100 calls.
func (g *Generator) TransactionRef() string {
	n := g.counter.Add(1) % 100
	return fmt.Sprintf("%s%s%02d", refPrefix, g.now().Format(refLayout), n)
}

// BankRRN returns a zero-padded 12 digit retrieval reference number.
func (g *Generator) BankRRN() string {
	n, err := rand.Int(rand.Reader, rrnSpace)
	if err != nil {
		return fmt.Sprintf("%012d", g.now().UnixNano()%rrnSpace.Int64())
	}
	return fmt.Sprintf("%012d", n.Int64())
}

func IsTransactionRef(s string) bool {
	return refShape.MatchString(s)
}
