package reference

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 12, 7, 12, 0, 0, 0, time.UTC)
}

func TestTransactionRefFormat(t *testing.T) {
	g := NewGeneratorWithClock(fixedClock)

	first := g.TransactionRef()
	second := g.TransactionRef()
	assert.Equal(t, "TXN2024120712000001", first)
	assert.Equal(t, "TXN2024120712000002", second)
	assert.True(t, IsTransactionRef(first))
	assert.Len(t, first, 19)
}

func TestTransactionRefSuffixWraps(t *testing.T) {
	g := NewGeneratorWithClock(fixedClock)
	var last string
	for i := 0; i < 100; i++ {
		last = g.TransactionRef()
	}
	assert.True(t, strings.HasSuffix(last, "00"), last)
	assert.True(t, strings.HasSuffix(g.TransactionRef(), "01"))
}

func TestTransactionRefConcurrentUnique(t *testing.T) {
	g := NewGeneratorWithClock(fixedClock)

	var (
		mu   sync.Mutex
		seen = map[string]int{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				ref := g.TransactionRef()
				mu.Lock()
				seen[ref]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, 100)
	for ref, n := range seen {
		assert.Equal(t, 1, n, ref)
	}
}

func TestBankRRN(t *testing.T) {
	g := NewGenerator()
	for i := 0; i < 50; i++ {
		rrn := g.BankRRN()
		require.Len(t, rrn, 12)
		for _, r := range rrn {
			assert.True(t, r >= '0' && r <= '9', rrn)
		}
	}
}

func TestIsTransactionRef(t *testing.T) {
	assert.True(t, IsTransactionRef("TXN2024120712000099"))
	assert.False(t, IsTransactionRef("TXN20241207"))
	assert.False(t, IsTransactionRef("ABC2024120712000099"))
	assert.False(t, IsTransactionRef(""))
}
