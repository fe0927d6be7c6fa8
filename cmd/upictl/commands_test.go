package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/upi-transfer-backend/internal/payments/charges"
	"github.com/yungbote/upi-transfer-backend/internal/payments/reference"
	"github.com/yungbote/upi-transfer-backend/internal/payments/vpa"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("UPI_RULES_YAML", "")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	out, err := run(t, "validate", "rahul@okaxis")
	require.NoError(t, err)
	var res vpa.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Valid)

	out, err = run(t, "validate", "rahul@sbi", "admin@sbi")
	assert.ErrorIs(t, err, errInvalidVPA)
	dec := json.NewDecoder(strings.NewReader(out))
	var results []vpa.Result
	for dec.More() {
		var r vpa.Result
		require.NoError(t, dec.Decode(&r))
		results = append(results, r)
	}
	require.Len(t, results, 2)
	assert.True(t, results[0].Valid)
	assert.False(t, results[1].Valid)
}

func TestQuoteCommand(t *testing.T) {
	out, err := run(t, "quote", "--amount", "10000", "--type", "p2m", "--payer", "a@okaxis", "--payee", "b@ybl")
	require.NoError(t, err)
	var res charges.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "P2M", res.TransactionType)
	assert.True(t, res.InterBank)
	assert.Equal(t, "37.76", res.TotalCharges.StringFixed(2))

	_, err = run(t, "quote", "--amount", "abc")
	assert.Error(t, err)
	_, err = run(t, "quote", "--amount", "-5")
	assert.Error(t, err)
	_, err = run(t, "quote")
	assert.Error(t, err)
}

func TestRefCommand(t *testing.T) {
	out, err := run(t, "ref", "-n", "3")
	require.NoError(t, err)
	lines := strings.Fields(out)
	require.Len(t, lines, 3)
	seen := map[string]bool{}
	for _, l := range lines {
		assert.True(t, reference.IsTransactionRef(l), l)
		seen[l] = true
	}
	assert.Len(t, seen, 3)

	_, err = run(t, "ref", "-n", "0")
	assert.Error(t, err)
}

func TestRulesCommand(t *testing.T) {
	out, err := run(t, "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "ruleset: upi_transfer")
	assert.Contains(t, out, "- okaxis")
}
