package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/upi-transfer-backend/internal/payments/charges"
	"github.com/yungbote/upi-transfer-backend/internal/payments/reference"
	"github.com/yungbote/upi-transfer-backend/internal/payments/rules"
	"github.com/yungbote/upi-transfer-backend/internal/payments/vpa"
)

var errInvalidVPA = errors.New("one or more VPAs are invalid")

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "upictl",
		Short:         "Operator tooling for the UPI transfer service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(quoteCmd())
	rootCmd.AddCommand(refCmd())
	rootCmd.AddCommand(rulesCmd())

	return rootCmd
}

// loadRules honours UPI_RULES_YAML like the server does.
func loadRules() *rules.Rules {
	return rules.Load(nil)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <vpa>...",
		Short: "Validate one or more VPAs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := vpa.NewValidator(loadRules())
			invalid := false
			for _, arg := range args {
				res := v.Validate(arg)
				if !res.Valid {
					invalid = true
				}
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			}
			if invalid {
				return errInvalidVPA
			}
			return nil
		},
	}
}

func quoteCmd() *cobra.Command {
	var amount, txnType, payer, payee string
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Print the fee breakdown for an amount",
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amount, err)
			}
			if !amt.IsPositive() {
				return fmt.Errorf("--amount must be greater than zero")
			}
			interBank := payer != "" && payee != "" && !vpa.IsSameBank(payer, payee)
			calc := charges.NewCalculator(loadRules())
			res := calc.Calculate(amt, calc.ResolveType(txnType), interBank)
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Transfer amount in rupees")
	cmd.Flags().StringVarP(&txnType, "type", "t", "", "Transaction type (P2P, P2M, BILL)")
	cmd.Flags().StringVar(&payer, "payer", "", "Payer VPA")
	cmd.Flags().StringVar(&payee, "payee", "", "Payee VPA")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func refCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "ref",
		Short: "Generate transaction references",
		RunE: func(cmd *cobra.Command, args []string) error {
			if n < 1 {
				return fmt.Errorf("-n must be at least 1")
			}
			g := reference.NewGenerator()
			for i := 0; i < n; i++ {
				fmt.Fprintln(cmd.OutOrStdout(), g.TransactionRef())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&n, "count", "n", 1, "How many references to print")
	return cmd
}

func rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Dump the active rule set as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(loadRules())
		},
	}
}
