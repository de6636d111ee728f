package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/iho/splitledger/internal/adapter/http/dto"
	"github.com/iho/splitledger/internal/adapter/http/middleware"
)

var bcryptGenerate = bcrypt.GenerateFromPassword

type options struct {
	baseURL string
	token   string
	timeout time.Duration
	jsonOut bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "splitledger-cli",
		Short:         "SplitLedger CLI tool",
		Long:          `A command line interface for interacting with the SplitLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", envOr("SPLITLEDGER_URL", "http://localhost:8080"), "Base URL of the SplitLedger API")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("SPLITLEDGER_TOKEN"), "Bearer token")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Print raw JSON responses")

	rootCmd.AddCommand(groupsCmd(opts), settlementsCmd(opts), hashPasswordCmd())
	return rootCmd
}

func groupsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Group ledger operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "balances <group-id>",
		Short: "Show net balances per member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var balances []dto.BalanceResponse
			if err := newClient(opts).get(cmd.Context(), "/api/v1/groups/"+args[0]+"/balances", &balances); err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), balances)
			}
			return printBalances(cmd.OutOrStdout(), balances)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "integrity <group-id>",
		Short: "Check that balances sum to zero and splits match amounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var report dto.IntegrityResponse
			err := newClient(opts).get(cmd.Context(), "/api/v1/groups/"+args[0]+"/integrity", &report)
			var apiErr *apiError
			// An inconsistent ledger is reported with 409 and a full body.
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict && len(apiErr.Body) > 0 {
				if jerr := json.Unmarshal(apiErr.Body, &report); jerr != nil {
					return err
				}
			} else if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				if err := printJSON(out, report); err != nil {
					return err
				}
			} else {
				printIntegrity(out, report)
			}
			if !report.Consistent {
				return fmt.Errorf("integrity check failed for group %s", report.GroupID)
			}
			return nil
		},
	})

	return cmd
}

func settlementsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settlements",
		Short: "Settlement batch operations",
	}

	batchCmd := func(use, short string, run func(ctx context.Context, c *client, args []string) (*dto.BatchResponse, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				batch, err := run(cmd.Context(), newClient(opts), args)
				if err != nil {
					return err
				}
				if opts.jsonOut {
					return printJSON(cmd.OutOrStdout(), batch)
				}
				return printBatch(cmd.OutOrStdout(), batch)
			},
		}
	}

	cmd.AddCommand(batchCmd("compute <group-id>", "Compute a new settlement batch from current balances",
		func(ctx context.Context, c *client, args []string) (*dto.BatchResponse, error) {
			var batch dto.BatchResponse
			err := c.post(ctx, "/api/v1/groups/"+args[0]+"/settlements/compute", struct{}{}, &batch)
			return &batch, err
		}))

	cmd.AddCommand(batchCmd("latest <group-id>", "Show the most recent settlement batch",
		func(ctx context.Context, c *client, args []string) (*dto.BatchResponse, error) {
			var batch dto.BatchResponse
			err := c.get(ctx, "/api/v1/groups/"+args[0]+"/settlements/latest", &batch)
			return &batch, err
		}))

	var reason string
	voidCmd := batchCmd("void <batch-id>", "Void a settlement batch",
		func(ctx context.Context, c *client, args []string) (*dto.BatchResponse, error) {
			var batch dto.BatchResponse
			err := c.post(ctx, "/api/v1/settlement-batches/"+args[0]+"/void", dto.VoidBatchRequest{Reason: reason}, &batch)
			return &batch, err
		})
	voidCmd.Flags().StringVar(&reason, "reason", "", "Reason for voiding")
	cmd.AddCommand(voidCmd)

	var version int64
	payCmd := &cobra.Command{
		Use:   "pay <settlement-id>",
		Short: "Mark a settlement as paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var s dto.SettlementResponse
			if err := newClient(opts).post(cmd.Context(), "/api/v1/settlements/"+args[0]+"/paid", dto.MarkPaidRequest{Version: version}, &s); err != nil {
				return err
			}
			if opts.jsonOut {
				return printJSON(cmd.OutOrStdout(), s)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Settlement %s is %s (version %d)\n", s.ID, s.Status, s.Version)
			return nil
		},
	}
	payCmd.Flags().Int64Var(&version, "version", 1, "Expected settlement version")
	cmd.AddCommand(payCmd)

	return cmd
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print a bcrypt hash for seeding users",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := bcryptGenerate([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
}

type apiError struct {
	Status  int
	Code    string
	Message string
	Body    []byte
}

func (e *apiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed (status %d): %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("request failed (status %d)", e.Status)
}

type client struct {
	http    *http.Client
	baseURL string
	token   string
}

func newClient(opts *options) *client {
	return &client{
		http:    &http.Client{Timeout: opts.timeout},
		baseURL: strings.TrimRight(opts.baseURL, "/"),
		token:   opts.token,
	}
}

func (c *client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// post sends a write with a fresh idempotency key.
func (c *client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *client) do(ctx context.Context, method, path string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.IdempotencyKeyHeader, ulid.Make().String())
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &apiError{Status: resp.StatusCode, Body: data}
		var e dto.ErrorResponse
		if json.Unmarshal(data, &e) == nil {
			apiErr.Code, apiErr.Message = e.Error, e.Message
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func printBalances(w io.Writer, balances []dto.BalanceResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MEMBER\tPAID\tOWED\tNET")
	for _, b := range balances {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", truncate(b.MembershipID, 28), cents(b.PaidCents), cents(b.OwedCents), b.NetDisplay)
	}
	return tw.Flush()
}

func printIntegrity(w io.Writer, r dto.IntegrityResponse) {
	if r.Consistent {
		fmt.Fprintf(w, "Integrity check PASSED\n")
	} else {
		fmt.Fprintf(w, "Integrity check FAILED\n")
	}
	fmt.Fprintf(w, "Net total: %s\n", cents(r.NetTotalCents))
	fmt.Fprintf(w, "Expenses checked: %d\n", r.ExpenseRows)
	for _, m := range r.Mismatches {
		fmt.Fprintf(w, "  expense %s: amount %s, splits %s\n", m.ExpenseID, cents(m.AmountCents), cents(m.SplitTotalCents))
	}
}

func printBatch(w io.Writer, b *dto.BatchResponse) error {
	fmt.Fprintf(w, "Batch %s (%s, version %d) total %s\n", b.ID, b.Status, b.Version, b.TotalDisplay)
	if b.VoidReason != "" {
		fmt.Fprintf(w, "Void reason: %s\n", b.VoidReason)
	}
	if len(b.Settlements) == 0 {
		fmt.Fprintln(w, "Everyone is settled up.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFROM\tTO\tAMOUNT\tSTATUS")
	for _, s := range b.Settlements {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, truncate(s.FromMembership, 28), truncate(s.ToMembership, 28), s.AmountDisplay, s.Status)
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cents(c int64) string {
	return dto.DisplayCents(c)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
