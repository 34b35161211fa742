package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyltr/walletd/api"
	"github.com/fyltr/walletd/internal/config"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Connect to the ledger, ping once and print the result",
	Args:  cobra.NoArgs,
	RunE:  runPing,
}

var (
	statusURL     string
	statusTimeout time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the health endpoint of a running walletd",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusURL, "url", "", "walletd base URL (default: resolved from VCAP_APPLICATION/PORT)")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 10*time.Second, "Request timeout")
}

func runPing(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd.ErrOrStderr())

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout+10*time.Second)
	defer cancel()

	conn, err := connect(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer conn.Disconnect(ctx) //nolint:errcheck

	res, err := conn.Ping(ctx)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), res)
}

func runStatus(cmd *cobra.Command, args []string) error {
	base := statusURL
	if base == "" {
		p, err := config.ResolvePlatform()
		if err != nil {
			return err
		}
		base = p.URL
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("cannot reach walletd at %s: %w", base, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		var e api.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("walletd at %s is unhealthy: %s", base, e.Error)
		}
		return fmt.Errorf("walletd at %s returned %s", base, resp.Status)
	}

	var health api.HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return printResult(cmd.OutOrStdout(), health)
}

// printResult writes a ping map as JSON or as a sorted key/value table.
func printResult(w io.Writer, res map[string]any) error {
	if outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	keys := make([]string, 0, len(res))
	for k := range res {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s\t%v\n", k, res[k])
	}
	return tw.Flush()
}
