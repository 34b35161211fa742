// Package cli implements the walletd command-line interface.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyltr/walletd/internal/config"
	"github.com/fyltr/walletd/internal/logging"
)

var (
	// rootFlags
	configPath string
	debugLog   bool
	logFormat  string
	outputJSON bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "walletd",
	Short: "Ledger health front-end with an object-storage wallet",
	Long: `walletd connects to a business-network ledger using an identity kept in an
object-storage wallet and serves a health check that pings the ledger.

Get started:
  walletd serve              Connect and serve GET / on $PORT (default 6001)
  walletd ping               Connect, ping once and print the result
  walletd status             Query a running walletd
  walletd wallet list        List wallet entries`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Optional YAML config file (environment overrides it)")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logging.FormatText), "Log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output in JSON format")

	rootCmd.AddCommand(
		serveCmd,
		pingCmd,
		statusCmd,
		walletCmd,
		versionCmd,
	)
}

// newLogger builds the process logger from the root flags.
func newLogger(w io.Writer) *slog.Logger {
	return logging.New(w, logging.Format(logFormat), debugLog)
}

// loadConfig resolves configuration from --config and the environment.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// httpClient is shared by the wallet and the ledger connection.
func httpClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.RequestTimeout}
}

func printSuccess(w io.Writer, msg string) {
	fmt.Fprintf(w, "  \033[32m✔\033[0m %s\n", msg)
}

func printInfo(w io.Writer, msg string) {
	fmt.Fprintf(w, "  \033[36m→\033[0m %s\n", msg)
}

func printHeader(w io.Writer, msg string) {
	fmt.Fprintf(w, "\n\033[1m%s\033[0m\n", msg)
}
