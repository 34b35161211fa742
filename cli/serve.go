package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/fyltr/walletd/internal/config"
	"github.com/fyltr/walletd/internal/ledger"
	"github.com/fyltr/walletd/internal/metrics"
	"github.com/fyltr/walletd/internal/server"
	"github.com/fyltr/walletd/internal/wallet"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to the ledger and serve the health endpoint",
	Long: `Connect to the business network using the identity stored in the wallet
(enrolling and storing it on first use), then serve GET / until SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd.ErrOrStderr())
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	platform, err := config.ResolvePlatform()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	conn, err := connect(ctx, cfg, m, logger)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := conn.Disconnect(dctx); err != nil {
			logger.Warn("disconnect failed", "error", err)
		}
	}()

	srv, err := server.New(cfg, conn, m, reg, logger)
	if err != nil {
		return err
	}
	return srv.Start(ctx, platform.Addr(), platform.URL)
}

// connect builds the wallet and the gateway connection, then connects.
// A wallet configuration error is returned before any network traffic.
func connect(ctx context.Context, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*ledger.Gateway, error) {
	hc := httpClient(cfg)

	w, err := wallet.New(cfg, hc, logger)
	if err != nil {
		return nil, fmt.Errorf("creating wallet: %w", err)
	}
	logger.Info("wallet ready", "type", w.Type())
	if lv, ok := w.(slog.LogValuer); ok {
		logger.Debug("wallet settings", "wallet", lv)
	}

	gw := ledger.NewGateway(wallet.Instrument(w, m), cfg.Ledger.ProfileDir, hc, logger)
	err = gw.Connect(ctx, ledger.ConnectOptions{
		Profile: cfg.Ledger.ConnectionProfile,
		Network: cfg.Ledger.BusinessNetwork,
		UserID:  cfg.Ledger.UserID,
		Secret:  cfg.Ledger.UserSecret.Reveal(),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.Ledger.BusinessNetwork, err)
	}
	logger.Info("connected", "profile", cfg.Ledger.ConnectionProfile, "network", cfg.Ledger.BusinessNetwork, "user", cfg.Ledger.UserID)
	return gw, nil
}
