package wallet

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fyltr/walletd/internal/config"
)

// New creates the wallet selected by cfg.Wallet.Type.
func New(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (Wallet, error) {
	switch cfg.Wallet.Type {
	case "", config.WalletObjectStore:
		s, err := NewObjectStore(ObjectStoreConfig{
			Container:      cfg.Wallet.Container,
			Services:       cfg.Services,
			ServicePattern: cfg.Wallet.ServicePattern,
			HTTPClient:     httpClient,
			Logger:         logger,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.WalletMemory:
		return NewMemory(), nil
	case config.WalletFile:
		f, err := NewFile(cfg.Wallet.Path, cfg.Wallet.Container)
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		return nil, ConfigError{Err: fmt.Errorf("unknown wallet type %q", cfg.Wallet.Type)}
	}
}
