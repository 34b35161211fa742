package config

import (
	"fmt"
	"regexp"

	"github.com/hashicorp/go-multierror"
)

// Validate checks for missing or malformed values. It collects all
// problems rather than returning on the first failure.
func (c *Config) Validate() error {
	var result *multierror.Error

	required := []struct {
		env   string
		value string
	}{
		{EnvConnectionProfile, c.Ledger.ConnectionProfile},
		{EnvBusinessNetwork, c.Ledger.BusinessNetwork},
		{EnvUserID, c.Ledger.UserID},
		{EnvUserSecret, c.Ledger.UserSecret.Reveal()},
		{EnvWalletContainer, c.Wallet.Container},
	}
	for _, r := range required {
		if r.value == "" {
			result = multierror.Append(result, fmt.Errorf("%s is required", r.env))
		}
	}

	switch c.Wallet.Type {
	case WalletObjectStore, WalletMemory, WalletFile:
	default:
		result = multierror.Append(result, fmt.Errorf("unknown wallet type %q", c.Wallet.Type))
	}

	if _, err := regexp.Compile(c.Wallet.ServicePattern); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid wallet service pattern: %w", err))
	}

	if c.RequestTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("request_timeout must not be negative"))
	}
	if c.RequestTimeout > 0 && c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.RequestTimeout {
		result = multierror.Append(result, fmt.Errorf("server.write_timeout (%s) must exceed request_timeout (%s)",
			c.Server.WriteTimeout, c.RequestTimeout))
	}

	return result.ErrorOrNil()
}
