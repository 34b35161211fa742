// Package ledger connects to a business network through a ledger gateway,
// using a Wallet as the store of the connecting user's identity.
package ledger

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by Ping before Connect succeeds or after
// Disconnect.
var ErrNotConnected = errors.New("ledger connection is not established")

// PingResult is the diagnostic document returned by a ping.
type PingResult map[string]any

// ConnectOptions identify the network and the user connecting to it.
type ConnectOptions struct {
	Profile string // connection profile name
	Network string // business network identifier
	UserID  string
	Secret  string // enrollment secret, used only when the wallet has no identity
}

// Connection is a business-network connection.
type Connection interface {
	Connect(ctx context.Context, opts ConnectOptions) error
	Ping(ctx context.Context) (PingResult, error)
	Disconnect(ctx context.Context) error
}

// Identity is the credential blob kept in the wallet under the user id.
type Identity struct {
	Name        string `json:"name"`
	Certificate string `json:"certificate"`
	PrivateKey  string `json:"privateKey"`
}
