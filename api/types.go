// Package api defines the JSON bodies served by walletd.
package api

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// HostnameKey is the field the health endpoint adds to the ping result.
const HostnameKey = "hostname"

// HealthResponse is returned by GET /: the ledger ping result plus hostname.
type HealthResponse map[string]any

// WalletEntry is printed by `walletd wallet get --json`.
type WalletEntry struct {
	Name   string `json:"name"`
	Value  string `json:"value,omitempty"`
	Length int    `json:"length"`
}

// WalletList is printed by `walletd wallet list --json`.
type WalletList struct {
	Backend string   `json:"backend"`
	Names   []string `json:"names"`
}
