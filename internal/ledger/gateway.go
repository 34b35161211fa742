package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/fyltr/walletd/internal/config"
	"github.com/fyltr/walletd/internal/logging"
	"github.com/fyltr/walletd/internal/wallet"
)

// Request headers carrying the caller's identity.
const (
	HeaderIdentity    = "X-Ledger-Identity"
	HeaderCertificate = "X-Ledger-Certificate"
)

// Gateway is a Connection to a ledger gateway REST API.
type Gateway struct {
	wallet     wallet.Wallet
	profileDir string
	http       *http.Client
	log        *slog.Logger

	mu       sync.RWMutex
	profile  *config.Profile
	network  string
	identity *Identity
}

var _ Connection = (*Gateway)(nil)

// NewGateway returns an unconnected gateway connection that reads and
// writes identities through w and loads profiles from profileDir.
func NewGateway(w wallet.Wallet, profileDir string, httpClient *http.Client, logger *slog.Logger) *Gateway {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		wallet:     w,
		profileDir: profileDir,
		http:       httpClient,
		log:        logger,
	}
}

// Connect loads the profile, obtains the user's identity from the wallet
// (enrolling and storing it when missing) and pings the network once.
func (g *Gateway) Connect(ctx context.Context, opts ConnectOptions) error {
	if opts.Network == "" {
		return fmt.Errorf("business network is required")
	}
	if opts.UserID == "" {
		return fmt.Errorf("user id is required")
	}

	profile, err := config.LoadProfile(g.profileDir, opts.Profile)
	if err != nil {
		return err
	}
	if profile.Type != "gateway" {
		return fmt.Errorf("connection profile %q: unsupported type %q", profile.Name, profile.Type)
	}

	id, err := g.loadIdentity(ctx, profile, opts)
	if err != nil {
		return err
	}

	g.mu.Lock()
	g.profile = profile
	g.network = opts.Network
	g.identity = id
	g.mu.Unlock()

	if _, err := g.Ping(ctx); err != nil {
		g.reset()
		return fmt.Errorf("pinging business network %q: %w", opts.Network, err)
	}

	g.log.Info("connected to business network", "network", opts.Network, "profile", profile.Name, "user", opts.UserID)
	return nil
}

// Ping asks the gateway for network diagnostics.
func (g *Gateway) Ping(ctx context.Context) (PingResult, error) {
	g.mu.RLock()
	profile, network, id := g.profile, g.network, g.identity
	g.mu.RUnlock()
	if profile == nil {
		return nil, ErrNotConnected
	}

	target := profile.URL + "/api/networks/" + url.PathEscape(network) + "/ping"
	body, err := g.request(ctx, profile, http.MethodGet, target, id, nil)
	if err != nil {
		return nil, err
	}

	var result PingResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing ping response: %w", err)
	}
	if result == nil {
		result = PingResult{}
	}
	return result, nil
}

// Disconnect forgets the connection state. It never fails.
func (g *Gateway) Disconnect(context.Context) error {
	g.reset()
	return nil
}

func (g *Gateway) reset() {
	g.mu.Lock()
	g.profile, g.network, g.identity = nil, "", nil
	g.mu.Unlock()
}

// loadIdentity reads the user's identity from the wallet, or enrolls with
// the secret and adds the result to the wallet.
func (g *Gateway) loadIdentity(ctx context.Context, profile *config.Profile, opts ConnectOptions) (*Identity, error) {
	ok, err := g.wallet.Contains(ctx, opts.UserID)
	if err != nil {
		return nil, fmt.Errorf("checking wallet for %q: %w", opts.UserID, err)
	}

	if ok {
		g.log.Debug("identity loaded from wallet", "user", opts.UserID, "wallet", g.wallet.Type())
		return g.readIdentity(ctx, opts.UserID)
	}

	if opts.Secret == "" {
		return nil, fmt.Errorf("identity %q is not in the wallet and no enrollment secret was given", opts.UserID)
	}

	id, err := g.enroll(ctx, profile, opts.UserID, opts.Secret)
	if err != nil {
		return nil, fmt.Errorf("enrolling %q: %w", opts.UserID, err)
	}
	blob, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	if err := g.wallet.Add(ctx, opts.UserID, string(blob)); err != nil {
		if !errors.Is(err, wallet.ErrAlreadyExists) {
			return nil, fmt.Errorf("storing identity %q: %w", opts.UserID, err)
		}
		// Stored by another process after our Contains; the stored copy wins.
		g.log.Warn("identity added concurrently, using stored copy", "user", opts.UserID)
		return g.readIdentity(ctx, opts.UserID)
	}
	g.log.Info("identity enrolled and stored", "user", opts.UserID, "wallet", g.wallet.Type())
	return id, nil
}

func (g *Gateway) readIdentity(ctx context.Context, userID string) (*Identity, error) {
	blob, err := g.wallet.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading identity %q: %w", userID, err)
	}
	var id Identity
	if err := json.Unmarshal([]byte(blob), &id); err != nil {
		return nil, fmt.Errorf("decoding identity %q: %w", userID, err)
	}
	return &id, nil
}

func (g *Gateway) enroll(ctx context.Context, profile *config.Profile, userID, secret string) (*Identity, error) {
	payload, err := json.Marshal(map[string]string{
		"enrollmentID":     userID,
		"enrollmentSecret": secret,
	})
	if err != nil {
		return nil, err
	}

	body, err := g.request(ctx, profile, http.MethodPost, profile.URL+"/api/enroll", nil, payload)
	if err != nil {
		// Gateways may echo the request body in their error text.
		if msg := logging.Redact(err.Error(), logging.Secret(secret)); msg != err.Error() {
			return nil, errors.New(msg)
		}
		return nil, err
	}

	var id Identity
	if err := json.Unmarshal(body, &id); err != nil {
		return nil, fmt.Errorf("parsing enroll response: %w", err)
	}
	if id.Certificate == "" {
		return nil, fmt.Errorf("enroll response has no certificate")
	}
	if id.Name == "" {
		id.Name = userID
	}
	return &id, nil
}

// request sends a request to the gateway, applying the profile timeout.
func (g *Gateway) request(ctx context.Context, profile *config.Profile, method, target string, id *Identity, payload []byte) ([]byte, error) {
	if profile.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, profile.Timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id != nil {
		req.Header.Set(HeaderIdentity, id.Name)
		req.Header.Set(HeaderCertificate, base64.StdEncoding.EncodeToString([]byte(id.Certificate)))
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ledger gateway %s %s returned %d: %s", method, target, resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}
