package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fyltr/walletd/internal/logging"
)

// expiryBuffer renews the token slightly before Keystone would reject it.
const expiryBuffer = 30 * time.Second

// session is an authenticated Keystone token and the storage endpoint it
// grants access to.
type session struct {
	token      string
	storageURL string
	expiresAt  time.Time
}

func (s *session) valid(now time.Time) bool {
	return s != nil && s.token != "" && (s.expiresAt.IsZero() || now.Before(s.expiresAt))
}

// sessionCache holds one session per client.
type sessionCache struct {
	mu      sync.Mutex
	current *session
}

type authRequest struct {
	Auth authBody `json:"auth"`
}

type authBody struct {
	Identity identity `json:"identity"`
	Scope    scope    `json:"scope"`
}

type identity struct {
	Methods  []string `json:"methods"`
	Password password `json:"password"`
}

type password struct {
	User user `json:"user"`
}

type user struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name,omitempty"`
	Password string  `json:"password"`
	Domain   *domain `json:"domain,omitempty"`
}

type domain struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

type scope struct {
	Project project `json:"project"`
}

type project struct {
	ID     string  `json:"id,omitempty"`
	Name   string  `json:"name,omitempty"`
	Domain *domain `json:"domain,omitempty"`
}

type authResponse struct {
	Token struct {
		ExpiresAt time.Time      `json:"expires_at"`
		Catalog   []catalogEntry `json:"catalog"`
	} `json:"token"`
}

type catalogEntry struct {
	Type      string     `json:"type"`
	Name      string     `json:"name"`
	Endpoints []endpoint `json:"endpoints"`
}

type endpoint struct {
	Interface string `json:"interface"`
	Region    string `json:"region"`
	RegionID  string `json:"region_id"`
	URL       string `json:"url"`
}

// session returns a valid session, authenticating when none is cached or
// the cached token has expired.
func (c *Client) session(ctx context.Context) (*session, error) {
	c.sessions.mu.Lock()
	defer c.sessions.mu.Unlock()

	if s := c.sessions.current; s.valid(c.now()) {
		return s, nil
	}

	s, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	c.sessions.current = s
	return s, nil
}

// invalidate drops the cached session so the next call re-authenticates.
func (c *Client) invalidate() {
	c.sessions.mu.Lock()
	c.sessions.current = nil
	c.sessions.mu.Unlock()
}

func (c *Client) authenticate(ctx context.Context) (*session, error) {
	payload, err := json.Marshal(c.authRequest())
	if err != nil {
		return nil, err
	}

	url := tokensURL(c.creds.AuthURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keystone authentication: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{
			Method:     http.MethodPost,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       logging.Redact(string(body), c.creds.Password),
		}
	}

	token := resp.Header.Get("X-Subject-Token")
	if token == "" {
		return nil, fmt.Errorf("keystone authentication: response has no X-Subject-Token header")
	}

	var ar authResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return nil, fmt.Errorf("parsing keystone token response: %w", err)
	}

	storageURL, err := c.storageEndpoint(ar.Token.Catalog)
	if err != nil {
		return nil, err
	}

	s := &session{token: token, storageURL: storageURL}
	if !ar.Token.ExpiresAt.IsZero() {
		s.expiresAt = ar.Token.ExpiresAt.Add(-expiryBuffer)
	}
	c.log.Debug("keystone token issued", "storage_url", storageURL, "expires_at", ar.Token.ExpiresAt)
	return s, nil
}

func (c *Client) authRequest() authRequest {
	u := user{ID: c.creds.UserID, Password: c.creds.Password.Reveal()}
	if u.ID == "" {
		u.Name = c.creds.Username
		u.Domain = c.domain()
	}

	p := project{ID: c.creds.ProjectID}
	if p.ID == "" {
		p.Name = c.creds.Project
		p.Domain = c.domain()
	}

	return authRequest{Auth: authBody{
		Identity: identity{Methods: []string{"password"}, Password: password{User: u}},
		Scope:    scope{Project: p},
	}}
}

func (c *Client) domain() *domain {
	switch {
	case c.creds.DomainID != "":
		return &domain{ID: c.creds.DomainID}
	case c.creds.DomainName != "":
		return &domain{Name: c.creds.DomainName}
	default:
		return &domain{ID: "default"}
	}
}

// storageEndpoint picks the public object-store endpoint, restricted to the
// configured region when one is set.
func (c *Client) storageEndpoint(catalog []catalogEntry) (string, error) {
	for _, entry := range catalog {
		if entry.Type != "object-store" {
			continue
		}
		for _, ep := range entry.Endpoints {
			if ep.Interface != "public" {
				continue
			}
			if c.creds.Region != "" && ep.Region != c.creds.Region && ep.RegionID != c.creds.Region {
				continue
			}
			return strings.TrimRight(ep.URL, "/"), nil
		}
	}
	if c.creds.Region != "" {
		return "", fmt.Errorf("no public object-store endpoint for region %q in keystone catalog", c.creds.Region)
	}
	return "", fmt.Errorf("no public object-store endpoint in keystone catalog")
}

// tokensURL accepts auth URLs with or without the /v3 suffix.
func tokensURL(authURL string) string {
	authURL = strings.TrimRight(authURL, "/")
	if !strings.HasSuffix(authURL, "/v3") {
		authURL += "/v3"
	}
	return authURL + "/auth/tokens"
}
