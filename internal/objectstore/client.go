package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

// pageLimit is the number of objects requested per listing page.
const pageLimit = 1000

// Object is one entry of a container listing.
type Object struct {
	Name         string
	URL          string // fully qualified object URL
	Bytes        int64
	ContentType  string
	Hash         string
	LastModified string
}

// Client talks to a single Swift container.
type Client struct {
	creds     Credentials
	container string
	http      *http.Client
	log       *slog.Logger
	sessions  sessionCache
	now       func() time.Time
}

// New returns a client bound to creds and container. A nil httpClient uses
// http.DefaultClient; a nil logger uses slog.Default().
func New(creds Credentials, container string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		creds:     creds,
		container: container,
		http:      httpClient,
		log:       logger,
		now:       time.Now,
	}
}

// ContainerURL returns <storage-endpoint>/<container>.
func (c *Client) ContainerURL(ctx context.Context) (string, error) {
	s, err := c.session(ctx)
	if err != nil {
		return "", err
	}
	return s.storageURL + "/" + url.PathEscape(c.container), nil
}

type listing struct {
	Name         string `json:"name"`
	Bytes        int64  `json:"bytes"`
	ContentType  string `json:"content_type"`
	Hash         string `json:"hash"`
	LastModified string `json:"last_modified"`
}

// ListObjects returns every object in the container, following marker
// pagination until an empty page.
func (c *Client) ListObjects(ctx context.Context) ([]Object, error) {
	base, err := c.ContainerURL(ctx)
	if err != nil {
		return nil, err
	}

	var objects []Object
	marker := ""
	for {
		q := url.Values{}
		q.Set("format", "json")
		q.Set("limit", fmt.Sprint(pageLimit))
		if marker != "" {
			q.Set("marker", marker)
		}

		body, err := c.do(ctx, http.MethodGet, base+"?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}

		if len(bytes.TrimSpace(body)) == 0 {
			return objects, nil
		}
		var page []listing
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("parsing container listing: %w", err)
		}
		if len(page) == 0 {
			return objects, nil
		}

		for _, l := range page {
			objects = append(objects, Object{
				Name:         l.Name,
				URL:          base + "/" + url.PathEscape(l.Name),
				Bytes:        l.Bytes,
				ContentType:  l.ContentType,
				Hash:         l.Hash,
				LastModified: l.LastModified,
			})
		}
		if len(page) < pageLimit {
			return objects, nil
		}
		marker = page[len(page)-1].Name
	}
}

// GetObject fetches the raw content at objectURL.
func (c *Client) GetObject(ctx context.Context, objectURL string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, objectURL, nil)
}

// PutObject uploads data to objectURL, replacing any existing content.
func (c *Client) PutObject(ctx context.Context, objectURL string, data []byte) error {
	_, err := c.do(ctx, http.MethodPut, objectURL, data)
	return err
}

// DeleteObject removes the object at objectURL.
func (c *Client) DeleteObject(ctx context.Context, objectURL string) error {
	_, err := c.do(ctx, http.MethodDelete, objectURL, nil)
	return err
}

// do sends an authenticated request and returns the response body.
func (c *Client) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	s, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Auth-Token", s.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	c.log.Debug("object store request", "method", method, "url", target, "status", resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized {
		c.invalidate()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Method: method, URL: target, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return data, nil
}
