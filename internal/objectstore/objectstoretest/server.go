// Package objectstoretest runs an in-process Keystone + Swift stand-in for
// tests of code built on the objectstore package.
package objectstoretest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fyltr/walletd/internal/config"
	"github.com/fyltr/walletd/internal/objectstore"
)

// Fixed identities accepted by the server.
const (
	UserID    = "user-1"
	Password  = "s3cret-pass"
	ProjectID = "proj-1"
	Region    = "dallas"
	Token     = "tok-123"
)

// Server fakes the subset of Keystone v3 and Swift used by objectstore.Client.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	containers map[string]map[string][]byte
	authCalls  int
	requests   []string
	expiresIn  time.Duration
}

// NewServer starts a server with the given containers created and empty.
func NewServer(containers ...string) *Server {
	s := &Server{
		containers: make(map[string]map[string][]byte),
		expiresIn:  time.Hour,
	}
	for _, c := range containers {
		s.containers[c] = make(map[string][]byte)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v3/auth/tokens", s.handleAuth)
	mux.HandleFunc("/v1/AUTH_"+ProjectID+"/", s.handleStorage)
	s.Server = httptest.NewServer(mux)
	return s
}

// SetTokenLifetime changes the expiry of tokens issued from now on.
func (s *Server) SetTokenLifetime(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expiresIn = d
}

// StorageURL is the object-store endpoint advertised in the catalog.
func (s *Server) StorageURL() string {
	return s.URL + "/v1/AUTH_" + ProjectID
}

// Credentials returns credentials the server accepts.
func (s *Server) Credentials() objectstore.Credentials {
	return objectstore.Credentials{
		AuthURL:   s.URL,
		UserID:    UserID,
		Password:  Password,
		ProjectID: ProjectID,
		Region:    Region,
	}
}

// Binding returns a VCAP_SERVICES style binding for the server.
func (s *Server) Binding(name string) config.ServiceBinding {
	return config.ServiceBinding{
		Name:  name,
		Label: "Object-Storage",
		Credentials: map[string]any{
			"auth_url":  s.URL + "/v3",
			"userId":    UserID,
			"password":  Password,
			"projectId": ProjectID,
			"region":    Region,
		},
	}
}

// Put stores an object directly, bypassing the HTTP API.
func (s *Server) Put(container, name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.containers[container] == nil {
		s.containers[container] = make(map[string][]byte)
	}
	s.containers[container][name] = data
}

// Object returns an object's content and whether it exists.
func (s *Server) Object(container, name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.containers[container][name]
	return data, ok
}

// AuthCalls returns how many tokens were issued.
func (s *Server) AuthCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authCalls
}

// Requests returns "METHOD path" for every storage request received.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Auth struct {
			Identity struct {
				Password struct {
					User struct {
						ID       string `json:"id"`
						Password string `json:"password"`
					} `json:"user"`
				} `json:"password"`
			} `json:"identity"`
			Scope struct {
				Project struct {
					ID string `json:"id"`
				} `json:"project"`
			} `json:"scope"`
		} `json:"auth"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	u := req.Auth.Identity.Password.User
	if u.ID != UserID || u.Password != Password || req.Auth.Scope.Project.ID != ProjectID {
		http.Error(w, `{"error":{"code":401,"message":"The request you have made requires authentication."}}`, http.StatusUnauthorized)
		return
	}

	s.mu.Lock()
	s.authCalls++
	expires := time.Now().Add(s.expiresIn).UTC()
	s.mu.Unlock()

	w.Header().Set("X-Subject-Token", Token)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"token": map[string]any{
			"expires_at": expires.Format(time.RFC3339),
			"catalog": []map[string]any{
				{"type": "identity", "name": "keystone", "endpoints": []map[string]any{
					{"interface": "public", "region": Region, "url": s.URL + "/v3"},
				}},
				{"type": "object-store", "name": "swift", "endpoints": []map[string]any{
					{"interface": "internal", "region": Region, "url": "http://internal.invalid"},
					{"interface": "public", "region": "london", "url": "http://london.invalid"},
					{"interface": "public", "region": Region, "url": s.StorageURL()},
				}},
			},
		},
	})
}

func (s *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Auth-Token") != Token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rest := strings.TrimPrefix(r.URL.EscapedPath(), "/v1/AUTH_"+ProjectID+"/")
	containerPart, objectPart, hasObject := strings.Cut(rest, "/")
	container, _ := url.PathUnescape(containerPart)
	object, _ := url.PathUnescape(objectPart)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r.Method+" "+r.URL.EscapedPath())

	objects, ok := s.containers[container]
	if !ok {
		http.Error(w, "container not found", http.StatusNotFound)
		return
	}

	if !hasObject || object == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.list(w, r, objects)
		return
	}

	switch r.Method {
	case http.MethodGet:
		data, ok := objects[object]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Write(data) //nolint:errcheck
	case http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		objects[object] = data
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		if _, ok := objects[object]; !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		delete(objects, object)
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) list(w http.ResponseWriter, r *http.Request, objects map[string][]byte) {
	names := make([]string, 0, len(objects))
	for name := range objects {
		names = append(names, name)
	}
	sort.Strings(names)

	marker := r.URL.Query().Get("marker")
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 10000
	}

	page := []map[string]any{}
	for _, name := range names {
		if marker != "" && name <= marker {
			continue
		}
		if len(page) == limit {
			break
		}
		page = append(page, map[string]any{
			"name":          name,
			"bytes":         len(objects[name]),
			"content_type":  "application/octet-stream",
			"hash":          "d41d8cd98f00b204e9800998ecf8427e",
			"last_modified": "2026-01-02T03:04:05.000000",
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(page) //nolint:errcheck
}
