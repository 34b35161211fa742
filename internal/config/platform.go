package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// DefaultPort is used when neither PORT nor the platform supply one.
const DefaultPort = 6001

// Platform is where the HTTP listener binds and the URL it is reachable at.
type Platform struct {
	Bind  string
	Port  int
	URL   string
	Local bool // true when not running under a platform (no VCAP_APPLICATION)
}

// Addr returns the host:port the listener should bind.
func (p Platform) Addr() string {
	return fmt.Sprintf("%s:%d", p.Bind, p.Port)
}

type application struct {
	Name string   `json:"name"`
	URIs []string `json:"application_uris"`
	Port int      `json:"port,omitempty"`
}

// ResolvePlatform reads VCAP_APPLICATION and PORT. Outside a platform it
// binds localhost on PORT or DefaultPort.
func ResolvePlatform() (Platform, error) {
	port := DefaultPort
	if v := os.Getenv(EnvPort); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return Platform{}, fmt.Errorf("invalid %s %q", EnvPort, v)
		}
		port = p
	}

	raw := os.Getenv(EnvApplication)
	if raw == "" {
		return Platform{
			Bind:  "localhost",
			Port:  port,
			URL:   fmt.Sprintf("http://localhost:%d", port),
			Local: true,
		}, nil
	}

	var app application
	if err := json.Unmarshal([]byte(raw), &app); err != nil {
		return Platform{}, fmt.Errorf("parsing %s: %w", EnvApplication, err)
	}
	if os.Getenv(EnvPort) == "" && app.Port != 0 {
		port = app.Port
	}

	p := Platform{Bind: "0.0.0.0", Port: port}
	if len(app.URIs) > 0 {
		p.URL = "https://" + app.URIs[0]
	} else {
		p.URL = fmt.Sprintf("http://0.0.0.0:%d", port)
	}
	return p, nil
}
