package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrProfileNotFound is returned when no file exists for a profile name.
var ErrProfileNotFound = errors.New("connection profile not found")

// profileExts are tried in order. yaml.v3 reads JSON as well.
var profileExts = []string{".yaml", ".yml", ".json"}

//go:embed profile.schema.json
var profileSchema string

var profileSchemaLoader = gojsonschema.NewStringLoader(profileSchema)

// Profile describes how to reach a ledger gateway.
type Profile struct {
	Name    string        `yaml:"name"`
	Type    string        `yaml:"type,omitempty"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LoadProfile reads <dir>/<name>.{yaml,yml,json}.
func LoadProfile(dir, name string) (*Profile, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid connection profile name %q", name)
	}

	for _, ext := range profileExts {
		path := filepath.Join(dir, name+ext)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}

		if err := validateProfile(data); err != nil {
			return nil, fmt.Errorf("connection profile %q: %w", name, err)
		}

		p := &Profile{Name: name, Type: "gateway"}
		if err := yaml.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		p.URL = strings.TrimRight(p.URL, "/")
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q in %s", ErrProfileNotFound, name, dir)
}

// validateProfile checks a YAML or JSON profile document against the
// embedded schema and reports every violation.
func validateProfile(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("profile must be a mapping with string keys: %w", err)
	}

	res, err := gojsonschema.Validate(profileSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validating: %w", err)
	}
	if res.Valid() {
		return nil
	}

	var result *multierror.Error
	for _, desc := range res.Errors() {
		result = multierror.Append(result, errors.New(desc.String()))
	}
	return result.ErrorOrNil()
}
