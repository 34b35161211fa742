package config

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
)

// ServiceBinding is one bound service instance from VCAP_SERVICES.
type ServiceBinding struct {
	Name        string         `json:"name"`
	Label       string         `json:"label"`
	Plan        string         `json:"plan,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Credentials map[string]any `json:"credentials"`
}

// ServiceBindings maps a service label to its bound instances.
type ServiceBindings map[string][]ServiceBinding

// ParseServiceBindings decodes the VCAP_SERVICES document. An empty string
// yields no bindings.
func ParseServiceBindings(raw string) (ServiceBindings, error) {
	if raw == "" {
		return ServiceBindings{}, nil
	}
	var b ServiceBindings
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", EnvServices, err)
	}
	return b, nil
}

// Find returns the first binding whose name matches pattern. Labels are
// visited in sorted order so the choice is stable across runs.
func (b ServiceBindings) Find(pattern *regexp.Regexp) (ServiceBinding, bool) {
	labels := make([]string, 0, len(b))
	for label := range b {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		for _, svc := range b[label] {
			if pattern.MatchString(svc.Name) {
				return svc, true
			}
		}
	}
	return ServiceBinding{}, false
}

// String returns the credential value under key, or "" when it is absent or
// not a string.
func (s ServiceBinding) String(key string) string {
	v, ok := s.Credentials[key].(string)
	if !ok {
		return ""
	}
	return v
}
