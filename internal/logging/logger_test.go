package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretNeverPrints(t *testing.T) {
	s := Secret("hunter2-password")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%#v", s))
	assert.Equal(t, "hunter2-password", s.Reveal())

	data, err := json.Marshal(map[string]Secret{"password": s})
	require.NoError(t, err)
	assert.JSONEq(t, `{"password":"[REDACTED]"}`, string(data))
}

func TestSecretInLogRecord(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, FormatJSON, false)

	log.Info("login", "password", Secret("hunter2-password"))

	assert.NotContains(t, buf.String(), "hunter2")
	assert.Contains(t, buf.String(), `"password":"[REDACTED]"`)
}

func TestDebugLevel(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, FormatText, false).Debug("hidden")
	assert.Empty(t, buf.String())

	New(&buf, FormatText, true).Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestRedact(t *testing.T) {
	tests := []struct {
		in      string
		secrets []Secret
		want    string
	}{
		{"token=abcdef123", []Secret{"abcdef123"}, "token=[REDACTED]"},
		{"short=abc", []Secret{"abc"}, "short=abc"},
		{"none here", nil, "none here"},
		{"a=s3cret b=s3cret", []Secret{"s3cret"}, "a=[REDACTED] b=[REDACTED]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Redact(tt.in, tt.secrets...), tt.in)
	}
}
