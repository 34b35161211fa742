package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvConnectionProfile, "hlfv1")
	t.Setenv(EnvBusinessNetwork, "vehicle-network")
	t.Setenv(EnvUserID, "admin")
	t.Setenv(EnvUserSecret, "adminpw")
	t.Setenv(EnvWalletContainer, "wallet1")
}

func TestLoadFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvServices, `{"Object-Storage":[{"name":"Object-Storage-xy","label":"Object-Storage","credentials":{"userId":"u1"}}]}`)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "hlfv1", cfg.Ledger.ConnectionProfile)
	assert.Equal(t, "vehicle-network", cfg.Ledger.BusinessNetwork)
	assert.Equal(t, "admin", cfg.Ledger.UserID)
	assert.Equal(t, "adminpw", cfg.Ledger.UserSecret.Reveal())
	assert.Equal(t, "wallet1", cfg.Wallet.Container)
	assert.Equal(t, WalletObjectStore, cfg.Wallet.Type)
	assert.Equal(t, DefaultServicePattern, cfg.Wallet.ServicePattern)
	assert.Equal(t, DefaultWalletPath, cfg.Wallet.Path)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	require.Len(t, cfg.Services["Object-Storage"], 1)
	assert.Equal(t, "u1", cfg.Services["Object-Storage"][0].String("userId"))
}

func TestLoadFileThenEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvWalletContainer, "from-env")

	path := filepath.Join(t.TempDir(), "walletd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ledger:
  connection_profile: from-file
  profile_dir: /etc/walletd/profiles
wallet:
  container: from-file
  type: memory
metrics:
  enabled: true
request_timeout: 5s
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Environment wins over the file.
	assert.Equal(t, "hlfv1", cfg.Ledger.ConnectionProfile)
	assert.Equal(t, "from-env", cfg.Wallet.Container)
	// File wins over defaults.
	assert.Equal(t, "/etc/walletd/profiles", cfg.Ledger.ProfileDir)
	assert.Equal(t, WalletMemory, cfg.Wallet.Type)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "walletd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger: [unclosed"), 0600))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parsing")
}

func TestLoadBadServices(t *testing.T) {
	t.Setenv(EnvServices, "{not json")
	_, err := Load("")
	assert.ErrorContains(t, err, EnvServices)
}

func TestValidateCollectsAllMissing(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)

	for _, env := range []string{EnvConnectionProfile, EnvBusinessNetwork, EnvUserID, EnvUserSecret, EnvWalletContainer} {
		assert.Contains(t, err.Error(), env)
	}
}

func TestWalletPathFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvWalletType, WalletFile)
	t.Setenv(EnvWalletPath, "/var/lib/walletd/wallet.yaml")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/var/lib/walletd/wallet.yaml", cfg.Wallet.Path)
}

func TestDefaultWriteTimeoutExceedsRequestTimeout(t *testing.T) {
	cfg := Default()
	assert.Greater(t, cfg.Server.WriteTimeout, cfg.RequestTimeout)
}

func TestValidateWriteTimeout(t *testing.T) {
	setRequiredEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Server.WriteTimeout = cfg.RequestTimeout
	assert.ErrorContains(t, cfg.Validate(), "must exceed request_timeout")

	cfg.Server.WriteTimeout = 0
	assert.NoError(t, cfg.Validate(), "zero write timeout disables the deadline")
}

func TestValidateWalletType(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvWalletType, "floppy")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), `unknown wallet type "floppy"`)
}

func TestValidateServicePattern(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvServicePattern, "([")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.ErrorContains(t, cfg.Validate(), "invalid wallet service pattern")
}

func TestServiceBindingsFind(t *testing.T) {
	b, err := ParseServiceBindings(`{
		"cloudantNoSQLDB": [{"name": "db", "label": "cloudantNoSQLDB", "credentials": {}}],
		"Object-Storage": [{"name": "Object-Storage-wallet", "label": "Object-Storage", "credentials": {"password": "pw", "port": 443}}]
	}`)
	require.NoError(t, err)

	svc, ok := b.Find(regexp.MustCompile(DefaultServicePattern))
	require.True(t, ok)
	assert.Equal(t, "Object-Storage-wallet", svc.Name)
	assert.Equal(t, "pw", svc.String("password"))
	assert.Equal(t, "", svc.String("port"), "non-string values read as empty")
	assert.Equal(t, "", svc.String("missing"))

	_, ok = b.Find(regexp.MustCompile("^redis"))
	assert.False(t, ok)
}

func TestParseServiceBindingsEmpty(t *testing.T) {
	b, err := ParseServiceBindings("")
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestResolvePlatformLocal(t *testing.T) {
	t.Setenv(EnvApplication, "")
	t.Setenv(EnvPort, "")

	p, err := ResolvePlatform()
	require.NoError(t, err)
	assert.True(t, p.Local)
	assert.Equal(t, "localhost:6001", p.Addr())
	assert.Equal(t, "http://localhost:6001", p.URL)
}

func TestResolvePlatformCloud(t *testing.T) {
	t.Setenv(EnvApplication, `{"name":"walletd","application_uris":["walletd.example.net"]}`)
	t.Setenv(EnvPort, "8080")

	p, err := ResolvePlatform()
	require.NoError(t, err)
	assert.False(t, p.Local)
	assert.Equal(t, "0.0.0.0:8080", p.Addr())
	assert.Equal(t, "https://walletd.example.net", p.URL)
}

func TestResolvePlatformBadPort(t *testing.T) {
	t.Setenv(EnvApplication, "")
	t.Setenv(EnvPort, "eighty")

	_, err := ResolvePlatform()
	assert.ErrorContains(t, err, "invalid PORT")
}

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hlfv1.yaml"), []byte("url: http://gateway:3000/\ntimeout: 4s\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "json-profile.json"), []byte(`{"url":"https://gw.example.net","type":"gateway"}`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "no-url.yaml"), []byte("type: gateway\n"), 0600))

	p, err := LoadProfile(dir, "hlfv1")
	require.NoError(t, err)
	assert.Equal(t, "hlfv1", p.Name)
	assert.Equal(t, "gateway", p.Type)
	assert.Equal(t, "http://gateway:3000", p.URL)
	assert.Equal(t, 4*time.Second, p.Timeout)

	p, err = LoadProfile(dir, "json-profile")
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example.net", p.URL)

	_, err = LoadProfile(dir, "no-url")
	assert.ErrorContains(t, err, "url is required")

	_, err = LoadProfile(dir, "absent")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("url: ftp://gw\ntimeout: soon\n"), 0600))
	_, err = LoadProfile(dir, "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
	assert.Contains(t, err.Error(), "timeout")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "list.yaml"), []byte("- url: http://gw\n"), 0600))
	_, err = LoadProfile(dir, "list")
	assert.ErrorContains(t, err, "Invalid type")

	for _, bad := range []string{"", "..", "../etc/passwd", `a\b`} {
		_, err = LoadProfile(dir, bad)
		assert.True(t, err != nil && strings.Contains(err.Error(), "invalid connection profile name"), bad)
	}
}

func TestExampleProfileValid(t *testing.T) {
	p, err := LoadProfile(filepath.Join("..", "..", "profiles"), "example")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", p.URL)
	assert.Equal(t, 10*time.Second, p.Timeout)
}
