package wallet

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyltr/walletd/internal/config"
	"github.com/fyltr/walletd/internal/logging"
	"github.com/fyltr/walletd/internal/objectstore"
	"github.com/fyltr/walletd/internal/objectstore/objectstoretest"
)

// fakeClient is an in-memory ObjectClient keyed by object URL.
type fakeClient struct {
	mu      sync.Mutex
	base    string
	urls    []string
	objects map[string][]byte
	calls   []string
	listErr error
}

func newFakeClient(base string, urls ...string) *fakeClient {
	f := &fakeClient{base: base, objects: make(map[string][]byte)}
	for _, u := range urls {
		f.urls = append(f.urls, u)
		f.objects[u] = []byte("seed:" + u)
	}
	return f
}

func (f *fakeClient) ContainerURL(context.Context) (string, error) { return f.base, nil }

func (f *fakeClient) ListObjects(context.Context) ([]objectstore.Object, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "LIST")
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]objectstore.Object, 0, len(f.urls))
	for _, u := range f.urls {
		out = append(out, objectstore.Object{URL: u, Bytes: int64(len(f.objects[u]))})
	}
	return out, nil
}

func (f *fakeClient) GetObject(_ context.Context, u string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "GET "+u)
	data, ok := f.objects[u]
	if !ok {
		return nil, &objectstore.StatusError{Method: "GET", URL: u, StatusCode: 404}
	}
	return data, nil
}

func (f *fakeClient) PutObject(_ context.Context, u string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "PUT "+u)
	if _, ok := f.objects[u]; !ok {
		f.urls = append(f.urls, u)
	}
	f.objects[u] = data
	return nil
}

func (f *fakeClient) DeleteObject(_ context.Context, u string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "DELETE "+u)
	delete(f.objects, u)
	for i, v := range f.urls {
		if v == u {
			f.urls = append(f.urls[:i], f.urls[i+1:]...)
			break
		}
	}
	return nil
}

func testServices() config.ServiceBindings {
	return config.ServiceBindings{
		"Object-Storage": {{
			Name:  "Object-Storage-wallet",
			Label: "Object-Storage",
			Credentials: map[string]any{
				"auth_url":  "https://identity.example.net/v3",
				"userId":    "u1",
				"password":  "pw",
				"projectId": "p1",
				"region":    "dallas",
			},
		}},
	}
}

func newFakeStore(t *testing.T, client *fakeClient) *ObjectStore {
	t.Helper()
	s, err := NewObjectStore(ObjectStoreConfig{
		Container: "wallet1",
		Services:  testServices(),
		NewClient: func(objectstore.Credentials, string) ObjectClient { return client },
	})
	require.NoError(t, err)
	return s
}

// backends returns a fresh, empty wallet of every implementation.
func backends(t *testing.T) map[string]Wallet {
	t.Helper()

	srv := objectstoretest.NewServer("wallet1")
	t.Cleanup(srv.Close)
	httpStore, err := NewObjectStore(ObjectStoreConfig{
		Container:  "wallet1",
		Services:   config.ServiceBindings{"Object-Storage": {srv.Binding("Object-Storage-it")}},
		HTTPClient: srv.Client(),
		Logger:     logging.Discard(),
	})
	require.NoError(t, err)

	fileStore, err := NewFile(filepath.Join(t.TempDir(), "wallet.yaml"), "wallet1")
	require.NoError(t, err)

	return map[string]Wallet{
		"memory":           NewMemory(),
		"file":             fileStore,
		"objectstore-fake": newFakeStore(t, newFakeClient("https://store/wallet1")),
		"objectstore-http": httpStore,
	}
}

func TestWalletContract(t *testing.T) {
	for name, w := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			// Absent names.
			ok, err := w.Contains(ctx, "alice")
			require.NoError(t, err)
			assert.False(t, ok)
			_, err = w.Get(ctx, "alice")
			assert.ErrorIs(t, err, ErrNotFound)

			// Add then read back.
			require.NoError(t, w.Add(ctx, "alice", `{"cert":"A1"}`))
			ok, err = w.Contains(ctx, "alice")
			require.NoError(t, err)
			assert.True(t, ok)
			v, err := w.Get(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, `{"cert":"A1"}`, v)

			// Second Add fails and keeps the first value.
			err = w.Add(ctx, "alice", `{"cert":"A2"}`)
			assert.ErrorIs(t, err, ErrAlreadyExists)
			var exists AlreadyExistsError
			require.ErrorAs(t, err, &exists)
			assert.Equal(t, "alice", exists.Name)
			v, err = w.Get(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, `{"cert":"A1"}`, v)

			// Update replaces; Update of an absent name fails.
			require.NoError(t, w.Update(ctx, "alice", `{"cert":"A3"}`))
			v, err = w.Get(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, `{"cert":"A3"}`, v)
			assert.ErrorIs(t, w.Update(ctx, "bob", "x"), ErrNotFound)

			// Remove; Remove of an absent name fails.
			require.NoError(t, w.Remove(ctx, "alice"))
			ok, err = w.Contains(ctx, "alice")
			require.NoError(t, err)
			assert.False(t, ok)
			_, err = w.Get(ctx, "alice")
			assert.ErrorIs(t, err, ErrNotFound)
			err = w.Remove(ctx, "alice")
			assert.ErrorIs(t, err, ErrNotFound)
			var missing NotFoundError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, "alice", missing.Name)

			// The empty name is rejected and nothing is stored.
			err = w.Add(ctx, "", "secret")
			assert.ErrorIs(t, err, ErrInvalidName)
			var invalid InvalidNameError
			require.ErrorAs(t, err, &invalid)
			names, err := w.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, names)
			ok, err = w.Contains(ctx, "")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestWalletListReturnsAddedNames(t *testing.T) {
	for name, w := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, n := range []string{"c", "a", "b"} {
				require.NoError(t, w.Add(ctx, n, "v-"+n))
			}
			names, err := w.List(ctx)
			require.NoError(t, err)
			sort.Strings(names)
			assert.Equal(t, []string{"a", "b", "c"}, names)
		})
	}
}

func TestWalletReservedCharacters(t *testing.T) {
	for name, w := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := "admin@org.acme#1 2"
			require.NoError(t, w.Add(ctx, id, "card"))

			names, err := w.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{id}, names)

			v, err := w.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, "card", v)
		})
	}
}

func TestObjectStoreNamesFromListingURLs(t *testing.T) {
	s := newFakeStore(t, newFakeClient("https://store/wallet1", "https://store/wallet1/alice"))
	ctx := context.Background()

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, names)

	ok, err := s.Contains(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Contains(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestObjectStoreUpdateUsesListedURL(t *testing.T) {
	// The listing reports a different host than the container URL.
	client := newFakeClient("https://store/wallet1", "https://cdn.store/wallet1/alice")
	s := newFakeStore(t, client)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, "alice", "new"))
	require.NoError(t, s.Add(ctx, "bob", "b"))
	require.NoError(t, s.Remove(ctx, "alice"))

	assert.Equal(t, []string{
		"LIST", "PUT https://cdn.store/wallet1/alice",
		"LIST", "PUT https://store/wallet1/bob",
		"LIST", "DELETE https://cdn.store/wallet1/alice",
	}, client.calls)
}

func TestObjectStoreListsBeforeEveryOperation(t *testing.T) {
	client := newFakeClient("https://store/wallet1")
	s := newFakeStore(t, client)
	ctx := context.Background()

	require.NoError(t, s.Add(ctx, "a", "1"))
	_, _ = s.Get(ctx, "a")
	_, _ = s.Contains(ctx, "a")
	_, _ = s.List(ctx)

	lists := 0
	for _, c := range client.calls {
		if c == "LIST" {
			lists++
		}
	}
	assert.Equal(t, 4, lists)
}

func TestObjectStoreAddEmptyNameSendsNothing(t *testing.T) {
	client := newFakeClient("https://store/wallet1")
	s := newFakeStore(t, client)

	assert.ErrorIs(t, s.Add(context.Background(), "", "secret"), ErrInvalidName)
	assert.Empty(t, client.calls)
}

func TestObjectStoreTransportErrorPassesThrough(t *testing.T) {
	boom := &objectstore.StatusError{Method: "GET", URL: "https://store/wallet1", StatusCode: 503}
	client := newFakeClient("https://store/wallet1")
	client.listErr = boom
	s := newFakeStore(t, client)
	ctx := context.Background()

	_, err := s.List(ctx)
	assert.Same(t, boom, err)
	assert.Equal(t, boom, s.Add(ctx, "a", "1"))
	assert.Equal(t, boom, s.Update(ctx, "a", "1"))
	assert.Equal(t, boom, s.Remove(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.Equal(t, boom, err)
	_, err = s.Contains(ctx, "a")
	assert.Equal(t, boom, err)
}

func TestNewObjectStoreConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  ObjectStoreConfig
		want error
	}{
		{"no container", ObjectStoreConfig{Services: testServices()}, ErrContainerNotSpecified},
		{"no bindings", ObjectStoreConfig{Container: "wallet1"}, ErrCredentialsNotFound},
		{"pattern mismatch", ObjectStoreConfig{Container: "wallet1", Services: testServices(), ServicePattern: "^redis"}, ErrCredentialsNotFound},
		{"incomplete binding", ObjectStoreConfig{Container: "wallet1", Services: config.ServiceBindings{
			"Object-Storage": {{Name: "Object-Storage-x", Credentials: map[string]any{"userId": "u"}}},
		}}, ErrCredentialsNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewObjectStore(tt.cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var cfgErr ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestNewObjectStoreBadPattern(t *testing.T) {
	_, err := NewObjectStore(ObjectStoreConfig{Container: "wallet1", Services: testServices(), ServicePattern: "(["})
	var cfgErr ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "invalid service pattern")
}

func TestObjectStoreLogValueHidesPassword(t *testing.T) {
	s := newFakeStore(t, newFakeClient("https://store/wallet1"))
	v := s.LogValue().String()
	assert.Contains(t, v, "wallet1")
	assert.Contains(t, v, "dallas")
	assert.NotContains(t, v, "pw")
}

func TestEntryName(t *testing.T) {
	tests := map[string]string{
		"https://store/wallet1/alice":                "alice",
		"https://store/v1/AUTH_p/wallet1/a%20b":      "a b",
		"https://store/v1/AUTH_p/wallet1/x%2Fy":      "x/y",
		"https://store/v1/AUTH_p/wallet1/org%23acme": "org#acme",
		"alice":                                      "alice",
	}
	for in, want := range tests {
		assert.Equal(t, want, entryName(in), in)
	}
}

func TestObjectStoreListKeepsSlashNames(t *testing.T) {
	s := newFakeStore(t, newFakeClient("https://store/wallet1", "https://store/wallet1/dir%2Falice"))
	ctx := context.Background()

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dir/alice"}, names)

	ok, err := s.Contains(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFactory(t *testing.T) {
	cfg := config.Default()
	cfg.Wallet.Type = config.WalletMemory
	w, err := New(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", w.Type())

	cfg.Wallet.Type = config.WalletObjectStore
	cfg.Wallet.Container = "wallet1"
	cfg.Services = testServices()
	w, err = New(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "objectstore", w.Type())

	cfg.Wallet.Container = ""
	_, err = New(cfg, nil, nil)
	assert.ErrorIs(t, err, ErrContainerNotSpecified)

	cfg.Wallet.Type = config.WalletFile
	cfg.Wallet.Container = "wallet1"
	cfg.Wallet.Path = filepath.Join(t.TempDir(), "w.yaml")
	w, err = New(cfg, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "file", w.Type())

	cfg.Wallet.Type = "floppy"
	_, err = New(cfg, nil, nil)
	var cfgErr ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
