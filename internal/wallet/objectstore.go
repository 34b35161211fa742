package wallet

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"regexp"

	"github.com/fyltr/walletd/internal/config"
	"github.com/fyltr/walletd/internal/objectstore"
)

// ObjectClient is the object-storage surface the adapter needs.
// *objectstore.Client implements it.
type ObjectClient interface {
	ContainerURL(ctx context.Context) (string, error)
	ListObjects(ctx context.Context) ([]objectstore.Object, error)
	GetObject(ctx context.Context, objectURL string) ([]byte, error)
	PutObject(ctx context.Context, objectURL string, data []byte) error
	DeleteObject(ctx context.Context, objectURL string) error
}

// ObjectStoreConfig configures NewObjectStore.
type ObjectStoreConfig struct {
	// Container names the backing container. Required.
	Container string

	// Services are the bindings searched for object-storage credentials.
	Services config.ServiceBindings

	// ServicePattern matches the binding name. Defaults to
	// config.DefaultServicePattern.
	ServicePattern string

	// HTTPClient is passed to the default client. Optional.
	HTTPClient *http.Client

	// Logger is passed to the default client. Optional.
	Logger *slog.Logger

	// NewClient builds the object client. Defaults to objectstore.New.
	NewClient func(creds objectstore.Credentials, container string) ObjectClient
}

// ObjectStore keeps each entry as one object in a container. It caches
// nothing: every operation lists the container first, so it never serves
// stale names but is not atomic against concurrent writers.
type ObjectStore struct {
	container string
	creds     objectstore.Credentials
	client    ObjectClient
}

var _ Wallet = (*ObjectStore)(nil)

// NewObjectStore resolves credentials from the matching service binding and
// returns a wallet bound to cfg.Container.
func NewObjectStore(cfg ObjectStoreConfig) (*ObjectStore, error) {
	if cfg.Container == "" {
		return nil, ConfigError{Err: ErrContainerNotSpecified}
	}

	pattern := cfg.ServicePattern
	if pattern == "" {
		pattern = config.DefaultServicePattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, ConfigError{Err: err, Details: "invalid service pattern"}
	}

	svc, ok := cfg.Services.Find(re)
	if !ok {
		return nil, ConfigError{Err: ErrCredentialsNotFound, Details: "no service binding matches " + pattern}
	}
	creds, err := objectstore.CredentialsFromBinding(svc)
	if err != nil {
		return nil, ConfigError{Err: ErrCredentialsNotFound, Details: err.Error()}
	}

	newClient := cfg.NewClient
	if newClient == nil {
		newClient = func(c objectstore.Credentials, container string) ObjectClient {
			return objectstore.New(c, container, cfg.HTTPClient, cfg.Logger)
		}
	}

	return &ObjectStore{
		container: cfg.Container,
		creds:     creds,
		client:    newClient(creds, cfg.Container),
	}, nil
}

func (s *ObjectStore) Type() string { return config.WalletObjectStore }

// LogValue implements slog.LogValuer. The password is never included.
func (s *ObjectStore) LogValue() slog.Value {
	user := s.creds.UserID
	if user == "" {
		user = s.creds.Username
	}
	return slog.GroupValue(
		slog.String("type", s.Type()),
		slog.String("container", s.container),
		slog.String("auth_url", s.creds.AuthURL),
		slog.String("region", s.creds.Region),
		slog.String("user", user),
	)
}

// List returns the unescaped last path segment of each object URL. Swift
// escapes "/" in listed names, so an object "dir/alice" is listed as "dir/alice".
func (s *ObjectStore) List(ctx context.Context) ([]string, error) {
	objects, err := s.client.ListObjects(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(objects))
	for _, o := range objects {
		names = append(names, entryName(o.URL))
	}
	return names, nil
}

func (s *ObjectStore) Contains(ctx context.Context, name string) (bool, error) {
	_, ok, err := s.find(ctx, name)
	return ok, err
}

func (s *ObjectStore) Get(ctx context.Context, name string) (string, error) {
	obj, ok, err := s.find(ctx, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", NotFoundError{Name: name}
	}
	data, err := s.client.GetObject(ctx, obj.URL)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *ObjectStore) Add(ctx context.Context, name, value string) error {
	if err := checkName(name); err != nil {
		return err
	}
	_, ok, err := s.find(ctx, name)
	if err != nil {
		return err
	}
	if ok {
		return AlreadyExistsError{Name: name}
	}
	base, err := s.client.ContainerURL(ctx)
	if err != nil {
		return err
	}
	return s.client.PutObject(ctx, base+"/"+url.PathEscape(name), []byte(value))
}

// Update writes to the URL the listing returned for name rather than
// rebuilding it from the container URL.
func (s *ObjectStore) Update(ctx context.Context, name, value string) error {
	obj, ok, err := s.find(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return NotFoundError{Name: name}
	}
	return s.client.PutObject(ctx, obj.URL, []byte(value))
}

func (s *ObjectStore) Remove(ctx context.Context, name string) error {
	obj, ok, err := s.find(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		return NotFoundError{Name: name}
	}
	return s.client.DeleteObject(ctx, obj.URL)
}

// find lists the container and returns the object whose name is name.
func (s *ObjectStore) find(ctx context.Context, name string) (objectstore.Object, bool, error) {
	objects, err := s.client.ListObjects(ctx)
	if err != nil {
		return objectstore.Object{}, false, err
	}
	for _, o := range objects {
		if entryName(o.URL) == name {
			return o, true, nil
		}
	}
	return objectstore.Object{}, false, nil
}

// entryName is the unescaped last path segment of an object URL.
// "https://store/wallet1/alice" → "alice".
func entryName(objectURL string) string {
	p := objectURL
	if u, err := url.Parse(objectURL); err == nil {
		p = u.EscapedPath()
	}
	base := path.Base(p)
	if name, err := url.PathUnescape(base); err == nil {
		return name
	}
	return base
}
