package wallet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/fyltr/walletd/internal/config"
)

const fileHeader = "# walletd file wallet, managed by walletd\n# DO NOT COMMIT\n"

// File keeps entries in a local YAML file, one mapping per container. It is
// meant for development outside a platform. Every operation re-reads the
// file, so edits made by other processes are picked up.
type File struct {
	path      string
	container string
	mu        sync.Mutex
}

var _ Wallet = (*File)(nil)

// NewFile returns a wallet backed by the YAML file at path.
func NewFile(path, container string) (*File, error) {
	if container == "" {
		return nil, ConfigError{Err: ErrContainerNotSpecified}
	}
	if path == "" {
		return nil, ConfigError{Err: errors.New("wallet file path is empty")}
	}
	return &File{path: path, container: container}, nil
}

func (f *File) Type() string { return config.WalletFile }

func (f *File) List(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(all[f.container]))
	for k := range all[f.container] {
		names = append(names, k)
	}
	sort.Strings(names)
	return names, nil
}

func (f *File) Contains(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.load()
	if err != nil {
		return false, err
	}
	_, ok := all[f.container][name]
	return ok, nil
}

func (f *File) Get(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.load()
	if err != nil {
		return "", err
	}
	v, ok := all[f.container][name]
	if !ok {
		return "", NotFoundError{Name: name}
	}
	return v, nil
}

func (f *File) Add(_ context.Context, name, value string) error {
	if err := checkName(name); err != nil {
		return err
	}
	return f.mutate(func(entries map[string]string) error {
		if _, ok := entries[name]; ok {
			return AlreadyExistsError{Name: name}
		}
		entries[name] = value
		return nil
	})
}

func (f *File) Update(_ context.Context, name, value string) error {
	return f.mutate(func(entries map[string]string) error {
		if _, ok := entries[name]; !ok {
			return NotFoundError{Name: name}
		}
		entries[name] = value
		return nil
	})
}

func (f *File) Remove(_ context.Context, name string) error {
	return f.mutate(func(entries map[string]string) error {
		if _, ok := entries[name]; !ok {
			return NotFoundError{Name: name}
		}
		delete(entries, name)
		return nil
	})
}

// mutate loads the file, applies fn to this container's entries and saves
// the result if fn succeeds.
func (f *File) mutate(fn func(entries map[string]string) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.load()
	if err != nil {
		return err
	}
	if all[f.container] == nil {
		all[f.container] = make(map[string]string)
	}
	if err := fn(all[f.container]); err != nil {
		return err
	}
	return f.save(all)
}

// load parses the wallet file. A missing file is an empty wallet.
func (f *File) load() (map[string]map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return make(map[string]map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading wallet file: %w", err)
	}

	all := make(map[string]map[string]string)
	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("parsing wallet file %s: %w", f.path, err)
	}
	return all, nil
}

// save writes the wallet file through a temporary file and a rename.
func (f *File) save(all map[string]map[string]string) error {
	data, err := yaml.Marshal(all)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".wallet-*.yaml")
	if err != nil {
		return fmt.Errorf("writing wallet file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.WriteString(fileHeader); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
