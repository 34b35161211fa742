package wallet

import (
	"context"
	"sync"

	"github.com/fyltr/walletd/internal/config"
)

// Memory is a process-local wallet. Entries are lost on exit.
type Memory struct {
	mu      sync.Mutex
	names   []string // insertion order
	entries map[string]string
}

var _ Wallet = (*Memory)(nil)

// NewMemory returns an empty in-memory wallet.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

func (m *Memory) Type() string { return config.WalletMemory }

func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.names...), nil
}

func (m *Memory) Contains(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[name]
	return ok, nil
}

func (m *Memory) Get(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[name]
	if !ok {
		return "", NotFoundError{Name: name}
	}
	return v, nil
}

func (m *Memory) Add(_ context.Context, name, value string) error {
	if err := checkName(name); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[name]; ok {
		return AlreadyExistsError{Name: name}
	}
	m.entries[name] = value
	m.names = append(m.names, name)
	return nil
}

func (m *Memory) Update(_ context.Context, name, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[name]; !ok {
		return NotFoundError{Name: name}
	}
	m.entries[name] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[name]; !ok {
		return NotFoundError{Name: name}
	}
	delete(m.entries, name)
	for i, n := range m.names {
		if n == name {
			m.names = append(m.names[:i], m.names[i+1:]...)
			break
		}
	}
	return nil
}
