// Package wallet stores named credential blobs.
//
// Every implementation honours the same contract: names are unique, Add
// fails when the name is already present, and Get, Update and Remove fail
// when it is absent.
package wallet

import (
	"context"
	"errors"
	"fmt"
)

// Wallet is the credential-store capability set used by the ledger
// connection and the CLI.
type Wallet interface {
	// List returns every entry name in backend order.
	List(ctx context.Context) ([]string, error)

	// Contains reports whether an entry named name exists.
	Contains(ctx context.Context, name string) (bool, error)

	// Get returns the value stored under name.
	Get(ctx context.Context, name string) (string, error)

	// Add stores a new entry. It fails if name is already present.
	Add(ctx context.Context, name, value string) error

	// Update replaces the value of an existing entry.
	Update(ctx context.Context, name, value string) error

	// Remove deletes an existing entry.
	Remove(ctx context.Context, name string) error

	// Type returns the backend type name: "objectstore", "memory" or "file".
	Type() string
}

var (
	// ErrNotFound matches every NotFoundError.
	ErrNotFound = errors.New("wallet entry does not exist")

	// ErrAlreadyExists matches every AlreadyExistsError.
	ErrAlreadyExists = errors.New("wallet entry already exists")

	// ErrInvalidName matches every InvalidNameError.
	ErrInvalidName = errors.New("invalid wallet entry name")

	// ErrContainerNotSpecified is returned when no container name is configured.
	ErrContainerNotSpecified = errors.New("container not specified")

	// ErrCredentialsNotFound is returned when no service binding supplies
	// object-storage credentials.
	ErrCredentialsNotFound = errors.New("object storage credentials not found")
)

// NotFoundError reports a name absent from the wallet.
type NotFoundError struct {
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("wallet entry %q does not exist", e.Name)
}

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AlreadyExistsError reports an Add of a name that is already present.
type AlreadyExistsError struct {
	Name string
}

func (e AlreadyExistsError) Error() string {
	return fmt.Sprintf("wallet entry %q already exists", e.Name)
}

func (e AlreadyExistsError) Is(target error) bool { return target == ErrAlreadyExists }

// InvalidNameError reports a name no backend can store, such as "".
type InvalidNameError struct {
	Name string
}

func (e InvalidNameError) Error() string {
	return fmt.Sprintf("invalid wallet entry name %q", e.Name)
}

func (e InvalidNameError) Is(target error) bool { return target == ErrInvalidName }

// checkName rejects names that cannot address an entry. An empty name would
// resolve to the container URL itself in the object store.
func checkName(name string) error {
	if name == "" {
		return InvalidNameError{Name: name}
	}
	return nil
}

// ConfigError reports a wallet that cannot be constructed.
type ConfigError struct {
	Err     error
	Details string
}

func (e ConfigError) Error() string {
	if e.Details == "" {
		return "wallet configuration error: " + e.Err.Error()
	}
	return "wallet configuration error: " + e.Err.Error() + ": " + e.Details
}

func (e ConfigError) Unwrap() error { return e.Err }
