package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/fyltr/walletd/internal/metrics"
)

// instrumented records every call of the wrapped wallet.
type instrumented struct {
	next Wallet
	m    *metrics.Metrics
}

// Instrument wraps w so each operation is counted and timed in m.
// A nil m returns w unchanged.
func Instrument(w Wallet, m *metrics.Metrics) Wallet {
	if m == nil {
		return w
	}
	return &instrumented{next: w, m: m}
}

func (i *instrumented) Type() string { return i.next.Type() }

func (i *instrumented) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	names, err := i.next.List(ctx)
	i.record("list", start, err)
	return names, err
}

func (i *instrumented) Contains(ctx context.Context, name string) (bool, error) {
	start := time.Now()
	ok, err := i.next.Contains(ctx, name)
	i.record("contains", start, err)
	return ok, err
}

func (i *instrumented) Get(ctx context.Context, name string) (string, error) {
	start := time.Now()
	v, err := i.next.Get(ctx, name)
	i.record("get", start, err)
	return v, err
}

func (i *instrumented) Add(ctx context.Context, name, value string) error {
	start := time.Now()
	err := i.next.Add(ctx, name, value)
	i.record("add", start, err)
	return err
}

func (i *instrumented) Update(ctx context.Context, name, value string) error {
	start := time.Now()
	err := i.next.Update(ctx, name, value)
	i.record("update", start, err)
	return err
}

func (i *instrumented) Remove(ctx context.Context, name string) error {
	start := time.Now()
	err := i.next.Remove(ctx, name)
	i.record("remove", start, err)
	return err
}

func (i *instrumented) record(op string, start time.Time, err error) {
	i.m.RecordWalletOp(op, i.next.Type(), result(err), time.Since(start))
}

func result(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, ErrAlreadyExists):
		return metrics.ResultAlreadyExists
	case errors.Is(err, ErrInvalidName):
		return metrics.ResultInvalidName
	default:
		return metrics.ResultError
	}
}
