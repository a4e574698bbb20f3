package token

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrInsufficientBalance mirrors the reference test-token contract's
// "insufficient balance, has X but needs Y" panic — translated to a Go
// error since nothing downstream of a token transfer should ever recover
// from a panic, but the failure is exactly the same un-catchable-by-the-core
// host abort the spec describes.
var ErrInsufficientBalance = errors.New("token: insufficient balance")

// Mock is an in-memory token used by tests and the cmd demo, grounded on the
// reference Soroban test-token contract: balances keyed by address, transfer
// debits the sender and credits the receiver after checking funds. Unlike
// the Soroban original it has no require_auth call of its own — the market
// façade is responsible for calling the Authorizer collaborator before it
// ever reaches a token transfer.
type Mock struct {
	mu       sync.Mutex
	balances map[Address]int64
}

func NewMock() *Mock {
	return &Mock{balances: make(map[Address]int64)}
}

// Fund credits amount to an address's balance, adding to whatever it already
// holds; used only by test setup, never by the market façade itself.
func (m *Mock) Fund(addr Address, amount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[addr] += amount
}

func (m *Mock) Balance(_ context.Context, id Address) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[id]
}

func (m *Mock) Transfer(_ context.Context, from, to Address, amount int64) error {
	if amount < 0 {
		return errors.New("token: transfer amount must be non-negative")
	}
	if amount == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balances[from] < amount {
		return errors.Wrapf(ErrInsufficientBalance, "has %d but needs %d", m.balances[from], amount)
	}

	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}

var _ Client = (*Mock)(nil)
