// Package ledger provides an in-memory balance ledger used in local mode and
// tests. Production deployments plug the real economy system in through the
// engine's Ledger interface.
package ledger

import (
	"context"
	"errors"
	"sync"
)

// ErrInsufficientBalance is returned by Withdraw when the identity cannot
// cover the amount.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Memory is a threadsafe in-memory ledger.
type Memory struct {
	mu       sync.Mutex
	balances map[string]float64
}

// NewMemory returns an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{balances: map[string]float64{}}
}

// SetBalance seeds an identity's balance.
func (m *Memory) SetBalance(identity string, amount float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[identity] = amount
}

// Balance returns the identity's current balance (zero when unknown).
func (m *Memory) Balance(_ context.Context, identity string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[identity], nil
}

// Withdraw atomically removes amount from the identity's balance.
func (m *Memory) Withdraw(_ context.Context, identity string, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[identity] < amount {
		return ErrInsufficientBalance
	}
	m.balances[identity] -= amount
	return nil
}

// Deposit atomically adds amount to the identity's balance.
func (m *Memory) Deposit(_ context.Context, identity string, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[identity] += amount
	return nil
}
