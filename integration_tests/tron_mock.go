package integration_tests

import (
	"context"
	"sync"
	"time"

	"github.com/quantdesk/usdthub/tron"
)

// MockOracle is an in-memory chain view. Tests script the transfers each
// deposit address has seen and the reconciler consumes them exactly as it
// would consume a TronGrid response.
type MockOracle struct {
	mu        sync.Mutex
	transfers map[string][]tron.Transfer
	errs      map[string]error
	delay     time.Duration
	calls     int
}

func newMockOracle() *MockOracle {
	return &MockOracle{
		transfers: map[string][]tron.Transfer{},
		errs:      map[string]error{},
	}
}

func (m *MockOracle) ListTransfers(ctx context.Context, address string) ([]tron.Transfer, error) {
	m.mu.Lock()
	delay := m.delay
	m.calls++
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[address]; ok {
		return nil, err
	}
	transfers := make([]tron.Transfer, len(m.transfers[address]))
	copy(transfers, m.transfers[address])
	return transfers, nil
}

// Fund records an incoming transfer at the address.
func (m *MockOracle) Fund(address string, transfer tron.Transfer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if transfer.Timestamp == 0 {
		transfer.Timestamp = time.Now().UnixMilli()
	}
	m.transfers[address] = append(m.transfers[address], transfer)
}

// SetConfirmations bumps the confirmation depth of a recorded transfer,
// simulating new blocks on top of it.
func (m *MockOracle) SetConfirmations(address, txID string, confirmations int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.transfers[address] {
		if m.transfers[address][i].TxID == txID {
			m.transfers[address][i].Confirmations = confirmations
		}
	}
}

// Clear drops every transfer recorded at the address, simulating a reorg
// that orphaned them.
func (m *MockOracle) Clear(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.transfers, address)
}

// FailWith makes lookups for the address return err.
func (m *MockOracle) FailWith(address string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, address)
		return
	}
	m.errs[address] = err
}

// SetDelay makes every lookup wait, or abort when the caller's context
// expires first.
func (m *MockOracle) SetDelay(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
}

func (m *MockOracle) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
