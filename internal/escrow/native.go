package escrow

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInsufficientFunds is returned when a native transfer exceeds the
// payer's balance.
var ErrInsufficientFunds = errors.New("escrow: insufficient native funds")

// NativeLedger is the in-process bank for the native payment asset. The
// value a bidder "attaches" to a native bid is debited here into the
// engine's escrow account before the bid is evaluated.
type NativeLedger struct {
	mu       sync.RWMutex
	balances map[string]uint64
}

// NewNativeLedger creates an empty native bank.
func NewNativeLedger() *NativeLedger {
	return &NativeLedger{balances: make(map[string]uint64)}
}

// Deposit credits freshly issued native value to an account. Test and
// faucet use only.
func (l *NativeLedger) Deposit(account string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] += amount
}

// BalanceOf returns the account's native balance.
func (l *NativeLedger) BalanceOf(account string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account]
}

// Transfer moves native value between accounts.
func (l *NativeLedger) Transfer(from, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balances[from]
	if bal < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientFunds, bal, amount)
	}
	l.balances[from] = bal - amount
	l.balances[to] += amount
	return nil
}
