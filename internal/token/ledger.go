// Package token is an in-process fungible-token ledger used as the payment
// rail for token-settled auctions. It mirrors the ERC-20 surface the engine
// consumes (transfer, approve, transferFrom, balanceOf) plus capped minting.
//
// The auction engine treats this ledger as an external collaborator: it never
// reaches into balances directly, only through the transfer capabilities.
package token

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrZeroSupplyCap is returned when the supply cap is zero.
	ErrZeroSupplyCap = errors.New("token: max supply must be greater than 0")

	// ErrSupplyCapExceeded is returned when a mint would push total supply
	// past the cap.
	ErrSupplyCapExceeded = errors.New("token: mint exceeds max supply")

	// ErrInsufficientBalance is returned when a transfer exceeds the
	// sender's balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")

	// ErrInsufficientAllowance is returned when transferFrom exceeds the
	// spender's approved allowance.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
)

// Ledger holds balances and allowances for one fungible token.
type Ledger struct {
	name   string
	symbol string
	cap    uint64

	mu         sync.RWMutex
	supply     uint64
	balances   map[string]uint64
	allowances map[string]map[string]uint64 // owner → spender → amount
}

// NewLedger creates a token with the given supply cap.
func NewLedger(name, symbol string, supplyCap uint64) (*Ledger, error) {
	if supplyCap == 0 {
		return nil, ErrZeroSupplyCap
	}
	return &Ledger{
		name:       name,
		symbol:     symbol,
		cap:        supplyCap,
		balances:   make(map[string]uint64),
		allowances: make(map[string]map[string]uint64),
	}, nil
}

func (l *Ledger) Name() string   { return l.name }
func (l *Ledger) Symbol() string { return l.symbol }
func (l *Ledger) Cap() uint64    { return l.cap }

// TotalSupply returns the number of tokens minted so far.
func (l *Ledger) TotalSupply() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply
}

// BalanceOf returns the balance of the given account.
func (l *Ledger) BalanceOf(account string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account]
}

// Allowance returns how much spender may still pull from owner.
func (l *Ledger) Allowance(owner, spender string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowances[owner][spender]
}

// Mint credits amount to the account, bounded by the supply cap.
func (l *Ledger) Mint(account string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount > l.cap-l.supply {
		return fmt.Errorf("%w: supply %d + mint %d > cap %d",
			ErrSupplyCapExceeded, l.supply, amount, l.cap)
	}
	l.supply += amount
	l.balances[account] += amount
	return nil
}

// Transfer moves amount from the caller's balance to the recipient.
func (l *Ledger) Transfer(from, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

// Approve sets spender's allowance over the owner's balance. Overwrites any
// prior allowance.
func (l *Ledger) Approve(owner, spender string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.allowances[owner]
	if !ok {
		m = make(map[string]uint64)
		l.allowances[owner] = m
	}
	m[spender] = amount
}

// TransferFrom moves amount from owner to recipient on behalf of spender,
// consuming the spender's allowance.
func (l *Ledger) TransferFrom(spender, owner, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowed := l.allowances[owner][spender]
	if allowed < amount {
		return fmt.Errorf("%w: approved %d, need %d", ErrInsufficientAllowance, allowed, amount)
	}
	if err := l.move(owner, to, amount); err != nil {
		return err
	}
	l.allowances[owner][spender] = allowed - amount
	return nil
}

// move requires l.mu held.
func (l *Ledger) move(from, to string, amount uint64) error {
	bal := l.balances[from]
	if bal < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, bal, amount)
	}
	l.balances[from] = bal - amount
	l.balances[to] += amount
	return nil
}
