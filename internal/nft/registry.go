// Package nft is an in-process unique-asset registry used as the custody
// collaborator for asset-backed auctions. It mirrors the ERC-721 surface the
// engine consumes (ownerOf, approve, transferFrom) plus capped minting with
// URI storage and burning.
//
// Invariant: every live token has exactly one owner; ownership changes only
// through TransferFrom.
package nft

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrZeroSupplyCap is returned when the mint cap is zero.
	ErrZeroSupplyCap = errors.New("nft: max supply must be greater than 0")

	// ErrSupplyCapReached is returned when every token has been minted.
	ErrSupplyCapReached = errors.New("nft: max number of tokens minted")

	// ErrUnknownToken is returned for queries on tokens that were never
	// minted or have been burned.
	ErrUnknownToken = errors.New("nft: unknown token")

	// ErrNotOwner is returned when the caller does not own the token.
	ErrNotOwner = errors.New("nft: caller is not the token owner")

	// ErrNotAuthorized is returned when the caller is neither the owner
	// nor the approved transfer agent.
	ErrNotAuthorized = errors.New("nft: caller is not owner or approved agent")
)

// Registry holds ownership, approvals, and URIs for one collection.
type Registry struct {
	name string
	cap  uint64

	mu       sync.RWMutex
	nextID   uint64
	owners   map[uint64]string
	approved map[uint64]string
	uris     map[uint64]string
}

// NewRegistry creates a collection capped at supplyCap tokens.
func NewRegistry(name string, supplyCap uint64) (*Registry, error) {
	if supplyCap == 0 {
		return nil, ErrZeroSupplyCap
	}
	return &Registry{
		name:     name,
		cap:      supplyCap,
		owners:   make(map[uint64]string),
		approved: make(map[uint64]string),
		uris:     make(map[uint64]string),
	}, nil
}

func (r *Registry) Name() string { return r.name }
func (r *Registry) Cap() uint64  { return r.cap }

// Mint creates the next token for the given owner and returns its ID.
// Token IDs are sequential starting at 0. Burned IDs are not reused.
func (r *Registry) Mint(to, uri string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nextID >= r.cap {
		return 0, ErrSupplyCapReached
	}
	id := r.nextID
	r.nextID++
	r.owners[id] = to
	r.uris[id] = uri
	return id, nil
}

// OwnerOf returns the current owner of the token.
func (r *Registry) OwnerOf(tokenID uint64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.owners[tokenID]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownToken, tokenID)
	}
	return owner, nil
}

// TokenURI returns the metadata URI stored at mint time.
func (r *Registry) TokenURI(tokenID uint64) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	uri, ok := r.uris[tokenID]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownToken, tokenID)
	}
	return uri, nil
}

// Approve grants agent the right to transfer the token on the owner's
// behalf. Only the current owner may approve. An empty agent clears the
// approval.
func (r *Registry) Approve(caller string, agent string, tokenID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[tokenID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownToken, tokenID)
	}
	if caller != owner {
		return fmt.Errorf("%w: token %d", ErrNotOwner, tokenID)
	}
	if agent == "" {
		delete(r.approved, tokenID)
		return nil
	}
	r.approved[tokenID] = agent
	return nil
}

// Approved returns the approved transfer agent for the token, if any.
func (r *Registry) Approved(tokenID uint64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.approved[tokenID]
}

// TransferFrom moves the token from its owner to the recipient. The caller
// must be the owner or the approved agent. A transfer clears the approval.
func (r *Registry) TransferFrom(caller, from, to string, tokenID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[tokenID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownToken, tokenID)
	}
	if owner != from {
		return fmt.Errorf("%w: token %d", ErrNotOwner, tokenID)
	}
	if caller != owner && r.approved[tokenID] != caller {
		return fmt.Errorf("%w: token %d", ErrNotAuthorized, tokenID)
	}
	r.owners[tokenID] = to
	delete(r.approved, tokenID)
	return nil
}

// Burn destroys the token. Only the owner or the approved agent may burn.
func (r *Registry) Burn(caller string, tokenID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.owners[tokenID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownToken, tokenID)
	}
	if caller != owner && r.approved[tokenID] != caller {
		return fmt.Errorf("%w: token %d", ErrNotAuthorized, tokenID)
	}
	delete(r.owners, tokenID)
	delete(r.approved, tokenID)
	delete(r.uris, tokenID)
	return nil
}
