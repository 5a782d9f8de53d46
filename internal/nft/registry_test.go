package nft

import (
	"errors"
	"testing"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry("MintNFT", 10)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	return r
}

func TestNewRegistry_ZeroCap(t *testing.T) {
	if _, err := NewRegistry("MintNFT", 0); !errors.Is(err, ErrZeroSupplyCap) {
		t.Errorf("expected ErrZeroSupplyCap, got %v", err)
	}
}

func TestMint_SequentialUpToCap(t *testing.T) {
	r := newTestRegistry(t)

	for i := uint64(0); i < 10; i++ {
		id, err := r.Mint("seller", "https://example.com/nft")
		if err != nil {
			t.Fatalf("mint %d failed: %v", i, err)
		}
		if id != i {
			t.Errorf("expected sequential id %d, got %d", i, id)
		}
	}
	if _, err := r.Mint("seller", ""); !errors.Is(err, ErrSupplyCapReached) {
		t.Errorf("expected ErrSupplyCapReached, got %v", err)
	}
}

func TestOwnerOfAndURI(t *testing.T) {
	r := newTestRegistry(t)
	id, _ := r.Mint("seller", "https://example.com/nft")

	owner, err := r.OwnerOf(id)
	if err != nil {
		t.Fatalf("OwnerOf failed: %v", err)
	}
	if owner != "seller" {
		t.Errorf("expected owner seller, got %s", owner)
	}
	uri, err := r.TokenURI(id)
	if err != nil {
		t.Fatalf("TokenURI failed: %v", err)
	}
	if uri != "https://example.com/nft" {
		t.Errorf("unexpected uri %s", uri)
	}

	if _, err := r.OwnerOf(99); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("expected ErrUnknownToken, got %v", err)
	}
}

func TestApproveAndTransferFrom(t *testing.T) {
	r := newTestRegistry(t)
	id, _ := r.Mint("seller", "")

	// Only the owner may approve.
	if err := r.Approve("mallory", "engine", id); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
	if err := r.Approve("seller", "engine", id); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if got := r.Approved(id); got != "engine" {
		t.Errorf("expected approved agent engine, got %q", got)
	}

	// Unapproved third party cannot transfer.
	if err := r.TransferFrom("mallory", "seller", "mallory", id); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}

	// Approved agent moves it; approval is cleared after transfer.
	if err := r.TransferFrom("engine", "seller", "winner", id); err != nil {
		t.Fatalf("transferFrom failed: %v", err)
	}
	owner, _ := r.OwnerOf(id)
	if owner != "winner" {
		t.Errorf("expected owner winner, got %s", owner)
	}
	if got := r.Approved(id); got != "" {
		t.Errorf("approval should be cleared, got %q", got)
	}
}

func TestTransferFrom_WrongFrom(t *testing.T) {
	r := newTestRegistry(t)
	id, _ := r.Mint("seller", "")

	if err := r.TransferFrom("seller", "bob", "carol", id); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner for mismatched from, got %v", err)
	}
}

func TestBurn(t *testing.T) {
	r := newTestRegistry(t)
	id, _ := r.Mint("seller", "uri")

	if err := r.Burn("stranger", id); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}
	if err := r.Burn("seller", id); err != nil {
		t.Fatalf("burn failed: %v", err)
	}
	if _, err := r.OwnerOf(id); !errors.Is(err, ErrUnknownToken) {
		t.Errorf("burned token should be unknown, got %v", err)
	}
	// Burned IDs are not reused.
	next, _ := r.Mint("seller", "")
	if next != id+1 {
		t.Errorf("expected next id %d, got %d", id+1, next)
	}
}
