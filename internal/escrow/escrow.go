// Package escrow executes the two-sided exchange that finalizes an auction:
// payment to the seller, unique asset to the winner.
//
// Two payment rails exist, deliberately asymmetric:
//
//   - Native: the bidder attaches value to the bid. The full attached amount
//     is held in the engine's escrow account up front; on settlement the
//     seller receives the clearing price and the bidder is refunded the
//     difference.
//   - Token: nothing is held up front. On settlement the engine pulls
//     exactly the clearing price from the bidder via a pre-granted
//     allowance; the excess of an above-price offer is never taken, so
//     there is no refund leg.
//
// Settlement is all-or-nothing. Legs are ordered so the fallible leg runs
// first; when both legs can fail, the payment leg is compensated (reversed)
// if the asset leg fails afterwards.
package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/auctionhaus/dutch-engine/internal/nft"
	"github.com/auctionhaus/dutch-engine/internal/token"
)

var (
	// ErrTransferFailed wraps a payment or asset leg rejected by a
	// collaborator.
	ErrTransferFailed = errors.New("escrow: transfer failed")

	// ErrAllowanceInsufficient is returned when a token-rail bidder has
	// not approved at least the accepted amount.
	ErrAllowanceInsufficient = errors.New("escrow: payment allowance insufficient")

	// ErrNoRail is returned when the escrow was constructed without a
	// payment rail.
	ErrNoRail = errors.New("escrow: no payment rail configured")
)

// RailKind selects the payment mechanism.
type RailKind int

const (
	// NativeKind settles in the native asset with an attached-value
	// refund leg.
	NativeKind RailKind = iota
	// TokenKind settles by pulling a fungible-token allowance.
	TokenKind
)

// Rail is the tagged payment variant consumed by Settle. Exactly one of
// Bank or Token is set, matching Kind.
type Rail struct {
	Kind  RailKind
	Bank  *NativeLedger
	Token *token.Ledger
}

// NativeRail wraps a native bank as a payment rail.
func NativeRail(bank *NativeLedger) Rail {
	return Rail{Kind: NativeKind, Bank: bank}
}

// TokenRail wraps a fungible-token ledger as a payment rail.
func TokenRail(ledger *token.Ledger) Rail {
	return Rail{Kind: TokenKind, Token: ledger}
}

// AssetRef names the unique asset under auction: a registry plus token ID.
// A nil AssetRef means the auction sells a bare right with no asset leg.
type AssetRef struct {
	Registry *nft.Registry
	TokenID  uint64
}

// Escrow performs settlements on behalf of one auction engine identity.
// The agent identity is what the seller and bidder pre-approve on the
// collaborator contracts.
type Escrow struct {
	agent string
	rail  Rail
}

// New creates an escrow that acts as the given agent identity over the
// given payment rail.
func New(agent string, rail Rail) *Escrow {
	return &Escrow{agent: agent, rail: rail}
}

// Agent returns the identity collaborators must approve as transfer agent.
func (e *Escrow) Agent() string { return e.agent }

// Rail returns the configured payment rail.
func (e *Escrow) Rail() Rail { return e.rail }

// Hold moves a native bidder's attached value into the escrow account.
// Called at the bid boundary before the bid is evaluated; no-op on the
// token rail, which holds nothing up front.
func (e *Escrow) Hold(bidder string, amount uint64) error {
	if e.rail.Kind != NativeKind {
		return nil
	}
	if err := e.rail.Bank.Transfer(bidder, e.agent, amount); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return nil
}

// Release returns a held attached value to the bidder after a rejected
// bid. No-op on the token rail.
func (e *Escrow) Release(bidder string, amount uint64) error {
	if e.rail.Kind != NativeKind {
		return nil
	}
	return e.rail.Bank.Transfer(e.agent, bidder, amount)
}

// Settle executes the exchange: payment to seller, asset (if any) to
// bidder. offered is the accepted bid; clearing is the price in effect when
// it was accepted. On the native rail the escrow account must already hold
// offered (via Hold) and pays out clearing plus the refund; on the token
// rail only clearing is pulled and offered never moves. If any leg fails,
// no leg's effect is retained.
func (e *Escrow) Settle(ctx context.Context, seller, bidder string, offered, clearing uint64, ref *AssetRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch e.rail.Kind {
	case NativeKind:
		return e.settleNative(seller, bidder, offered, clearing, ref)
	case TokenKind:
		return e.settleToken(seller, bidder, clearing, ref)
	default:
		return ErrNoRail
	}
}

// settleNative runs the asset leg first: it is the only fallible step, since
// the escrow account already holds the attached value, so the payout and
// refund below cannot fail.
func (e *Escrow) settleNative(seller, bidder string, offered, clearing uint64, ref *AssetRef) error {
	if err := e.transferAsset(seller, bidder, ref); err != nil {
		return err
	}
	if err := e.rail.Bank.Transfer(e.agent, seller, clearing); err != nil {
		return fmt.Errorf("%w: payout: %v", ErrTransferFailed, err)
	}
	if refund := offered - clearing; refund > 0 {
		if err := e.rail.Bank.Transfer(e.agent, bidder, refund); err != nil {
			return fmt.Errorf("%w: refund: %v", ErrTransferFailed, err)
		}
	}
	return nil
}

// settleToken pulls exactly the clearing price first, then moves the
// asset. Only the clearing price is ever taken; a bid above the asking
// price costs the bidder no more than the asking price, and the allowance
// only needs to cover that. If the asset leg fails the pull is
// compensated: the seller returns exactly what was just received, which
// cannot fail under the host's serialized execution.
func (e *Escrow) settleToken(seller, bidder string, clearing uint64, ref *AssetRef) error {
	if err := e.rail.Token.TransferFrom(e.agent, bidder, seller, clearing); err != nil {
		if errors.Is(err, token.ErrInsufficientAllowance) {
			return fmt.Errorf("%w: %v", ErrAllowanceInsufficient, err)
		}
		return fmt.Errorf("%w: payment: %v", ErrTransferFailed, err)
	}
	if err := e.transferAsset(seller, bidder, ref); err != nil {
		if rbErr := e.rail.Token.Transfer(seller, bidder, clearing); rbErr != nil {
			return fmt.Errorf("%w: asset leg failed and payment rollback failed: %v", ErrTransferFailed, rbErr)
		}
		return err
	}
	return nil
}

func (e *Escrow) transferAsset(seller, bidder string, ref *AssetRef) error {
	if ref == nil {
		return nil
	}
	if err := ref.Registry.TransferFrom(e.agent, seller, bidder, ref.TokenID); err != nil {
		return fmt.Errorf("%w: asset: %v", ErrTransferFailed, err)
	}
	return nil
}
