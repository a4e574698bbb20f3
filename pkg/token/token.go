// Package token models the token contract interface the core treats as an
// external collaborator (spec §1, §6): the market façade only ever calls
// transfer; balance is read by tests and by the API's balance endpoint. The
// interface is deliberately this small — the
// market façade never inspects allowance, minting, or metadata.
package token

import (
	"context"

	"github.com/orderscript/clobcore/pkg/auth"
)

// Address is the token-transfer endpoint type, re-exported from pkg/auth so
// callers don't need to import both packages for a single type.
type Address = auth.Address

// Client is a single token's transfer surface as the market façade sees it.
type Client interface {
	// Transfer moves amount from one address to another. It is
	// host-authenticated (require_auth on from) and aborts on insufficient
	// balance; the core never catches either failure, per spec §7's "token
	// failure ... propagates up as a host abort".
	Transfer(ctx context.Context, from, to Address, amount int64) error

	// Balance is read-only. The market façade never calls it; tests and the
	// API's balance endpoint do.
	Balance(ctx context.Context, id Address) int64
}
