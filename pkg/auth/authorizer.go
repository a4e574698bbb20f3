package auth

import (
	"context"

	"github.com/cockroachdb/errors"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// ErrUnauthorized is returned when a require_auth-style check fails.
var ErrUnauthorized = errors.New("auth: unauthorized")

// Authorizer models the host's Address::require_auth() primitive (spec §6):
// a host-mediated signature check the core calls but does not implement.
// PlaceOrder and CancelOrder both call RequireAuth on the order owner before
// touching storage or escrow.
type Authorizer interface {
	RequireAuth(ctx context.Context, owner Address) error
}

// TrustingAuthorizer always succeeds. It stands in for the host's
// authorization primitive in tests and the cmd demo, the same role the
// reference engine assigns "mock token" implementations: a collaborator the
// core never implements itself (spec §1's "demonstration mock ... used only
// for tests").
type TrustingAuthorizer struct{}

func (TrustingAuthorizer) RequireAuth(context.Context, Address) error { return nil }

// SignatureAuthorizer checks a detached secp256k1 signature over a message
// hash against the claimed owner, recovering the signer with go-ethereum's
// Ecrecover the same way the reference stack's crypto package derives an
// address from a public key (pkg/crypto/ethaddr.go). It is a lightweight
// stand-in for a full EIP-712 authorization flow — good enough to exercise
// "owner must have signed this" without pulling in domain-separated typed
// data signing, which is out of scope for the core's authorization
// collaborator.
type SignatureAuthorizer struct {
	// No fields: the message hash and signature are supplied per call via
	// WithProof, and RequireAuth rejects any call whose context carries no
	// Proof.
}

// Proof carries the signed message hash and its 65-byte [R||S||V] signature
// for one authorization check.
type Proof struct {
	Hash      [32]byte
	Signature []byte
}

// ctxProofKey is unexported so only this package can stash a Proof on a
// context, mirroring how a host would thread a verified signature through
// call scope without exposing a mutable verifier state.
type ctxProofKey struct{}

// WithProof attaches a signature proof to ctx for a subsequent RequireAuth
// call.
func WithProof(ctx context.Context, proof Proof) context.Context {
	return context.WithValue(ctx, ctxProofKey{}, proof)
}

func (SignatureAuthorizer) RequireAuth(ctx context.Context, owner Address) error {
	proof, ok := ctx.Value(ctxProofKey{}).(Proof)
	if !ok {
		return errors.Wrap(ErrUnauthorized, "no signature proof in context")
	}

	pub, err := ethcrypto.SigToPub(proof.Hash[:], proof.Signature)
	if err != nil {
		return errors.Wrap(ErrUnauthorized, "recover signer")
	}

	signer := ethcrypto.PubkeyToAddress(*pub)
	if signer != owner {
		return errors.Wrapf(ErrUnauthorized, "signature recovered %s, want %s", signer, owner)
	}
	return nil
}
