// Package auth models the host's address and authorization primitives that
// the engine treats as external collaborators (spec §1, §6): an opaque
// account identifier and a require_auth-style signature check. Addresses
// reuse go-ethereum's 20-byte representation, the same choice the reference
// stack makes for account identifiers.
package auth

import "github.com/ethereum/go-ethereum/common"

// Address is the opaque owner identifier attached to orders and used as the
// token-transfer endpoint.
type Address = common.Address

// ParseAddress parses a checksummed or lowercase hex address, the same
// entry point the reference stack's API layer uses to decode addresses from
// requests.
func ParseAddress(hex string) Address {
	return common.HexToAddress(hex)
}
