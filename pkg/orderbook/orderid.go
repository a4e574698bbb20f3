package orderbook

import (
	"encoding/binary"
	"encoding/hex"
)

// OrderId is the 16-byte composite identifier for a resting or posted order.
//
// Layout (big-endian throughout):
//
//	bytes 0:2   prefix   (u16 namespace tag)
//	byte  2     reserved (always zero)
//	byte  3     side     (0 = Bid, 1 = Ask)
//	bytes 4:12  price    (u64, U32.32 fixed point)
//	bytes 12:16 local_id (u32, assigned in order within a (side, price) bucket)
type OrderId [16]byte

// NewOrderId encodes a composite order id.
func NewOrderId(prefix uint16, side Side, price uint64, localID uint32) OrderId {
	var id OrderId
	binary.BigEndian.PutUint16(id[0:2], prefix)
	id[3] = byte(side)
	binary.BigEndian.PutUint64(id[4:12], price)
	binary.BigEndian.PutUint32(id[12:16], localID)
	return id
}

func (id OrderId) Prefix() uint16 {
	return binary.BigEndian.Uint16(id[0:2])
}

func (id OrderId) Side() Side {
	switch id[3] {
	case 0:
		return Bid
	case 1:
		return Ask
	default:
		panic("orderbook: corrupt OrderId side byte")
	}
}

func (id OrderId) Price() uint64 {
	return binary.BigEndian.Uint64(id[4:12])
}

func (id OrderId) LocalID() uint32 {
	return binary.BigEndian.Uint32(id[12:16])
}

// BookKey is the first 3 bytes (prefix + reserved byte). Defined for parity
// with the codec's full key-derivation surface; BookStorage derives its own
// per-side book key directly from (prefix, side) rather than from this.
func (id OrderId) BookKey() [3]byte {
	var k [3]byte
	copy(k[:], id[0:3])
	return k
}

// PriceKey is the first 12 bytes with byte index 4 (the most significant byte
// of the price field) forced to zero, collapsing every order at the same
// price onto one price-queue key. This mirrors the reference codec exactly,
// including its latent quirk: two prices that differ only in that top byte
// would collide. That only matters for integer price components at or above
// 2^24, well outside any realistic quote, so the behavior is kept as-is
// rather than "fixed" into a different key scheme.
func (id OrderId) PriceKey() [12]byte {
	var k [12]byte
	copy(k[:], id[0:12])
	k[4] = 0
	return k
}

// WithAttrKey overrides byte 4 to carve out an attribute subkey (used by the
// split storage layout to separate an order's size record from its details
// record). Layout B does not use this, but it is kept for codec completeness.
func (id OrderId) WithAttrKey(attr byte) [12]byte {
	k := id.PriceKey()
	k[4] = attr
	return k
}

func (id OrderId) String() string {
	return hex.EncodeToString(id[:])
}
