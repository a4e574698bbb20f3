package market

import "github.com/orderscript/clobcore/pkg/auth"

// Status extends the reference spec's bare MarketConfig with the teacher
// stack's notion of a market lifecycle state (pkg/app/core/market.go), a
// supplemented feature: the original Soroban market has no notion of a
// paused market at all.
type Status int

const (
	StatusActive Status = iota
	StatusPaused
	StatusSettled
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusPaused:
		return "paused"
	case StatusSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Config is MarketConfig (spec §3): immutable after Init, read on every
// order operation. TickSize and LotSize are supplemented admission checks
// carried over from the teacher's Market.ValidateOrder, not present in the
// original Soroban source.
type Config struct {
	BaseToken        auth.Address `json:"base_token"`
	QuoteToken       auth.Address `json:"quote_token"`
	MinBaseOrderSize uint64       `json:"min_base_order_size"`
	TickSize         uint64       `json:"tick_size"`
	LotSize          uint64       `json:"lot_size"`
	Status           Status       `json:"status"`
}
