package api

// API response and request types for REST endpoints and WebSocket messages,
// trimmed from the reference perpetual-futures API to what a single spot
// CLOB market actually exposes: one market's config, its order book, its
// trade tape, a caller's token balances, and order placement/cancellation.

// ==============================
// REST Response Types
// ==============================

// MarketInfo describes the market's static configuration.
type MarketInfo struct {
	BaseToken        string `json:"baseToken"`
	QuoteToken       string `json:"quoteToken"`
	Status           string `json:"status"` // "active", "paused", "settled"
	MinBaseOrderSize uint64 `json:"minBaseOrderSize"`
	TickSize         uint64 `json:"tickSize"`
	LotSize          uint64 `json:"lotSize"`
}

// OrderbookSnapshot is the current resting book, price-time ordered.
type OrderbookSnapshot struct {
	Bids      []PriceLevel `json:"bids"` // sorted high to low
	Asks      []PriceLevel `json:"asks"` // sorted low to high
	Timestamp int64        `json:"timestamp"`
}

// PriceLevel is one (price, size) tuple; price is U32.32 raw bits.
type PriceLevel struct {
	Price uint64 `json:"price"`
	Size  uint64 `json:"size"`
}

// TradeInfo is one completed fill.
type TradeInfo struct {
	Seq         uint64 `json:"seq"`
	TakerOwner  string `json:"takerOwner"`
	MakerOwner  string `json:"makerOwner"`
	TakerSide   string `json:"takerSide"`
	Price       uint64 `json:"price"`
	BaseFilled  int64  `json:"baseFilled"`
	QuoteFilled int64  `json:"quoteFilled"`
}

// BalanceInfo is a caller's token balances as seen by the configured token
// clients.
type BalanceInfo struct {
	Address      string `json:"address"`
	BaseBalance  int64  `json:"baseBalance"`
	QuoteBalance int64  `json:"quoteBalance"`
}

// ==============================
// REST Request Types
// ==============================

// PlaceOrderRequest is the payload for POST /api/v1/orders. Signature is a
// 65-byte [R||S||V] secp256k1 signature over Hash, the same detached-proof
// shape auth.SignatureAuthorizer verifies.
type PlaceOrderRequest struct {
	Side      string `json:"side"` // "bid" or "ask"
	Price     uint64 `json:"price"`
	Size      uint64 `json:"size"`
	Owner     string `json:"owner"`
	Hash      string `json:"hash"`      // hex-encoded 32-byte message hash
	Signature string `json:"signature"` // hex-encoded 65-byte signature
}

// PlaceOrderResponse is returned from a successful place_order call.
type PlaceOrderResponse struct {
	PostedID   string `json:"postedId,omitempty"`
	PostedSize uint64 `json:"postedSize"`
}

// CancelOrderRequest is the payload for POST /api/v1/orders/cancel.
type CancelOrderRequest struct {
	OrderID   string `json:"orderId"`
	Hash      string `json:"hash"`
	Signature string `json:"signature"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    uint32 `json:"code,omitempty"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by a client to subscribe or unsubscribe.
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// OrderbookUpdate is broadcast whenever the book changes.
type OrderbookUpdate struct {
	Type      string       `json:"type"` // "orderbook"
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp int64        `json:"timestamp"`
}

// TradeUpdate is the WebSocket message shape for one executed trade. Nothing
// in this package sends it: clients see fills only through the orderbook
// snapshots BroadcastOrderbook pushes.
type TradeUpdate struct {
	Type  string    `json:"type"` // "trade"
	Trade TradeInfo `json:"trade"`
}
