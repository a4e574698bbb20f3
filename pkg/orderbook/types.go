package orderbook

// OrderParams describes a new order being submitted to the engine.
type OrderParams[T any] struct {
	Side    Side
	Price   uint64 // U32.32 fixed point
	Size    uint64
	Details T
}

// OrderEntry is the logical view of a resting order: price is recovered from
// the id, size from the price queue, details from the order-details record.
type OrderEntry[T any] struct {
	ID      OrderId
	Price   uint64
	Size    uint64
	Details T
}

// OrderSummary is returned by PlaceOrder: the identifier of the residual that
// was posted (nil if the incoming order filled completely) and its size.
type OrderSummary struct {
	PostedID   *OrderId
	PostedSize uint64
}

// OrderEvent records that a resting order was filled for some amount. It is
// the payload of the optional per-order event queue (see events.go); the
// inline-settlement path the market façade uses does not produce these.
type OrderEvent struct {
	Fill uint64
}
