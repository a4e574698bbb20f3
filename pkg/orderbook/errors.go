package orderbook

import "github.com/cockroachdb/errors"

// ErrOrderNotFound is returned, wrapped, by BookStorage.ModifyOrder when the
// id has no entry in its price queue. BookStorage.GetOrder does not return
// it: a missing order is reported as ok=false with a nil error, which is how
// CancelOrder stays a silent no-op on a missing order.
var ErrOrderNotFound = errors.New("orderbook: order not found")
