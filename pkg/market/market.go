// Package market implements the façade described in spec §4.5: init,
// place_order, and cancel_order, coupling the matching engine in
// pkg/orderbook to token escrow and settlement transfers.
package market

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/orderscript/clobcore/pkg/auth"
	"github.com/orderscript/clobcore/pkg/kv"
	"github.com/orderscript/clobcore/pkg/orderbook"
	"github.com/orderscript/clobcore/pkg/quote"
	"github.com/orderscript/clobcore/pkg/token"
)

// OrderDetail is the order-detail payload the engine is generic over, bound
// here to just the owner address (spec §4.5, §9 "the market binds T = {
// owner_address }").
type OrderDetail struct {
	Owner auth.Address `json:"owner"`
}

// PlaceOrderParams is the place_order entry point's argument (spec §6).
type PlaceOrderParams struct {
	Side  orderbook.Side
	Price uint64 // U32.32 fixed point
	Size  uint64
	Owner auth.Address
}

// Market is the façade contract instance: one per (prefix, token pair).
type Market struct {
	contractAddr auth.Address
	book         *orderbook.Book[OrderDetail]
	store        kv.Store
	configKey    []byte

	baseToken  token.Client
	quoteToken token.Client
	authz      auth.Authorizer
	logger     *zap.Logger

	cfg Config
}

// New wires a Market façade instance. contractAddr is the address the
// market escrows funds under — the equivalent of a Soroban contract's own
// address. prefix namespaces this market's BookStorage keys, as it does in
// the reference engine.
func New(
	store kv.Store,
	prefix uint16,
	contractAddr auth.Address,
	baseToken, quoteToken token.Client,
	authz auth.Authorizer,
	logger *zap.Logger,
) *Market {
	storage := orderbook.NewBookStorage[OrderDetail](store, prefix)
	return &Market{
		contractAddr: contractAddr,
		book:         orderbook.NewBook(storage),
		store:        store,
		configKey:    marketInfoKey(prefix),
		baseToken:    baseToken,
		quoteToken:   quoteToken,
		authz:        authz,
		logger:       logger,
	}
}

func marketInfoKey(prefix uint16) []byte {
	return []byte{byte(prefix >> 8), byte(prefix), 'M', 'I'}
}

// Init stores the market configuration. It does not check for re-init (spec
// §4.5: "deployment flow must enforce single-init externally") — a
// production deployment calls this exactly once from its own provisioning
// path (see cmd/clobd), rather than the engine guarding against it itself.
func (m *Market) Init(cfg Config) error {
	if err := m.saveConfig(cfg); err != nil {
		return err
	}
	m.cfg = cfg
	m.logger.Info("market initialized",
		zap.String("base_token", cfg.BaseToken.Hex()),
		zap.String("quote_token", cfg.QuoteToken.Hex()),
		zap.Uint64("min_base_order_size", cfg.MinBaseOrderSize),
	)
	return nil
}

func (m *Market) saveConfig(cfg Config) error {
	raw, err := marshalConfig(cfg)
	if err != nil {
		return err
	}
	return m.store.Set(m.configKey, raw)
}

// Config returns the currently loaded configuration.
func (m *Market) Config() Config { return m.cfg }

// Snapshot returns the current book aggregated into price levels, bids then
// asks, for the API façade's GET /orderbook endpoint.
func (m *Market) Snapshot() (bids, asks []orderbook.Level, err error) {
	bids, err = m.book.Levels(orderbook.Bid)
	if err != nil {
		return nil, nil, err
	}
	asks, err = m.book.Levels(orderbook.Ask)
	if err != nil {
		return nil, nil, err
	}
	return bids, asks, nil
}

// PlaceOrder implements spec §4.5's place_order algorithm, with the §9
// redesign: self-trade is detected by pre-scanning the opposite side before
// any escrow transfer happens, instead of reverting after transfers already
// executed.
func (m *Market) PlaceOrder(ctx context.Context, p PlaceOrderParams) (*orderbook.OrderId, error) {
	if err := m.authz.RequireAuth(ctx, p.Owner); err != nil {
		return nil, err
	}

	if err := m.validateAdmission(p); err != nil {
		return nil, err
	}

	if m.wouldSelfTrade(p) {
		return nil, ErrCannotSelfTrade
	}

	escrowAmount, err := m.escrow(ctx, p)
	if err != nil {
		return nil, err
	}

	var quoteConsumed, baseConsumed int64
	summary, err := m.book.PlaceOrder(
		orderbook.OrderParams[OrderDetail]{
			Side:    p.Side,
			Price:   p.Price,
			Size:    p.Size,
			Details: OrderDetail{Owner: p.Owner},
		},
		func(entry orderbook.OrderEntry[OrderDetail]) {
			baseFilled, quoteFilled, settleErr := m.settleFill(ctx, p, entry)
			if settleErr != nil {
				// The engine's callback has no error return; a settlement
				// failure here means the token collaborator itself is
				// broken, which spec §7 treats as an unrecoverable host
				// abort rather than something the engine catches.
				panic(settleErr)
			}
			baseConsumed += baseFilled
			quoteConsumed += quoteFilled
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "market: match")
	}

	if err := m.refundUnusedEscrow(ctx, p, escrowAmount, baseConsumed, quoteConsumed, summary.PostedSize); err != nil {
		return nil, err
	}

	m.logger.Info("order placed",
		zap.String("owner", p.Owner.Hex()),
		zap.String("side", p.Side.String()),
		zap.Uint64("size", p.Size),
		zap.Uint64("posted_size", summary.PostedSize),
	)

	return summary.PostedID, nil
}

func (m *Market) validateAdmission(p PlaceOrderParams) error {
	if m.cfg.Status != StatusActive {
		return ErrMarketNotActive
	}
	if p.Size < m.cfg.MinBaseOrderSize {
		return ErrInvalidOrderSize
	}
	if m.cfg.LotSize > 0 && p.Size%m.cfg.LotSize != 0 {
		return ErrInvalidLot
	}
	if m.cfg.TickSize > 0 && p.Price%m.cfg.TickSize != 0 {
		return ErrInvalidTick
	}
	return nil
}

// wouldSelfTrade walks the opposite side under the same price gate the
// matching engine itself will apply, stopping at the first candidate that
// fails it, and reports whether any candidate along the way shares the
// taker's owner. This is the §9 "pre-scan" redesign: no transfer has
// happened yet, so there is nothing to unwind if it finds one.
func (m *Market) wouldSelfTrade(p PlaceOrderParams) bool {
	opposite := p.Side.Opposite()
	for id := range m.book.Orders(opposite) {
		if !priceGateMatches(p.Side, p.Price, id.Price()) {
			break
		}
		entry, ok, err := m.book.GetOrder(id)
		if err != nil {
			panic(err)
		}
		if !ok {
			continue
		}
		if entry.Details.Owner == p.Owner {
			return true
		}
	}
	return false
}

func priceGateMatches(takerSide orderbook.Side, takerPrice, makerPrice uint64) bool {
	if takerSide == orderbook.Bid {
		return makerPrice <= takerPrice
	}
	return makerPrice >= takerPrice
}

// escrow transfers the offered token from the owner into the contract
// address and returns the amount escrowed (spec §4.5 steps 3-4).
func (m *Market) escrow(ctx context.Context, p PlaceOrderParams) (int64, error) {
	if p.Side == orderbook.Bid {
		amount := quote.Amount(p.Price, p.Size)
		if err := m.quoteToken.Transfer(ctx, p.Owner, m.contractAddr, amount); err != nil {
			return 0, errors.Wrap(err, "market: escrow quote")
		}
		return amount, nil
	}

	amount := int64(p.Size)
	if err := m.baseToken.Transfer(ctx, p.Owner, m.contractAddr, amount); err != nil {
		return 0, errors.Wrap(err, "market: escrow base")
	}
	return amount, nil
}

// settleFill executes the two-transfer settlement for one fill (spec §4.5
// step 6). entry.Price is the MAKER's price — price improvement flows to
// the taker, never to the maker.
func (m *Market) settleFill(ctx context.Context, taker PlaceOrderParams, entry orderbook.OrderEntry[OrderDetail]) (baseFilled, quoteFilled int64, err error) {
	makerSide := entry.ID.Side()

	if makerSide == orderbook.Bid {
		// Maker is a resting Bid (escrowed quote); taker is an Ask selling
		// base. Base flows from the contract (the taker's fresh escrow) to
		// the maker; quote flows from the contract (the maker's earlier
		// escrow) to the taker.
		fillBase := int64(entry.Size)
		fillQuote := quote.Amount(entry.Price, entry.Size)

		if err := m.baseToken.Transfer(ctx, m.contractAddr, entry.Details.Owner, fillBase); err != nil {
			return 0, 0, errors.Wrap(err, "market: settle base to maker")
		}
		if err := m.quoteToken.Transfer(ctx, m.contractAddr, taker.Owner, fillQuote); err != nil {
			return 0, 0, errors.Wrap(err, "market: settle quote to taker")
		}

		m.logTrade(taker, entry, fillBase, fillQuote)
		return fillBase, fillQuote, nil
	}

	// Maker is a resting Ask (escrowed base); taker is a Bid buying base.
	fillBase := int64(entry.Size)
	fillQuote := quote.Amount(entry.Price, entry.Size)

	if err := m.baseToken.Transfer(ctx, m.contractAddr, taker.Owner, fillBase); err != nil {
		return 0, 0, errors.Wrap(err, "market: settle base to taker")
	}
	if err := m.quoteToken.Transfer(ctx, m.contractAddr, entry.Details.Owner, fillQuote); err != nil {
		return 0, 0, errors.Wrap(err, "market: settle quote to maker")
	}

	m.logTrade(taker, entry, fillBase, fillQuote)
	return fillBase, fillQuote, nil
}

// refundUnusedEscrow returns whatever collateral was not consumed by fills
// or reserved for the posted residual (spec §4.5 step 8 — a feature absent
// from the original Soroban source entirely).
func (m *Market) refundUnusedEscrow(ctx context.Context, p PlaceOrderParams, escrowAmount, baseConsumed, quoteConsumed int64, postedSize uint64) error {
	if p.Side == orderbook.Bid {
		reserved := quote.Amount(p.Price, postedSize)
		refund := escrowAmount - quoteConsumed - reserved
		if refund <= 0 {
			return nil
		}
		if err := m.quoteToken.Transfer(ctx, m.contractAddr, p.Owner, refund); err != nil {
			return errors.Wrap(err, "market: refund quote")
		}
		return nil
	}

	refund := (int64(p.Size) - int64(postedSize)) - baseConsumed
	if refund <= 0 {
		return nil
	}
	if err := m.baseToken.Transfer(ctx, m.contractAddr, p.Owner, refund); err != nil {
		return errors.Wrap(err, "market: refund base")
	}
	return nil
}

// CancelOrder implements spec §4.5's cancel_order: a missing order is a
// silent no-op; otherwise escrow is returned and the order removed.
func (m *Market) CancelOrder(ctx context.Context, id orderbook.OrderId) error {
	entry, ok, err := m.book.GetOrder(id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := m.authz.RequireAuth(ctx, entry.Details.Owner); err != nil {
		return err
	}

	if id.Side() == orderbook.Ask {
		if err := m.baseToken.Transfer(ctx, m.contractAddr, entry.Details.Owner, int64(entry.Size)); err != nil {
			return errors.Wrap(err, "market: cancel refund base")
		}
	} else {
		amount := quote.Amount(entry.Price, entry.Size)
		if err := m.quoteToken.Transfer(ctx, m.contractAddr, entry.Details.Owner, amount); err != nil {
			return errors.Wrap(err, "market: cancel refund quote")
		}
	}

	if err := m.book.CancelOrder(id); err != nil {
		return err
	}

	m.logger.Info("order cancelled", zap.String("owner", entry.Details.Owner.Hex()), zap.String("id", id.String()))
	return nil
}
