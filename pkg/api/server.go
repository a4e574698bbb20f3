// Package api exposes a market.Market over REST and WebSocket, adapted from
// the reference stack's perp-trading API server to a single spot CLOB
// market: order book snapshots, trade tape, balances, and order
// placement/cancellation authenticated by a detached signature.
package api

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	cockroachErrors "github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/orderscript/clobcore/pkg/auth"
	"github.com/orderscript/clobcore/pkg/market"
	"github.com/orderscript/clobcore/pkg/orderbook"
	"github.com/orderscript/clobcore/pkg/token"
)

// Server handles REST API and WebSocket connections for one market.
type Server struct {
	market     *market.Market
	baseToken  token.Client
	quoteToken token.Client
	router     *mux.Router
	hub        *Hub
	logger     *zap.Logger
}

// NewServer creates a new API server bound to a single market instance.
func NewServer(m *market.Market, baseToken, quoteToken token.Client, logger *zap.Logger) *Server {
	s := &Server{
		market:     m,
		baseToken:  baseToken,
		quoteToken: quoteToken,
		router:     mux.NewRouter(),
		hub:        NewHub(logger),
		logger:     logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/market", s.handleGetMarket).Methods("GET")
	api.HandleFunc("/orderbook", s.handleGetOrderbook).Methods("GET")
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/balances/{address}", s.handleGetBalance).Methods("GET")

	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the hub and serves the router behind CORS, blocking until the
// listener errors.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	handler := c.Handler(s.router)

	s.logger.Info("api server starting", zap.String("addr", addr))
	return http.ListenAndServe(addr, handler)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	cfg := s.market.Config()
	respondJSON(w, MarketInfo{
		BaseToken:        cfg.BaseToken.Hex(),
		QuoteToken:       cfg.QuoteToken.Hex(),
		Status:           cfg.Status.String(),
		MinBaseOrderSize: cfg.MinBaseOrderSize,
		TickSize:         cfg.TickSize,
		LotSize:          cfg.LotSize,
	})
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	bidLevels, askLevels, err := s.market.Snapshot()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "snapshot failed", err.Error())
		return
	}

	bids := make([]PriceLevel, len(bidLevels))
	for i, l := range bidLevels {
		bids[i] = PriceLevel{Price: l.Price, Size: l.Size}
	}
	asks := make([]PriceLevel, len(askLevels))
	for i, l := range askLevels {
		asks[i] = PriceLevel{Price: l.Price, Size: l.Size}
	}

	respondJSON(w, OrderbookSnapshot{Bids: bids, Asks: asks, Timestamp: time.Now().UnixMilli()})
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.market.RecentTrades(100)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load trades", err.Error())
		return
	}

	out := make([]TradeInfo, len(trades))
	for i, t := range trades {
		out[i] = TradeInfo{
			Seq:         t.Seq,
			TakerOwner:  t.TakerOwner.Hex(),
			MakerOwner:  t.MakerOwner.Hex(),
			TakerSide:   t.TakerSide.String(),
			Price:       t.Price,
			BaseFilled:  t.BaseFilled,
			QuoteFilled: t.QuoteFilled,
		}
	}
	respondJSON(w, out)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	addressStr := vars["address"]

	if !isHexAddress(addressStr) {
		respondError(w, http.StatusBadRequest, "invalid address", "")
		return
	}
	addr := auth.ParseAddress(addressStr)

	respondJSON(w, BalanceInfo{
		Address:      addr.Hex(),
		BaseBalance:  s.baseToken.Balance(r.Context(), addr),
		QuoteBalance: s.quoteToken.Balance(r.Context(), addr),
	})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	var side orderbook.Side
	switch req.Side {
	case "bid":
		side = orderbook.Bid
	case "ask":
		side = orderbook.Ask
	default:
		respondError(w, http.StatusBadRequest, "invalid side", "side must be \"bid\" or \"ask\"")
		return
	}

	ctx, err := withProofFromHex(r.Context(), req.Hash, req.Signature)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid signature proof", err.Error())
		return
	}

	id, err := s.market.PlaceOrder(ctx, market.PlaceOrderParams{
		Side:  side,
		Price: req.Price,
		Size:  req.Size,
		Owner: auth.ParseAddress(req.Owner),
	})
	if err != nil {
		respondMarketError(w, err)
		return
	}

	resp := PlaceOrderResponse{}
	if id != nil {
		resp.PostedID = id.String()
		resp.PostedSize = req.Size
	}

	s.BroadcastOrderbook()
	respondJSON(w, resp)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	idBytes, err := hex.DecodeString(req.OrderID)
	if err != nil || len(idBytes) != 16 {
		respondError(w, http.StatusBadRequest, "invalid orderId", "")
		return
	}
	var id orderbook.OrderId
	copy(id[:], idBytes)

	ctx, err := withProofFromHex(r.Context(), req.Hash, req.Signature)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid signature proof", err.Error())
		return
	}

	if err := s.market.CancelOrder(ctx, id); err != nil {
		respondMarketError(w, err)
		return
	}

	s.BroadcastOrderbook()
	respondJSON(w, map[string]string{"status": "cancelled", "orderId": req.OrderID})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Broadcast Methods (called after each successful order placement or cancellation)
// ==============================

// BroadcastOrderbook pushes the current book to every client subscribed to
// the "orderbook" channel.
func (s *Server) BroadcastOrderbook() {
	bidLevels, askLevels, err := s.market.Snapshot()
	if err != nil {
		return
	}

	bids := make([]PriceLevel, len(bidLevels))
	for i, l := range bidLevels {
		bids[i] = PriceLevel{Price: l.Price, Size: l.Size}
	}
	asks := make([]PriceLevel, len(askLevels))
	for i, l := range askLevels {
		asks[i] = PriceLevel{Price: l.Price, Size: l.Size}
	}

	s.hub.BroadcastToChannel("orderbook", OrderbookUpdate{
		Type:      "orderbook",
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now().UnixMilli(),
	})
}

// ==============================
// Helper Functions
// ==============================

func isHexAddress(s string) bool {
	if len(s) == 42 && s[0:2] == "0x" {
		return true
	}
	return false
}

// withProofFromHex decodes a request's hash/signature pair and attaches it
// to ctx as an auth.Proof, the shape auth.SignatureAuthorizer checks.
func withProofFromHex(ctx context.Context, hashHex, sigHex string) (context.Context, error) {
	hashBytes, err := hex.DecodeString(hashHex)
	if err != nil || len(hashBytes) != 32 {
		return nil, errInvalidProof
	}
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil || len(sigBytes) != 65 {
		return nil, errInvalidProof
	}

	var proof auth.Proof
	copy(proof.Hash[:], hashBytes)
	proof.Signature = sigBytes

	return auth.WithProof(ctx, proof), nil
}

var errInvalidProof = cockroachErrors.New("api: invalid signature proof")

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, errMsg string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errMsg, Message: message})
}

func respondMarketError(w http.ResponseWriter, err error) {
	if merr, ok := err.(*market.Error); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(ErrorResponse{Error: merr.Error(), Code: uint32(merr.Code)})
		return
	}
	respondError(w, http.StatusForbidden, "authorization or transfer failed", err.Error())
}
