package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/raulikeda/EventBacktesting/internal/domain"
	"github.com/raulikeda/EventBacktesting/internal/service"
)

// ReportHandler handles the read-side HTTP endpoints of a backtest run.
type ReportHandler struct {
	reportSvc *service.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportSvc *service.ReportService) *ReportHandler {
	return &ReportHandler{reportSvc: reportSvc}
}

// tradeResponse is one archived round-trip trade in the trades response.
type tradeResponse struct {
	TradeID   string           `json:"trade_id"`
	Strategy  string           `json:"strategy"`
	Fills     int              `json:"fills"`
	Orders    int              `json:"orders"`
	Position  map[string]int64 `json:"position"`
	BuyFlow   float64          `json:"buy_flow"`
	SellFlow  float64          `json:"sell_flow"`
	PnL       float64          `json:"pnl"`
	Fee       float64          `json:"fee"`
	Tax       float64          `json:"tax"`
	MaxAlloc  float64          `json:"max_allocation"`
	Return    float64          `json:"return"`
	NetReturn float64          `json:"net_return"`
	OpenedAt  string           `json:"opened_at"`
	ClosedAt  string           `json:"closed_at"`
}

// tradesResponse is the JSON response for GET /strategies/{strategy_id}/trades.
type tradesResponse struct {
	Strategy string          `json:"strategy"`
	Trades   []tradeResponse `json:"trades"`
}

// quoteResponse is one side of the book in the book response.
type quoteResponse struct {
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
}

// printResponse is the last tape print in the book response.
type printResponse struct {
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	Timestamp string  `json:"timestamp"`
}

// bookResponse is the JSON response for GET /instruments/{symbol}/book.
type bookResponse struct {
	Symbol        string         `json:"symbol"`
	Bid           *quoteResponse `json:"bid"`
	Ask           *quoteResponse `json:"ask"`
	PendingOrders int            `json:"pending_orders"`
	LastTrade     *printResponse `json:"last_trade"`
	TapeLength    int            `json:"tape_length"`
	UpdatedAt     string         `json:"updated_at"`
}

// orderResponse is the JSON response for GET /orders/{order_id}.
// Market orders carry a null price; average is null until the first fill.
type orderResponse struct {
	OrderID    int64    `json:"order_id"`
	Instrument string   `json:"instrument"`
	Side       string   `json:"side"`
	Status     string   `json:"status"`
	Quantity   int64    `json:"quantity"`
	Price      *float64 `json:"price"`
	Executed   int64    `json:"executed_quantity"`
	Remaining  int64    `json:"remaining_quantity"`
	Average    *float64 `json:"average_price"`
	Owner      string   `json:"owner"`
	CreatedAt  string   `json:"created_at"`
}

// GetSummary handles GET /strategies/{strategy_id}/summary.
func (h *ReportHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	strategyID := chi.URLParam(r, "strategy_id")

	summary, err := h.reportSvc.GetSummary(strategyID)
	if err != nil {
		mapReportError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, summary)
}

// ListTrades handles GET /strategies/{strategy_id}/trades.
func (h *ReportHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	strategyID := chi.URLParam(r, "strategy_id")

	trades, err := h.reportSvc.ListTrades(strategyID)
	if err != nil {
		mapReportError(w, err)
		return
	}

	resp := tradesResponse{
		Strategy: strategyID,
		Trades:   make([]tradeResponse, len(trades)),
	}
	for i, t := range trades {
		resp.Trades[i] = buildTradeResponse(t)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetBook handles GET /instruments/{symbol}/book.
func (h *ReportHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	snap, err := h.reportSvc.GetBook(symbol)
	if err != nil {
		mapReportError(w, err)
		return
	}

	resp := bookResponse{
		Symbol:        snap.Symbol,
		PendingOrders: snap.PendingOrders,
		TapeLength:    snap.TapeLength,
		UpdatedAt:     snap.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if snap.Bid != nil {
		resp.Bid = &quoteResponse{
			Price:    domain.CentsToDollars(snap.Bid.Price),
			Quantity: snap.Bid.Quantity,
		}
	}
	if snap.Ask != nil {
		resp.Ask = &quoteResponse{
			Price:    domain.CentsToDollars(snap.Ask.Price),
			Quantity: snap.Ask.Quantity,
		}
	}
	if snap.LastTrade != nil {
		resp.LastTrade = &printResponse{
			Price:     domain.CentsToDollars(snap.LastTrade.Price),
			Quantity:  snap.LastTrade.Quantity,
			Timestamp: snap.LastTrade.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

// GetOrder handles GET /orders/{order_id}.
func (h *ReportHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "validation_error", "order_id must be a valid integer")
		return
	}

	order, err := h.reportSvc.GetOrder(id)
	if err != nil {
		mapReportError(w, err)
		return
	}

	resp := orderResponse{
		OrderID:    order.ID,
		Instrument: order.Instrument,
		Side:       string(order.Side),
		Status:     string(order.Status),
		Quantity:   order.Quantity,
		Executed:   order.Executed,
		Remaining:  order.Remaining(),
		Owner:      order.Owner,
		CreatedAt:  order.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if !order.Market() {
		v := domain.CentsToDollars(order.Price)
		resp.Price = &v
	}
	if order.Executed > 0 {
		v := order.Average / 100
		resp.Average = &v
	}
	WriteJSON(w, http.StatusOK, resp)
}

// buildTradeResponse converts an archived trade entry to its response form.
func buildTradeResponse(t *domain.TradeEntry) tradeResponse {
	position := make(map[string]int64, len(t.Position))
	for symbol, qty := range t.Position {
		position[symbol] = qty
	}

	return tradeResponse{
		TradeID:   t.TradeID,
		Strategy:  t.Strategy,
		Fills:     t.Fills,
		Orders:    len(t.Orders),
		Position:  position,
		BuyFlow:   t.BuyFlow,
		SellFlow:  t.SellFlow,
		PnL:       t.PnL,
		Fee:       t.Fee,
		Tax:       t.Tax,
		MaxAlloc:  t.MaxAlloc,
		Return:    t.Return,
		NetReturn: t.NetReturn,
		OpenedAt:  t.OpenedAt.UTC().Format("2006-01-02T15:04:05Z"),
		ClosedAt:  t.ClosedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// mapReportError maps domain errors to HTTP responses for report endpoints.
func mapReportError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrStrategyNotFound):
		WriteError(w, http.StatusNotFound, "strategy_not_found", err.Error())
	case errors.Is(err, domain.ErrInstrumentNotFound):
		WriteError(w, http.StatusNotFound, "instrument_not_found", err.Error())
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
