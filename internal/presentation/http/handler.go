package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/Zhima-Mochi/pizzashop/internal/application/assembler"
	apppay "github.com/Zhima-Mochi/pizzashop/internal/application/payment"
	"github.com/Zhima-Mochi/pizzashop/internal/domain/catalog"
	dominv "github.com/Zhima-Mochi/pizzashop/internal/domain/inventory"
	domorder "github.com/Zhima-Mochi/pizzashop/internal/domain/order"
	dompay "github.com/Zhima-Mochi/pizzashop/internal/domain/payment"
	"github.com/Zhima-Mochi/pizzashop/internal/observability"
	"github.com/Zhima-Mochi/pizzashop/internal/observability/logctx"
)

const componentHTTPHandler = "http_server"

// SessionStore holds live sessions between requests.
type SessionStore interface {
	Insert(ctx context.Context, id string, s *assembler.Session) error
	Get(ctx context.Context, id string) (*assembler.Session, error)
	Delete(ctx context.Context, id string) error
}

// ReceiptSource lists recent payment confirmations, newest first.
type ReceiptSource interface {
	Recent() []dompay.Record
}

// StockoutSource reports items first seen out of stock.
type StockoutSource interface {
	Depleted() map[string]time.Time
}

type Deps struct {
	Menu      *catalog.Registry
	Methods   *apppay.Registry
	Inventory dominv.Store
	Assembler *assembler.Assembler
	Sessions  SessionStore
	Receipts  ReceiptSource
	Stockouts StockoutSource
	Gatherer  prometheus.Gatherer
}

type Handler struct {
	deps    Deps
	log     observability.Logger
	metrics observability.Metrics
}

func NewHandler(deps Deps, tel observability.Observability) *Handler {
	logger, _, metrics := observability.Resolve(tel)
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		deps:    deps,
		log:     logger.With(observability.F("component", componentHTTPHandler)),
		metrics: metrics,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(ObservabilityMiddleware(h.log, h.metrics))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.handleHealth)
	r.Get("/menu", h.handleMenu)
	r.Get("/inventory", h.handleInventory)
	r.Get("/inventory/stockouts", h.handleStockouts)
	r.Get("/receipts", h.handleReceipts)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.withSession(h.handleGetSession))
			r.Delete("/", h.withSession(h.handleCancelSession))
			r.Post("/base", h.withSession(h.handleSelectBase))
			r.Post("/toppings", h.withSession(h.handleAddTopping))
			r.Post("/finish", h.withSession(h.handleFinish))
			r.Post("/payment", h.withSession(h.handlePay))
		})
	})
	return r
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *assembler.Session)

func (h *Handler) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s, err := h.deps.Sessions.Get(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, "not_found", fmt.Errorf("session %q not found", id))
			return
		}
		ctx, _ := logctx.Enrich(r.Context(), h.log, observability.F("session_id", id))
		next(w, r.WithContext(ctx), s)
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type menuEntry struct {
	Code  string          `json:"code"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type menuResponse struct {
	Bases    []menuEntry      `json:"bases"`
	Toppings []menuEntry      `json:"toppings"`
	Payments []apppay.Listing `json:"payment_methods"`
}

func toMenuEntries(entries []catalog.Entry) []menuEntry {
	out := make([]menuEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, menuEntry{Code: e.Code, Name: e.Name, Price: e.Price})
	}
	return out
}

func (h *Handler) handleMenu(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, menuResponse{
		Bases:    toMenuEntries(h.deps.Menu.Bases()),
		Toppings: toMenuEntries(h.deps.Menu.Toppings()),
		Payments: h.deps.Methods.List(),
	})
}

type stockLevel struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Inventory.Snapshot(r.Context())
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	levels := make([]stockLevel, 0, len(snap))
	for name, qty := range snap {
		levels = append(levels, stockLevel{Name: name, Quantity: qty})
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Name < levels[j].Name })
	writeJSON(w, http.StatusOK, levels)
}

type stockout struct {
	Name      string    `json:"name"`
	FirstSeen time.Time `json:"first_seen"`
}

func (h *Handler) handleStockouts(w http.ResponseWriter, _ *http.Request) {
	out := []stockout{}
	if h.deps.Stockouts != nil {
		for name, at := range h.deps.Stockouts.Depleted() {
			out = append(out, stockout{Name: name, FirstSeen: at})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleReceipts(w http.ResponseWriter, _ *http.Request) {
	receipts := []dompay.Record{}
	if h.deps.Receipts != nil {
		receipts = h.deps.Receipts.Recent()
	}
	writeJSON(w, http.StatusOK, receipts)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.deps.Assembler.NewSession()
	if err := h.deps.Sessions.Insert(r.Context(), s.ID(), s); err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	logctx.FromOr(r.Context(), h.log).Info("session_created", observability.F("session_id", s.ID()))
	writeJSON(w, http.StatusCreated, s.View())
}

func (h *Handler) handleGetSession(w http.ResponseWriter, _ *http.Request, s *assembler.Session) {
	writeJSON(w, http.StatusOK, s.View())
}

type selectionRequest struct {
	Code string `json:"code"`
}

func (h *Handler) handleSelectBase(w http.ResponseWriter, r *http.Request, s *assembler.Session) {
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if _, err := s.SelectBase(r.Context(), req.Code); err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *Handler) handleAddTopping(w http.ResponseWriter, r *http.Request, s *assembler.Session) {
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if _, err := s.AddTopping(r.Context(), req.Code); err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s.View())
}

func (h *Handler) handleFinish(w http.ResponseWriter, r *http.Request, s *assembler.Session) {
	summary, err := s.Finish(r.Context())
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type paymentRequest struct {
	Method string `json:"method"`
}

type paymentResponse struct {
	Record       *dompay.Record `json:"record"`
	Confirmation string         `json:"confirmation"`
}

// handlePay settles the order; a paid session is removed from the store.
func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request, s *assembler.Session) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	rec, err := s.Pay(r.Context(), req.Method)
	if err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	_ = h.deps.Sessions.Delete(r.Context(), s.ID())
	writeJSON(w, http.StatusOK, paymentResponse{Record: rec, Confirmation: rec.Confirmation()})
}

func (h *Handler) handleCancelSession(w http.ResponseWriter, r *http.Request, s *assembler.Session) {
	if err := s.Cancel(r.Context()); err != nil {
		writeDomainError(w, r, h.log, err)
		return
	}
	_ = h.deps.Sessions.Delete(r.Context(), s.ID())
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func writeError(w http.ResponseWriter, status int, kind string, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}

func writeDomainError(w http.ResponseWriter, r *http.Request, fallback observability.Logger, err error) {
	switch {
	case errors.Is(err, domorder.ErrOutOfStock):
		writeError(w, http.StatusConflict, "out_of_stock", err)
	case errors.Is(err, domorder.ErrUnknownSelection),
		errors.Is(err, dompay.ErrUnknownMethod):
		writeError(w, http.StatusUnprocessableEntity, "unknown_selection", err)
	case errors.Is(err, domorder.ErrInvalidStateTransition):
		writeError(w, http.StatusConflict, "invalid_transition", err)
	case errors.Is(err, dompay.ErrInvalidAmount):
		writeError(w, http.StatusUnprocessableEntity, "invalid_amount", err)
	default:
		logctx.FromOr(r.Context(), fallback).Error("http_internal_error", observability.F("error", err))
		writeError(w, http.StatusInternalServerError, "internal", errors.New("internal error"))
	}
}
