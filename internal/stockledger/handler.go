package stockledger

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/orderdesk/internal/platform/httpx"
	"github.com/odyssey-erp/orderdesk/internal/shared"
)

// RecordRequest is the JSON body of POST /stock/operations.
type RecordRequest struct {
	ID        string    `json:"id" validate:"omitempty,max=64"`
	ProductID string    `json:"product_id" validate:"required,max=64"`
	Kind      string    `json:"kind" validate:"required,max=32"`
	Quantity  float64   `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
	OrderRef  string    `json:"order_ref" validate:"omitempty,max=64"`
}

// ExpectedResponse reports the folded stock level.
type ExpectedResponse struct {
	ProductID     string  `json:"product_id"`
	InitialStock  float64 `json:"initial_stock"`
	ExpectedStock float64 `json:"expected_stock"`
}

// Handler exposes the reconciler over HTTP.
type Handler struct {
	logger     *slog.Logger
	reconciler *Reconciler
	audit      shared.AuditPort
	validator  *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, reconciler *Reconciler, audit shared.AuditPort) *Handler {
	return &Handler{logger: logger, reconciler: reconciler, audit: audit, validator: validator.New()}
}

// MountRoutes registers public routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/operations", h.record)
	r.Route("/products/{productID}", func(r chi.Router) {
		r.Get("/operations", h.operations)
		r.Get("/expected", h.expected)
		r.Get("/reconcile", h.reconcile)
	})
}

// MountAdminRoutes registers routes that must sit behind the admin guard.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/clear", h.clear)
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	op := h.reconciler.Record(r.Context(), Operation{
		ID:        req.ID,
		ProductID: req.ProductID,
		Kind:      OperationKind(req.Kind),
		Quantity:  req.Quantity,
		Timestamp: req.Timestamp,
		OrderRef:  req.OrderRef,
	})
	httpx.JSON(w, http.StatusCreated, op)
}

func (h *Handler) operations(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	httpx.JSON(w, http.StatusOK, h.reconciler.Ledger().OperationsFor(productID))
}

func (h *Handler) expected(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	initial, ok := floatParam(w, r, "initial")
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, ExpectedResponse{
		ProductID:     productID,
		InitialStock:  initial,
		ExpectedStock: h.reconciler.Ledger().ExpectedStock(productID, initial),
	})
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if r.URL.Query().Get("reported") == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "reported is required")
		return
	}
	reported, ok := floatParam(w, r, "reported")
	if !ok {
		return
	}
	initial, ok := floatParam(w, r, "initial")
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, h.reconciler.Check(r.Context(), productID, reported, initial))
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	dropped := h.reconciler.Ledger().Len()
	h.reconciler.Ledger().ClearHistory()
	if h.audit != nil {
		if err := h.audit.Record(r.Context(), shared.AuditLog{
			Actor:    "admin",
			Action:   "stockledger:clear",
			Entity:   "stock_ledger",
			EntityID: "*",
			Meta:     map[string]any{"dropped": dropped, "remote_addr": r.RemoteAddr},
		}); err != nil {
			h.logger.Warn("audit ledger clear", slog.Any("error", err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// floatParam parses an optional finite float query parameter, defaulting
// to 0.
func floatParam(w http.ResponseWriter, r *http.Request, name string) (float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be a number")
		return 0, false
	}
	return v, true
}
