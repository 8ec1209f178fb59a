package ordernumber

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/orderdesk/internal/platform/httpx"
	"github.com/odyssey-erp/orderdesk/internal/shared"
)

// GenerateRequest is the JSON body of POST /order-numbers.
type GenerateRequest struct {
	Channel string `json:"channel" validate:"required"`
	ActorID string `json:"actor_id" validate:"omitempty,max=128"`
	// Date is optional, YYYY-MM-DD or RFC3339.
	Date string `json:"date" validate:"omitempty"`
}

// GenerateResponse carries an issued order number.
type GenerateResponse struct {
	OrderNumber string `json:"order_number"`
	Key         string `json:"key"`
}

// CounterResponse reports a counter value.
type CounterResponse struct {
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// Handler exposes the generator over HTTP.
type Handler struct {
	logger    *slog.Logger
	generator *Generator
	audit     shared.AuditPort
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, generator *Generator, audit shared.AuditPort) *Handler {
	return &Handler{logger: logger, generator: generator, audit: audit, validator: validator.New()}
}

// MountRoutes registers public routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.generate)
	r.Get("/counters", h.counter)
}

// MountAdminRoutes registers routes that must sit behind the admin guard.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Post("/reset", h.reset)
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	at, err := parseDate(req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD or RFC3339")
		return
	}
	issued, err := h.generator.Issue(r.Context(), Channel(req.Channel), req.ActorID, at)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, GenerateResponse{OrderNumber: issued.Number, Key: issued.Key})
}

func (h *Handler) counter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Get("key")
	if key == "" {
		at, err := parseDate(q.Get("date"))
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD or RFC3339")
			return
		}
		if at.IsZero() {
			at = h.generator.now()
		}
		key, err = KeyFor(Channel(q.Get("channel")), q.Get("actor_id"), at)
		if err != nil {
			h.respondError(w, err)
			return
		}
	}
	val, err := h.generator.Counter(r.Context(), key)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, CounterResponse{Key: key, Value: val})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	if err := h.generator.Reset(r.Context()); err != nil {
		h.respondError(w, err)
		return
	}
	if h.audit != nil {
		if err := h.audit.Record(r.Context(), shared.AuditLog{
			Actor:    "admin",
			Action:   "ordernumber:reset",
			Entity:   "order_number_counters",
			EntityID: "*",
			Meta:     map[string]any{"remote_addr": r.RemoteAddr},
		}); err != nil {
			h.logger.Warn("audit counter reset", slog.Any("error", err))
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var chErr *ChannelError
	if errors.As(err, &chErr) {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Order Channel", err.Error())
		return
	}
	h.logger.Error("order number request failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, raw)
}
