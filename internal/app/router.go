package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/orderdesk/internal/observability"
	"github.com/odyssey-erp/orderdesk/internal/ordernumber"
	"github.com/odyssey-erp/orderdesk/internal/orders"
	"github.com/odyssey-erp/orderdesk/internal/shared"
	"github.com/odyssey-erp/orderdesk/internal/stockledger"
	"github.com/odyssey-erp/orderdesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	OrderNumberHandler *ordernumber.Handler
	StockHandler       *stockledger.Handler
	OrdersHandler      *orders.Handler
	JobHandler         *jobs.Handler
	AdminGuard         *shared.AdminGuard
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with orderdesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.OrderNumberHandler != nil {
		r.Route("/order-numbers", params.OrderNumberHandler.MountRoutes)
	}
	if params.StockHandler != nil {
		r.Route("/stock", params.StockHandler.MountRoutes)
	}
	if params.OrdersHandler != nil {
		r.Route("/orders", params.OrdersHandler.MountRoutes)
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if params.AdminGuard != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(params.AdminGuard.Require)
			if params.OrderNumberHandler != nil {
				r.Route("/order-numbers", params.OrderNumberHandler.MountAdminRoutes)
			}
			if params.StockHandler != nil {
				r.Route("/stock", params.StockHandler.MountAdminRoutes)
			}
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountAdminRoutes)
			}
		})
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
