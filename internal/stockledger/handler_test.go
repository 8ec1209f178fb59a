package stockledger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/orderdesk/internal/shared"
)

func newTestRouter(t *testing.T) (http.Handler, *Reconciler) {
	t.Helper()
	logger := discardLogger()
	rec := NewReconciler(NewLedger(), ReconcilerConfig{Logger: logger})
	h := NewHandler(logger, rec, shared.SlogAuditor{Logger: logger})
	guard := shared.NewAdminGuard("s3cret", logger)

	r := chi.NewRouter()
	r.Route("/stock", h.MountRoutes)
	r.Route("/admin/stock", func(r chi.Router) {
		r.Use(guard.Require)
		h.MountAdminRoutes(r)
	})
	return r, rec
}

func serve(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerRecordAndReconcile(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := serve(router, http.MethodPost, "/stock/operations", `{"product_id":"SKU-COLA-330","kind":"create","quantity":5,"order_ref":"ADM-20240115-001"}`, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var op Operation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &op))
	assert.NotEmpty(t, op.ID)
	assert.Equal(t, OperationCreate, op.Kind)

	rr = serve(router, http.MethodPost, "/stock/operations", `{"product_id":"SKU-COLA-330","kind":"delete","quantity":2}`, nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(router, http.MethodGet, "/stock/products/SKU-COLA-330/operations", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var ops []Operation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ops))
	assert.Len(t, ops, 2)

	rr = serve(router, http.MethodGet, "/stock/products/SKU-COLA-330/expected?initial=10", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var exp ExpectedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &exp))
	assert.InDelta(t, 7.0, exp.ExpectedStock, 1e-9)

	rr = serve(router, http.MethodGet, "/stock/products/SKU-COLA-330/reconcile?reported=7.02&initial=10", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var res Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.False(t, res.IsValid)
	assert.InDelta(t, 0.02, res.Difference, 1e-9)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	router, rec := newTestRouter(t)

	rr := serve(router, http.MethodPost, "/stock/operations", `{"kind":"create","quantity":5}`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = serve(router, http.MethodPost, "/stock/operations", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Zero(t, rec.Ledger().Len())

	rr = serve(router, http.MethodGet, "/stock/products/SKU-COLA-330/reconcile", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = serve(router, http.MethodGet, "/stock/products/SKU-COLA-330/reconcile?reported=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandlerRejectsNonFiniteQuantities(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, target := range []string{
		"/stock/products/p1/reconcile?reported=NaN",
		"/stock/products/p1/reconcile?reported=Inf",
		"/stock/products/p1/reconcile?reported=5&initial=-Inf",
		"/stock/products/p1/expected?initial=NaN",
	} {
		rr := serve(router, http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.Contains(t, rr.Body.String(), "must be a number", target)
	}
}

func TestHandlerClearRequiresAdmin(t *testing.T) {
	router, rec := newTestRouter(t)
	rec.Ledger().Record(Operation{ProductID: "SKU-COLA-330", Kind: OperationCreate, Quantity: 5})

	rr := serve(router, http.MethodPost, "/admin/stock/clear", "", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, 1, rec.Ledger().Len())

	rr = serve(router, http.MethodPost, "/admin/stock/clear", "", map[string]string{shared.AdminTokenHeader: "s3cret"})
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Zero(t, rec.Ledger().Len())
	assert.Equal(t, 10.0, rec.Ledger().ExpectedStock("SKU-COLA-330", 10))
}
