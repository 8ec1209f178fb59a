package shared

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminGuardVerify(t *testing.T) {
	guard := NewAdminGuard("s3cret", nil)
	assert.NoError(t, guard.Verify("s3cret"))
	assert.ErrorIs(t, guard.Verify(""), ErrAdminTokenMissing)
	assert.ErrorIs(t, guard.Verify("s3cret "), ErrAdminTokenMismatch)

	disabled := NewAdminGuard("", nil)
	assert.ErrorIs(t, disabled.Verify("anything"), ErrAdminDisabled)

	var nilGuard *AdminGuard
	assert.ErrorIs(t, nilGuard.Verify("s3cret"), ErrAdminDisabled)
}

func TestAdminGuardRequire(t *testing.T) {
	var buf bytes.Buffer
	guard := NewAdminGuard("s3cret", slog.New(slog.NewTextHandler(&buf, nil)))
	h := guard.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/admin/order-numbers/reset", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), `"title":"Forbidden"`)
	assert.Contains(t, buf.String(), "admin guard rejected request")

	req := httptest.NewRequest(http.MethodPost, "/admin/order-numbers/reset", nil)
	req.Header.Set(AdminTokenHeader, "s3cret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestSlogAuditor(t *testing.T) {
	var buf bytes.Buffer
	auditor := SlogAuditor{Logger: slog.New(slog.NewTextHandler(&buf, nil))}

	err := auditor.Record(context.Background(), AuditLog{Actor: "admin", Action: "reset", Entity: "order_number_counters", EntityID: "*"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "action=reset")
	assert.Contains(t, buf.String(), "entity=order_number_counters")

	assert.Error(t, auditor.Record(context.Background(), AuditLog{Action: "reset"}))
	assert.Error(t, (*AuditLogger)(nil).Record(context.Background(), AuditLog{}))
}

func TestMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore()

	require.NoError(t, store.CheckAndInsert(ctx, "req-1", "orders"))
	assert.ErrorIs(t, store.CheckAndInsert(ctx, "req-1", "orders"), ErrIdempotencyConflict)
	assert.NoError(t, store.CheckAndInsert(ctx, "req-1", "order-numbers"))

	require.NoError(t, store.Delete(ctx, "req-1", "orders"))
	assert.NoError(t, store.CheckAndInsert(ctx, "req-1", "orders"))

	assert.Error(t, store.CheckAndInsert(ctx, "", "orders"))
	assert.Error(t, store.CheckAndInsert(ctx, "req-2", ""))
}

func TestMemoryIdempotencyStoreSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryIdempotencyStore()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.CheckAndInsert(ctx, "retry", "orders") == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestPagination(t *testing.T) {
	assert.Equal(t, Pagination{Page: 1, PerPage: 20, Total: 0, TotalPages: 0}, NewPagination(0, 0, 0))
	assert.Equal(t, Pagination{Page: 3, PerPage: 10, Total: 25, TotalPages: 3}, NewPagination(3, 10, 25))
}
