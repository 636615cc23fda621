package orders

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-api/internal/auth"
	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/storage"
)

// newTestServer routes like cmd/api does, with the caller injected instead of a token.
func newTestServer(f *fixture) func(caller domain.Caller, method, target, body string) *httptest.ResponseRecorder {
	h := NewHandler(f.svc, storage.NewURLs("https://img.example.com"), slog.New(slog.NewTextHandler(io.Discard, nil)))

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/order", h.HandleCreate)
	mux.HandleFunc("GET /api/order/my-order", h.HandleListMine)
	mux.HandleFunc("GET /api/order/waiting", h.HandleListWaiting)
	mux.HandleFunc("GET /api/order/admin", h.HandleListAll)
	mux.HandleFunc("GET /api/order/{id}", h.HandleGet)
	mux.HandleFunc("PATCH /api/order/{id}/pick-up", h.HandlePickUp)
	mux.HandleFunc("PATCH /api/order/{id}/mark-complete", h.HandleMarkComplete)
	mux.HandleFunc("PATCH /api/order/{id}/delete", h.HandleDelete)

	return func(caller domain.Caller, method, target, body string) *httptest.ResponseRecorder {
		var r io.Reader
		if body != "" {
			r = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, target, r)
		req = req.WithContext(auth.WithCaller(req.Context(), caller))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		return rec
	}
}

func orderPath(id int64, suffix string) string {
	return "/api/order/" + strconv.FormatInt(id, 10) + suffix
}

func TestHandler_Create(t *testing.T) {
	f := newFixture(t)
	do := newTestServer(f)

	t.Run("creates an order", func(t *testing.T) {
		body := `{"shipAddress":"12 Le Loi","paymentMethod":"Momo","products":[{"id":1,"quantity":2}]}`
		rec := do(f.customer, http.MethodPost, "/api/order", body)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, f.customer.ID, got["customerId"])
		assert.Equal(t, "WaitingShipper", got["status"])
		assert.Equal(t, "Momo", got["paymentMethod"])
		assert.Equal(t, "12 Le Loi", got["shipAddress"])
		assert.Contains(t, got, "createdDate")
		assert.Contains(t, got, "updatedDate")
	})

	t.Run("accepts a numeric payment method", func(t *testing.T) {
		body := `{"shipAddress":"12 Le Loi","paymentMethod":1,"products":[{"id":1,"quantity":1}]}`
		rec := do(f.customer, http.MethodPost, "/api/order", body)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "COD", got["paymentMethod"])
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "malformed json", body: `{"shipAddress":`, wantStatus: http.StatusBadRequest},
		{name: "unknown field", body: `{"shipAddress":"x","paymentMethod":"COD","products":[{"id":1,"quantity":1}],"discount":5}`, wantStatus: http.StatusBadRequest},
		{name: "empty cart", body: `{"shipAddress":"x","paymentMethod":"COD","products":[]}`, wantStatus: http.StatusBadRequest},
		{name: "quantity beyond column range", body: `{"shipAddress":"x","paymentMethod":"COD","products":[{"id":1,"quantity":5000000000}]}`, wantStatus: http.StatusBadRequest},
		{name: "unknown payment index", body: `{"shipAddress":"x","paymentMethod":7,"products":[{"id":1,"quantity":1}]}`, wantStatus: http.StatusBadRequest},
		{name: "payment method of wrong type", body: `{"shipAddress":"x","paymentMethod":true,"products":[{"id":1,"quantity":1}]}`, wantStatus: http.StatusBadRequest},
		{name: "unknown product", body: `{"shipAddress":"x","paymentMethod":"COD","products":[{"id":42,"quantity":1}]}`, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(f.customer, http.MethodPost, "/api/order", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			var got map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.NotEmpty(t, got["error"])
		})
	}
}

func TestHandler_Lifecycle(t *testing.T) {
	f := newFixture(t)
	do := newTestServer(f)
	order := f.placeOrder(t, f.customer)

	rec := do(f.customer, http.MethodPatch, orderPath(order.ID, "/pick-up"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(f.shipper, http.MethodPatch, orderPath(order.ID, "/mark-complete"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code, "shipper is not assigned yet")

	rec = do(f.shipper, http.MethodPatch, orderPath(order.ID, "/pick-up"), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var view OrderView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, domain.OrderStatusToReceive, view.Status)

	rec = do(f.shipper2, http.MethodPatch, orderPath(order.ID, "/pick-up"), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(f.shipper, http.MethodPatch, orderPath(order.ID, "/mark-complete"), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, domain.OrderStatusCompleted, view.Status)

	rec = do(f.admin, http.MethodPatch, orderPath(order.ID, "/mark-complete"), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(f.shipper, http.MethodPatch, orderPath(order.ID, "/delete"), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(f.admin, http.MethodPatch, orderPath(order.ID, "/delete"), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(f.admin, http.MethodGet, orderPath(order.ID, ""), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_InvalidID(t *testing.T) {
	f := newFixture(t)
	do := newTestServer(f)

	for _, target := range []string{"/api/order/abc", "/api/order/0/pick-up", "/api/order/-1/delete"} {
		method := http.MethodPatch
		if target == "/api/order/abc" {
			method = http.MethodGet
		}
		rec := do(f.admin, method, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestHandler_Listings(t *testing.T) {
	f := newFixture(t)
	do := newTestServer(f)

	avatarUser := domain.User{ID: "avatar-customer", Email: "a@example.com", AvatarURL: "me.png"}
	f.store.addUser(avatarUser)
	caller := domain.Caller{ID: avatarUser.ID, Roles: []domain.Role{domain.RoleUser}}
	order := f.placeOrder(t, caller)

	rec := do(caller, http.MethodGet, "/api/order/my-order", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var mine []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	products := mine[0]["products"].([]any)
	require.Len(t, products, 2)
	first := products[0].(map[string]any)
	assert.Equal(t, "Phone", first["productName"])
	assert.Equal(t, "199.99", first["price"])
	assert.NotContains(t, mine[0], "customer")

	rec = do(caller, http.MethodGet, "/api/order/waiting", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(f.shipper, http.MethodGet, "/api/order/waiting", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(f.admin, http.MethodGet, "/api/order/admin?status=Lost", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(f.admin, http.MethodGet, "/api/order/admin?status=WaitingShipper", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var all []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 1)
	customer := all[0]["customer"].(map[string]any)
	assert.Equal(t, "https://img.example.com/avatar/me.png", customer["avatar"])
	assert.NotContains(t, customer, "roles")
	assert.Nil(t, all[0]["shipper"])

	rec = do(caller, http.MethodGet, orderPath(order.ID, ""), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"customer"`)

	rec = do(f.other, http.MethodGet, orderPath(order.ID, ""), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
