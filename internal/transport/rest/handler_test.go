package rest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abgdnv/orderbot/internal/engine"
	boterrors "github.com/abgdnv/orderbot/internal/errors"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// mockService is a mock implementation of the Service interface
type mockService struct {
	reply    engine.Reply
	order    *engine.Order
	orders   []engine.Order
	error    error
	lastUser string
	offset   int32
	limit    int32
}

func (m *mockService) Handle(_ context.Context, userID, _ string) engine.Reply {
	m.lastUser = userID
	return m.reply
}

func (m *mockService) FindOrder(_ context.Context, _ string) (*engine.Order, error) {
	return m.order, m.error
}

func (m *mockService) ListOrders(_ context.Context, userID string, offset, limit int32) ([]engine.Order, error) {
	m.lastUser, m.offset, m.limit = userID, offset, limit
	return m.orders, m.error
}

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterRoutes(r)
	return r
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(method, target, reader))
	return rr
}

func Test_Liveness(t *testing.T) {
	rr := serve(newRouter(&mockService{}), http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Bot de Aguas de Lourdes corriendo 🚀", rr.Body.String())
}

func Test_HealthCheck(t *testing.T) {
	rr := serve(newRouter(&mockService{}), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rr.Code)
}

func Test_PostMessage(t *testing.T) {
	testCases := []struct {
		name         string
		body         string
		reply        engine.Reply
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success",
			body:         `{"user_id":"42","text":"comprar"}`,
			reply:        engine.Reply{Text: "hola", Options: []string{"a"}},
			expectedCode: http.StatusOK,
			expectedBody: `{"text":"hola","options":["a"]}`,
		},
		{
			name:         "Missing user",
			body:         `{"text":"comprar"}`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"validation_errors":{"UserID":"failed on rule: required"}}`,
		},
		{
			name:         "Malformed JSON",
			body:         `{"user_id":`,
			expectedCode: http.StatusBadRequest,
			expectedBody: `{"error":"Invalid request body"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			svc := &mockService{reply: tc.reply}

			// when
			rr := serve(newRouter(svc), http.MethodPost, "/api/v1/messages", tc.body)

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			assert.JSONEq(t, tc.expectedBody, rr.Body.String())
		})
	}
}

func Test_FindOrderByID(t *testing.T) {
	order := &engine.Order{
		ID: "P1", UserID: "42", Total: decimal.RequireFromString("50.00"), Status: engine.OrderStatusPending,
		Items:     []engine.CartItem{{ProductID: "1", Name: "Agua", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 5}},
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), ETA: "2-3 horas",
	}

	testCases := []struct {
		name         string
		svc          *mockService
		expectedCode int
		expectedBody string
	}{
		{
			name:         "Success",
			svc:          &mockService{order: order},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Not found",
			svc:          &mockService{error: boterrors.ErrOrderNotFound},
			expectedCode: http.StatusNotFound,
			expectedBody: `{"error":"Order with ID P1 not found"}`,
		},
		{
			name:         "Store failure",
			svc:          &mockService{error: errors.New("db down")},
			expectedCode: http.StatusInternalServerError,
			expectedBody: `{"error":"Failed to retrieve order with ID P1"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			rr := serve(newRouter(tc.svc), http.MethodGet, "/api/v1/orders/P1", "")

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, rr.Body.String())
			} else {
				assert.Contains(t, rr.Body.String(), `"subtotal":"50"`)
				assert.Contains(t, rr.Body.String(), `"id":"P1"`)
			}
		})
	}
}

func Test_FindOrdersByUserID(t *testing.T) {
	testCases := []struct {
		name         string
		query        string
		svc          *mockService
		expectedCode int
	}{
		{name: "Success", query: "?user_id=42&limit=10&offset=0", svc: &mockService{orders: []engine.Order{{ID: "P1"}}}, expectedCode: http.StatusOK},
		{name: "Missing user", query: "?limit=10&offset=0", svc: &mockService{}, expectedCode: http.StatusBadRequest},
		{name: "Zero limit", query: "?user_id=42&limit=0&offset=0", svc: &mockService{}, expectedCode: http.StatusBadRequest},
		{name: "Negative offset", query: "?user_id=42&limit=10&offset=-1", svc: &mockService{}, expectedCode: http.StatusBadRequest},
		{name: "Store failure", query: "?user_id=42&limit=10&offset=0", svc: &mockService{error: errors.New("db down")}, expectedCode: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			rr := serve(newRouter(tc.svc), http.MethodGet, "/api/v1/orders"+tc.query, "")

			// then
			assert.Equal(t, tc.expectedCode, rr.Code)
			if tc.expectedCode == http.StatusOK {
				assert.Equal(t, "42", tc.svc.lastUser)
				assert.Equal(t, int32(10), tc.svc.limit)
			}
		})
	}
}

func Test_GuardOrders(t *testing.T) {
	// given
	deny := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	svc := &mockService{reply: engine.Reply{Text: "hola"}}
	r := chi.NewRouter()
	NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).GuardOrders(deny).RegisterRoutes(r)

	// when
	orders := serve(r, http.MethodGet, "/api/v1/orders/P1", "")
	message := serve(r, http.MethodPost, "/api/v1/messages", `{"user_id":"42","text":"hola"}`)

	// then
	assert.Equal(t, http.StatusUnauthorized, orders.Code)
	assert.Equal(t, http.StatusOK, message.Code, "only order routes are guarded")
}
