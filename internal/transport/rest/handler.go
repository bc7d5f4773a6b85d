// Package rest exposes the bot over plain HTTP for health checks, local testing and order lookups.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/orderbot/internal/engine"
	boterrors "github.com/abgdnv/orderbot/internal/errors"
	"github.com/abgdnv/orderbot/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

const livenessText = "Bot de Aguas de Lourdes corriendo 🚀"

// Service is what the REST API needs from the dispatcher.
type Service interface {
	Handle(ctx context.Context, userID, text string) engine.Reply
	FindOrder(ctx context.Context, id string) (*engine.Order, error)
	ListOrders(ctx context.Context, userID string, offset, limit int32) ([]engine.Order, error)
}

type Handler struct {
	service     Service
	validate    *validator.Validate
	logger      *slog.Logger
	ordersGuard []func(http.Handler) http.Handler
}

// NewHandler creates a new instance of Handler with the provided service.
func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),

		logger: logger.With("component", "rest"),
	}
}

// MessageRequest is a user message submitted over HTTP.
type MessageRequest struct {
	UserID string `json:"user_id" validate:"required,max=64"`
	Text   string `json:"text" validate:"max=4096"`
}

// GuardOrders wraps the order lookup routes with the given middlewares.
func (h *Handler) GuardOrders(mw ...func(http.Handler) http.Handler) *Handler {
	h.ordersGuard = append(h.ordersGuard, mw...)
	return h
}

// RegisterRoutes registers the HTTP routes of the bot.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Liveness)
	r.Get("/healthz", h.HealthCheck)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/messages", h.PostMessage)
		r.Route("/orders", func(r chi.Router) {
			r.Use(h.ordersGuard...)
			r.Get("/", h.FindOrdersByUserID)
			r.Get("/{id}", h.FindOrderByID)
		})
	})
}

// Liveness answers with a static banner.
func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(livenessText))
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// PostMessage runs one message through the conversation and returns the reply.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondValidationError(w, r, mLogger, err)
		return
	}

	mLogger.DebugContext(r.Context(), "Received message", "user_id", req.UserID)
	reply := h.service.Handle(r.Context(), req.UserID, req.Text)
	web.RespondJSON(w, mLogger, http.StatusOK, reply)
}

// FindOrderByID retrieves an order by its ID.
func (h *Handler) FindOrderByID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	id := chi.URLParam(r, "id")

	mLogger.DebugContext(r.Context(), "Received request to find order by ID", "ID", id)
	found, err := h.service.FindOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, boterrors.ErrOrderNotFound) {
			mLogger.WarnContext(r.Context(), "Order not found", "ID", id)
			web.RespondError(w, mLogger, http.StatusNotFound, fmt.Sprintf("Order with ID %s not found", id))
			return
		}
		mLogger.ErrorContext(r.Context(), "Error retrieving order", "ID", id, "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve order with ID %s", id))
		return
	}
	web.RespondJSON(w, mLogger, http.StatusOK, found)
}

// FindOrdersByUserID lists a user's orders, newest first.
func (h *Handler) FindOrdersByUserID(w http.ResponseWriter, r *http.Request) {
	mLogger := h.loggerWithReqID(r)
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		web.RespondError(w, mLogger, http.StatusBadRequest, "user_id is required")
		return
	}
	limit, ok := web.ParseValidateGt(r, w, mLogger, "limit", 0)
	if !ok {
		return
	}
	offset, ok := web.ParseValidateGte(r, w, mLogger, "offset", 0)
	if !ok {
		return
	}

	list, err := h.service.ListOrders(r.Context(), userID, offset, limit)
	if err != nil {
		mLogger.ErrorContext(r.Context(), "Error retrieving order list", "error", err)
		web.RespondError(w, mLogger, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved order list", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// loggerWithReqID creates a logger with the request ID from the context.
func (h *Handler) loggerWithReqID(r *http.Request) *slog.Logger {
	reqID := middleware.GetReqID(r.Context())
	return h.logger.With("request_id", reqID)
}
