package telegram

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxUpdateSize = 1 << 20

// Handler receives Bot API updates on POST /{secret}.
type Handler struct {
	secret   []byte
	messages MessageHandler
	sender   Sender
	logger   *slog.Logger
}

// NewHandler creates a webhook handler. Requests whose path segment differs from secret get 404.
func NewHandler(secret string, messages MessageHandler, sender Sender, logger *slog.Logger) *Handler {
	return &Handler{
		secret:   []byte(secret),
		messages: messages,
		sender:   sender,
		logger:   logger.With("component", "telegram"),
	}
}

// RegisterRoutes registers the webhook route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/{token}", h.Webhook)
}

// Webhook handles one update. Once the secret matches it always answers 200 "OK",
// so Telegram does not redeliver updates the bot failed to process.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if subtle.ConstantTimeCompare([]byte(token), h.secret) != 1 {
		http.NotFound(w, r)
		return
	}
	mLogger := h.logger.With("request_id", middleware.GetReqID(r.Context()))
	defer writeOK(w)

	var update Update
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUpdateSize)).Decode(&update); err != nil {
		mLogger.WarnContext(r.Context(), "Failed to decode update", "error", err)
		return
	}
	msg := update.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		mLogger.DebugContext(r.Context(), "Ignoring non-text update", "update_id", update.UpdateID)
		return
	}

	userID := msg.Chat.ID
	if msg.From != nil {
		userID = msg.From.ID
	}
	reply := h.messages.Handle(r.Context(), strconv.FormatInt(userID, 10), msg.Text)
	if reply.Text == "" {
		return
	}
	if err := h.sender.Send(r.Context(), msg.Chat.ID, reply); err != nil {
		mLogger.ErrorContext(r.Context(), "Failed to send reply", "update_id", update.UpdateID, "chat_id", msg.Chat.ID, "error", err)
	}
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
