package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/abgdnv/orderbot/internal/engine"
	"github.com/abgdnv/orderbot/pkg/config"
	"github.com/abgdnv/orderbot/pkg/resilience"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrAPI is returned when the Bot API rejects a request.
var ErrAPI = errors.New("telegram api error")

// BotSender calls sendMessage on the Bot API behind a circuit breaker.
type BotSender struct {
	client   *http.Client
	endpoint string
	breaker  *gobreaker.CircuitBreaker[struct{}]
	logger   *slog.Logger
}

// NewBotSender creates a sender for the bot identified by cfg.Token.
func NewBotSender(cfg config.TelegramConfig, cb config.CircuitBreakerConfig, logger *slog.Logger) *BotSender {
	return &BotSender{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		endpoint: fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(cfg.APIURL, "/"), cfg.Token),
		// Rejections by the API (bad chat, blocked bot) say nothing about its health.
		breaker: resilience.NewCircuitBreaker[struct{}]("telegram-send", cb, func(err error) bool {
			return err == nil || errors.Is(err, ErrAPI)
		}),
		logger: logger.With("component", "telegram-sender"),
	}
}

func (s *BotSender) Send(ctx context.Context, chatID int64, reply engine.Reply) error {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: reply.Text, ReplyMarkup: replyMarkup(reply)})
	if err != nil {
		return fmt.Errorf("encode sendMessage: %w", err)
	}
	_, err = s.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.post(ctx, body)
	})
	return err
}

func (s *BotSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// The URL carries the token; keep it out of logs.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("sendMessage: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var apiResp apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&apiResp); err != nil {
		return fmt.Errorf("sendMessage: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("sendMessage: status %d: %s", resp.StatusCode, apiResp.Description)
	}
	if !apiResp.OK {
		return fmt.Errorf("%w: %d %s", ErrAPI, apiResp.ErrorCode, apiResp.Description)
	}
	return nil
}

// LogSender logs replies instead of delivering them. Used when no bot token is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "telegram-sender")}
}

func (s *LogSender) Send(ctx context.Context, chatID int64, reply engine.Reply) error {
	s.logger.InfoContext(ctx, "Reply not delivered, no bot token configured", "chat_id", chatID, "text", reply.Text, "options", reply.Options)
	return nil
}
