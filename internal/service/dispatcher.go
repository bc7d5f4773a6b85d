// Package service drives conversations: it serializes each user's messages,
// runs the engine, and persists what the engine produced.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/orderbot/internal/engine"
	boterrors "github.com/abgdnv/orderbot/internal/errors"
	"github.com/abgdnv/orderbot/internal/session"
	"github.com/abgdnv/orderbot/internal/store"
	"github.com/abgdnv/orderbot/pkg/config"
	"github.com/abgdnv/orderbot/pkg/logger"
	"github.com/abgdnv/orderbot/pkg/messaging"
	"github.com/abgdnv/orderbot/pkg/messaging/events"
	"github.com/abgdnv/orderbot/pkg/resilience"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/abgdnv/orderbot/internal/service"

// resetTimeout bounds the best-effort session reset after a fault.
const resetTimeout = 5 * time.Second

// Stepper advances a conversation by one message.
type Stepper interface {
	Step(ctx context.Context, current *engine.Session, text string) (engine.Result, error)
}

// Dependencies are the collaborators of a Dispatcher.
type Dependencies struct {
	Engine    Stepper
	Sessions  session.Store
	Locker    session.Locker
	Orders    store.OrderStore
	Publisher messaging.Publisher
	Retry     config.RetryConfig
	RateLimit config.RateLimitConfig
	Logger    *slog.Logger
}

// Dispatcher is the single entry point for user messages.
type Dispatcher struct {
	engine    Stepper
	sessions  session.Store
	locker    session.Locker
	orders    store.OrderStore
	publisher messaging.Publisher
	retry     config.RetryConfig
	limiter   *userLimiter
	logger    *slog.Logger
	tracer    trace.Tracer

	messagesCounter   metric.Int64Counter
	ordersCounter     metric.Int64Counter
	rejectionsCounter metric.Int64Counter
}

// NewDispatcher creates a Dispatcher. A nil Publisher disables event publishing.
func NewDispatcher(deps Dependencies) *Dispatcher {
	meter := otel.Meter(instrumentationName)
	messagesCounter, err := meter.Int64Counter("messages_handled", metric.WithDescription("Total number of handled user messages"))
	if err != nil {
		panic(fmt.Sprintf("failed to create messages_handled counter: %v", err))
	}
	ordersCounter, err := meter.Int64Counter("orders_created", metric.WithDescription("Total number of confirmed orders"))
	if err != nil {
		panic(fmt.Sprintf("failed to create orders_created counter: %v", err))
	}
	rejectionsCounter, err := meter.Int64Counter("input_rejections", metric.WithDescription("Total number of re-prompted user inputs"))
	if err != nil {
		panic(fmt.Sprintf("failed to create input_rejections counter: %v", err))
	}

	publisher := deps.Publisher
	if publisher == nil {
		publisher = messaging.NoopPublisher{}
	}
	return &Dispatcher{
		engine:            deps.Engine,
		sessions:          deps.Sessions,
		locker:            deps.Locker,
		orders:            deps.Orders,
		publisher:         publisher,
		retry:             deps.Retry,
		limiter:           newUserLimiter(deps.RateLimit),
		logger:            deps.Logger.With("component", "dispatcher"),
		tracer:            otel.Tracer(instrumentationName),
		messagesCounter:   messagesCounter,
		ordersCounter:     ordersCounter,
		rejectionsCounter: rejectionsCounter,
	}
}

// Handle processes one message from userID and returns the reply to show.
// It never fails: faults are logged and answered with a fallback reply.
func (d *Dispatcher) Handle(ctx context.Context, userID, text string) engine.Reply {
	ctx = logger.WithUserID(ctx, userID)
	ctx, span := d.tracer.Start(ctx, "Dispatcher.Handle", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if !d.limiter.Allow(userID) {
		d.logger.WarnContext(ctx, "User is sending messages too fast")
		d.count(ctx, "throttled")
		return engine.ThrottledReply()
	}

	unlock, err := d.locker.Lock(ctx, userID)
	if err != nil {
		d.fail(ctx, span, "Failed to acquire user lock", err)
		return engine.FallbackReply()
	}
	defer unlock()

	reply, err := d.handleLocked(ctx, userID, text)
	if err != nil {
		d.fail(ctx, span, "Failed to handle message", err)
		d.resetToMenu(ctx, userID)
		return engine.FallbackReply()
	}
	d.count(ctx, "ok")
	return reply
}

func (d *Dispatcher) handleLocked(ctx context.Context, userID, text string) (engine.Reply, error) {
	current, err := d.sessions.Load(ctx, userID)
	if errors.Is(err, boterrors.ErrSessionCorrupted) {
		d.logger.WarnContext(ctx, "Stored session is corrupted, starting over", "error", err)
		current, err = engine.NewSession(userID), nil
	}
	if err != nil {
		return engine.Reply{}, err
	}

	res, err := d.step(ctx, current, text)
	if err != nil {
		return engine.Reply{}, err
	}
	if res.Rejection != nil {
		d.logger.DebugContext(ctx, "Input rejected", "state", current.State.String(), "reason", res.Rejection.Error())
		d.rejectionsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", res.Rejection.Error())))
	}

	var placed *engine.Order
	if res.Order != nil {
		err := d.insertOrder(ctx, res.Order)
		switch {
		case err == nil:
			placed = res.Order
		case errors.Is(err, boterrors.ErrOrderExists) && d.placedBy(ctx, res.Order.ID, userID):
			// A confirmation replayed from a session that was never cleared.
			d.logger.WarnContext(ctx, "Order was already placed, confirming without a new insert", "order_id", res.Order.ID)
		default:
			return engine.Reply{}, fmt.Errorf("persist order %s: %w", res.Order.ID, err)
		}
	}

	if err := d.saveSession(ctx, res.Session); err != nil {
		if res.Order == nil {
			return engine.Reply{}, err
		}
		d.logger.ErrorContext(ctx, "Failed to save session after order was placed", "order_id", res.Order.ID, "error", err)
		d.saveCommitted(ctx, res.Session)
	}

	if placed != nil {
		d.ordersCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", placed.PaymentMethod)))
		d.logger.InfoContext(ctx, "Order created", "order_id", placed.ID, "total", placed.Total.StringFixed(2), "items", len(placed.Items))
		d.publishOrderCreated(ctx, placed)
	}
	return res.Reply, nil
}

// step runs the engine, turning a panic into an error.
func (d *Dispatcher) step(ctx context.Context, current *engine.Session, text string) (res engine.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic in state %s: %v", current.State, r)
		}
	}()
	ctx, span := d.tracer.Start(ctx, "Engine.Step", trace.WithAttributes(attribute.String("state", current.State.String())))
	defer span.End()
	return d.engine.Step(ctx, current, text)
}

func (d *Dispatcher) insertOrder(ctx context.Context, order *engine.Order) error {
	ctx, span := d.tracer.Start(ctx, "OrderStore.Insert", trace.WithAttributes(attribute.String("order.id", order.ID)))
	defer span.End()

	err := resilience.Retry(ctx, d.retry, func() error {
		err := d.orders.Insert(ctx, order)
		if errors.Is(err, boterrors.ErrOrderExists) {
			return resilience.Permanent(err)
		}
		if err != nil {
			d.logger.WarnContext(ctx, "Order insert failed, retrying", "order_id", order.ID, "error", err)
		}
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

func (d *Dispatcher) saveSession(ctx context.Context, s *engine.Session) error {
	return resilience.Retry(ctx, d.retry, func() error {
		return d.sessions.Save(ctx, s)
	})
}

// placedBy reports whether the order with the given ID is stored and belongs to userID.
func (d *Dispatcher) placedBy(ctx context.Context, orderID, userID string) bool {
	existing, err := d.orders.FindByID(ctx, orderID)
	if err != nil {
		return false
	}
	return existing.UserID == userID
}

// saveCommitted retries saving the session that follows a placed order on a
// context detached from the request. If it still fails, the stored session
// keeps the reserved order ID, so a repeated confirmation does not insert twice.
func (d *Dispatcher) saveCommitted(ctx context.Context, s *engine.Session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetTimeout)
	defer cancel()

	if err := d.saveSession(ctx, s); err != nil {
		d.logger.ErrorContext(ctx, "Failed to save cleared session after order was placed", "error", err)
	}
}

func (d *Dispatcher) publishOrderCreated(ctx context.Context, order *engine.Order) {
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event := events.OrderCreatedEvent{
		Carrier:       carrier,
		OrderID:       order.ID,
		UserID:        order.UserID,
		Total:         order.Total.StringFixed(2),
		ItemCount:     len(order.Items),
		PaymentMethod: order.PaymentMethod,
		CreatedAt:     order.CreatedAt,
	}
	if err := d.publisher.Publish(ctx, event); err != nil {
		d.logger.ErrorContext(ctx, "Failed to publish OrderCreatedEvent", "order_id", order.ID, "error", err)
		return
	}
	d.logger.DebugContext(ctx, "OrderCreatedEvent published", "order_id", order.ID)
}

// resetToMenu moves the stored session back to MENU, keeping the cart.
func (d *Dispatcher) resetToMenu(ctx context.Context, userID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetTimeout)
	defer cancel()

	s, err := d.sessions.Load(ctx, userID)
	if err != nil {
		s = engine.NewSession(userID)
	}
	s.ResetToMenu()
	if err := d.sessions.Save(ctx, s); err != nil {
		d.logger.WarnContext(ctx, "Failed to reset session after fault", "error", err)
	}
}

func (d *Dispatcher) fail(ctx context.Context, span trace.Span, msg string, err error) {
	d.logger.ErrorContext(ctx, msg, "error", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	d.count(ctx, "fault")
}

func (d *Dispatcher) count(ctx context.Context, outcome string) {
	d.messagesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// FindOrder returns a stored order by ID.
func (d *Dispatcher) FindOrder(ctx context.Context, id string) (*engine.Order, error) {
	return d.orders.FindByID(ctx, id)
}

// ListOrders returns a page of the user's orders, newest first.
func (d *Dispatcher) ListOrders(ctx context.Context, userID string, offset, limit int32) ([]engine.Order, error) {
	return d.orders.FindByUserID(ctx, userID, offset, limit)
}
