// Package engine implements the conversational ordering state machine.
// It is pure: Step takes a session and a message and returns the next session,
// the reply, and an order when a purchase is confirmed. Persistence and
// delivery belong to callers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abgdnv/orderbot/internal/catalog"
	boterrors "github.com/abgdnv/orderbot/internal/errors"
)

// StatusLookupMode selects how order status queries are answered.
type StatusLookupMode string

const (
	// StatusLookupSynthetic echoes the ID back with a fixed status.
	StatusLookupSynthetic StatusLookupMode = "synthetic"
	// StatusLookupValidated looks the order up and only answers for the owner.
	StatusLookupValidated StatusLookupMode = "validated"
)

// PaymentMethod is a selectable payment option. It matches when the message
// contains the label or any keyword, case-insensitively.
type PaymentMethod struct {
	Label    string   `koanf:"label"`
	Keywords []string `koanf:"keywords"`
}

// Config holds the vocabulary and behavior switches of the engine.
type Config struct {
	// MenuKeywords trigger the universal return to MENU from any state.
	MenuKeywords []string
	// PayKeywords jump from any purchase state to checkout.
	PayKeywords []string
	// BackTokens must match the whole message to step back.
	BackTokens      []string
	ConfirmKeywords []string
	CancelKeywords  []string
	PaymentMethods  []PaymentMethod
	ETA             string
	StatusLookup    StatusLookupMode
	// GeneralizedBack enables back navigation from QUANTITY, SHIPPING_INFO and CONFIRMATION.
	GeneralizedBack bool
}

// DefaultConfig returns the stock Spanish vocabulary.
func DefaultConfig() Config {
	return Config{
		MenuKeywords:    []string{"menu", "menú", "principal", "volver", "atrás", "atras", "inicio", "home", "regresar", "back", "cancelar"},
		PayKeywords:     []string{"pagar"},
		BackTokens:      []string{"atrás", "atras", "back"},
		ConfirmKeywords: []string{"sí", "si", "confirmar", "confirm", "yes"},
		CancelKeywords:  []string{"no", "cancelar", "cancel"},
		PaymentMethods: []PaymentMethod{
			{Label: "💳 Tarjeta de Crédito/Débito", Keywords: []string{"tarjeta", "crédito", "credito", "débito", "debito", "card"}},
			{Label: "💰 Pago contra Entrega", Keywords: []string{"contra entrega", "efectivo", "cash"}},
			{Label: "🏦 Transferencia Bancaria", Keywords: []string{"transferencia", "transfer"}},
		},
		ETA:          "2-3 horas",
		StatusLookup: StatusLookupSynthetic,
	}
}

// Result is the outcome of one step.
type Result struct {
	// Session is the next session. It never aliases the input session.
	Session *Session
	Reply   Reply
	// Order is set only when the step confirmed a purchase.
	Order *Order
	// Rejection is the recoverable error the step re-prompted for, if any.
	Rejection error
}

// Engine applies user messages to sessions.
type Engine struct {
	catalog   *catalog.Catalog
	cfg       Config
	orders    OrderFinder
	ids       *IDGenerator
	now       func() time.Time
	overrides map[State][]rule
	tables    map[State]stateTable
}

// New builds an engine over a loaded catalog. finder is required only for validated status lookups.
func New(cat *catalog.Catalog, cfg Config, finder OrderFinder) (*Engine, error) {
	if cat == nil || cat.Len() == 0 {
		return nil, fmt.Errorf("engine: catalog is empty")
	}
	if len(cfg.PaymentMethods) == 0 {
		return nil, fmt.Errorf("engine: no payment methods configured")
	}
	switch cfg.StatusLookup {
	case "":
		cfg.StatusLookup = StatusLookupSynthetic
	case StatusLookupSynthetic:
	case StatusLookupValidated:
		if finder == nil {
			return nil, fmt.Errorf("engine: validated status lookup requires an order finder")
		}
	default:
		return nil, fmt.Errorf("engine: unknown status lookup mode %q", cfg.StatusLookup)
	}
	if cfg.ETA == "" {
		cfg.ETA = DefaultConfig().ETA
	}

	cfg.MenuKeywords = normalizeKeywords(cfg.MenuKeywords)
	cfg.PayKeywords = normalizeKeywords(cfg.PayKeywords)
	cfg.BackTokens = normalizeKeywords(cfg.BackTokens)
	cfg.ConfirmKeywords = normalizeKeywords(cfg.ConfirmKeywords)
	cfg.CancelKeywords = normalizeKeywords(cfg.CancelKeywords)
	methods := make([]PaymentMethod, len(cfg.PaymentMethods))
	for i, m := range cfg.PaymentMethods {
		if strings.TrimSpace(m.Label) == "" {
			return nil, fmt.Errorf("engine: payment method %d has no label", i)
		}
		methods[i] = PaymentMethod{Label: m.Label, Keywords: normalizeKeywords(m.Keywords)}
	}
	cfg.PaymentMethods = methods

	e := &Engine{
		catalog: cat,
		cfg:     cfg,
		orders:  finder,
		ids:     NewIDGenerator(),
		now:     time.Now,
	}
	e.overrides = e.buildOverrides()
	e.tables = e.buildTables()
	return e, nil
}

// Catalog returns the catalog the engine sells from.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Step applies one message to the session. The returned error is reserved for
// faults the engine cannot recover from; invalid input is reported in Result.Rejection.
func (e *Engine) Step(ctx context.Context, current *Session, text string) (Result, error) {
	if current == nil {
		return Result{}, fmt.Errorf("engine: nil session")
	}
	t := newTurn(ctx, current, text)
	if err := e.dispatch(t); err != nil {
		return Result{}, err
	}
	t.s.UpdatedAt = e.now()
	return Result{Session: t.s, Reply: t.reply, Order: t.order, Rejection: t.rejection}, nil
}

func (e *Engine) dispatch(t *turn) error {
	if strings.HasPrefix(t.text, "/") {
		return e.command(t)
	}
	if t.s.State.purchase() && containsAny(t.lower, e.cfg.PayKeywords) {
		return e.checkout(t)
	}
	if r, ok := firstMatch(e.overrides[t.s.State], t); ok {
		return e.apply(r, t)
	}
	if containsAny(t.lower, e.cfg.MenuKeywords) {
		t.s.ResetToMenu()
		t.reply = mainMenu(textBackToMenu)
		return nil
	}
	table, ok := e.tables[t.s.State]
	if !ok {
		// Unknown state: recover to the menu rather than wedge the user.
		t.s.ResetToMenu()
		t.reply = mainMenu(textBackToMenu)
		return nil
	}
	if r, ok := firstMatch(table.rules, t); ok {
		return e.apply(r, t)
	}
	return table.fallback(e, t)
}

func (e *Engine) apply(r rule, t *turn) error {
	t.s.State = r.target
	return r.effect(e, t)
}

func (e *Engine) command(t *turn) error {
	name := strings.TrimPrefix(strings.Fields(t.lower)[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	switch name {
	case "start":
		t.s.ResetToMenu()
		t.reply = mainMenu(textWelcome)
	case "cancel":
		t.s.ResetToMenu()
		t.reply = Reply{Text: textGoodbye, RemoveKeyboard: true}
	case "estado":
		t.s.PendingProduct = nil
		t.s.State = StateOrderStatusLookup
		return e.askOrderID(t)
	default:
		t.reject(boterrors.ErrUnrecognizedInput, Reply{})
	}
	return nil
}

// checkout handles the pay shortcut.
func (e *Engine) checkout(t *turn) error {
	if t.s.Cart.IsEmpty() {
		t.reject(boterrors.ErrEmptyCartCheckout, e.catalogReply(textEmptyCart))
		t.s.State = StateProductSelection
		t.s.PendingProduct = nil
		return nil
	}
	t.s.PendingProduct = nil
	t.s.State = StateShippingInfo
	t.reply = withBack(textShipping)
	return nil
}

func (e *Engine) startPurchase(t *turn) error {
	t.s.Cart.Clear()
	t.s.PendingProduct = nil
	t.s.CheckoutID = ""
	t.reply = e.catalogReply(textShopIntro)
	return nil
}

func (e *Engine) showCatalog(t *turn) error {
	t.s.PendingProduct = nil
	t.reply = e.catalogReply(textShopIntro)
	return nil
}

func (e *Engine) askOrderID(t *turn) error {
	t.reply = withBack(textStatusPrompt)
	return nil
}

func (e *Engine) selectProduct(t *turn) error {
	p, ok := e.catalog.Match(t.text)
	if !ok {
		t.reject(boterrors.ErrUnrecognizedInput, e.catalogReply(textUnknownProd))
		return nil
	}
	t.s.PendingProduct = &p
	t.s.State = StateQuantity
	t.reply = withBack(selectedProductText(p))
	return nil
}

func (e *Engine) addQuantity(t *turn) error {
	p := t.s.PendingProduct
	if p == nil {
		t.s.State = StateProductSelection
		t.reply = e.catalogReply(textShopIntro)
		return nil
	}
	n, err := strconv.Atoi(t.text)
	switch {
	case err != nil:
		t.reject(boterrors.ErrInvalidQuantity, withBack(textQtyNotNumber))
	case n <= 0:
		t.reject(boterrors.ErrInvalidQuantity, withBack(textQtyNotPos))
	case n > p.Stock:
		t.reject(boterrors.ErrInsufficientStock, withBack(insufficientStockText(p.Stock)))
	default:
		item := t.s.Cart.Add(*p, n)
		t.s.PendingProduct = nil
		t.s.State = StateProductSelection
		t.reply = e.catalogReply(addedToCartText(item, t.s.Cart))
	}
	return nil
}

func (e *Engine) collectShipping(t *turn) error {
	if t.text == "" {
		t.reject(boterrors.ErrUnrecognizedInput, withBack(textShippingEmpty))
		return nil
	}
	t.s.ShippingInfo = t.text
	t.s.State = StatePaymentMethod
	t.reply = e.paymentReply(textPayment)
	return nil
}

func (e *Engine) backToShipping(t *turn) error {
	t.reply = withBack(textShippingAgain)
	return nil
}

func (e *Engine) showPaymentMethods(t *turn) error {
	t.reply = e.paymentReply(textPayment)
	return nil
}

func (e *Engine) choosePayment(t *turn) error {
	for _, m := range e.cfg.PaymentMethods {
		if strings.Contains(t.lower, strings.ToLower(m.Label)) || containsAny(t.lower, m.Keywords) {
			t.s.PaymentMethod = m.Label
			t.s.CheckoutID = e.ids.Next()
			t.s.State = StateConfirmation
			t.reply = confirmationReply(summaryText(t.s))
			return nil
		}
	}
	t.reject(boterrors.ErrUnrecognizedInput, e.paymentReply(textPaymentUnknwn))
	return nil
}

func (e *Engine) repromptConfirmation(t *turn) error {
	t.reject(boterrors.ErrUnrecognizedInput, confirmationReply(textConfirmAgain))
	return nil
}

func (e *Engine) cancelPurchase(t *turn) error {
	t.s.Cart.Clear()
	t.s.PendingProduct = nil
	t.s.ShippingInfo = ""
	t.s.PaymentMethod = ""
	t.s.CheckoutID = ""
	t.reply = mainMenu(textCancelled)
	return nil
}

// finalize turns the confirmed cart into an order and resets the purchase.
func (e *Engine) finalize(t *turn) error {
	if t.s.Cart.IsEmpty() || t.s.ShippingInfo == "" || t.s.PaymentMethod == "" {
		t.reject(boterrors.ErrEmptyCartCheckout, confirmationReply(textEmptyCart))
		return nil
	}
	id := t.s.CheckoutID
	if id == "" {
		id = e.ids.Next()
	}
	snapshot := t.s.Cart.Clone()
	snapshot.Recompute()
	order := &Order{
		ID:            id,
		UserID:        t.s.UserID,
		Items:         snapshot.Items,
		Total:         snapshot.Total,
		ShippingInfo:  t.s.ShippingInfo,
		PaymentMethod: t.s.PaymentMethod,
		Status:        OrderStatusPending,
		CreatedAt:     e.now(),
		ETA:           e.cfg.ETA,
	}
	t.s.Cart.Clear()
	t.s.PendingProduct = nil
	t.s.ShippingInfo = ""
	t.s.PaymentMethod = ""
	t.s.CheckoutID = ""
	t.order = order
	t.reply = mainMenu(orderConfirmedText(order))
	return nil
}

func (e *Engine) lookupOrder(t *turn) error {
	id := t.text
	if id == "" {
		t.reject(boterrors.ErrUnrecognizedInput, withBack(textStatusPrompt))
		return nil
	}
	if e.cfg.StatusLookup != StatusLookupValidated {
		t.reply = withBack(syntheticStatusText(id))
		return nil
	}

	order, err := e.orders.FindByID(t.ctx, id)
	if err != nil && !errors.Is(err, boterrors.ErrOrderNotFound) {
		return fmt.Errorf("lookup order %s: %w", id, err)
	}
	if err != nil || order == nil || order.UserID != t.s.UserID {
		t.reject(boterrors.ErrOrderNotFound, withBack(orderNotFoundText(id)))
		return nil
	}
	t.reply = withBack(orderStatusText(order))
	return nil
}

// turn carries the working state of a single step.
type turn struct {
	ctx       context.Context
	original  *Session
	s         *Session
	text      string
	lower     string
	reply     Reply
	order     *Order
	rejection error
}

func newTurn(ctx context.Context, current *Session, text string) *turn {
	trimmed := strings.TrimSpace(text)
	return &turn{
		ctx:      ctx,
		original: current,
		s:        current.Clone(),
		text:     trimmed,
		lower:    strings.ToLower(trimmed),
	}
}

// reject discards any changes made so far and records a rejection.
func (t *turn) reject(err error, reply Reply) {
	t.s = t.original.Clone()
	t.rejection = err
	t.reply = reply
}

func (t *turn) words() []string {
	return strings.FieldsFunc(t.lower, notLetterOrDigit)
}

// token is the message with leading and trailing symbols removed.
func (t *turn) token() string {
	return strings.TrimFunc(t.lower, notLetterOrDigit)
}
