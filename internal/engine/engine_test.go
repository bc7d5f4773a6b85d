package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/abgdnv/orderbot/internal/catalog"
	boterrors "github.com/abgdnv/orderbot/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Product{
		{ID: "1", Name: "Agua Mineral 355ml", Price: decimal.RequireFromString("10.00"), Stock: 100},
		{ID: "2", Name: "Agua Mineral 600ml", Price: decimal.RequireFromString("15.00"), Stock: 80},
		{ID: "3", Name: "Agua Mineral de Vidrio", Price: decimal.RequireFromString("25.00"), Stock: 5},
	})
	require.NoError(t, err)
	return cat
}

func newTestEngine(t *testing.T, cfg Config, finder OrderFinder) *Engine {
	t.Helper()
	e, err := New(testCatalog(t), cfg, finder)
	require.NoError(t, err)
	e.now = func() time.Time { return fixedNow }
	e.ids.now = e.now
	return e
}

// mockFinder is a mock implementation of the OrderFinder interface
type mockFinder struct {
	order *Order
	err   error
}

func (m *mockFinder) FindByID(_ context.Context, _ string) (*Order, error) {
	return m.order, m.err
}

// drive feeds messages in order and returns the final result.
func drive(t *testing.T, e *Engine, s *Session, messages ...string) Result {
	t.Helper()
	var res Result
	for _, msg := range messages {
		var err error
		res, err = e.Step(context.Background(), s, msg)
		require.NoError(t, err, "message %q", msg)
		s = res.Session
	}
	return res
}

func Test_Engine_PurchaseEndToEnd(t *testing.T) {
	// given
	e := newTestEngine(t, DefaultConfig(), nil)
	s := NewSession("42")

	// when
	res := drive(t, e, s, "💧 Comprar Agua", "Agua Mineral 355ml - $10.00", "5")

	// then
	require.Equal(t, StateProductSelection, res.Session.State)
	require.Len(t, res.Session.Cart.Items, 1)
	assert.Equal(t, "50.00", res.Session.Cart.Total.StringFixed(2))
	assert.Contains(t, res.Reply.Text, "Total carrito: $50.00")

	// when
	res = drive(t, e, res.Session, "pagar")

	// then
	assert.Equal(t, StateShippingInfo, res.Session.State)

	// when
	res = drive(t, e, res.Session, "Juan Pérez\nCalle Hidalgo #123\n555-123-4567")

	// then
	assert.Equal(t, StatePaymentMethod, res.Session.State)
	assert.Equal(t, "Juan Pérez\nCalle Hidalgo #123\n555-123-4567", res.Session.ShippingInfo)

	// when
	res = drive(t, e, res.Session, "💰 Pago contra Entrega")

	// then
	assert.Equal(t, StateConfirmation, res.Session.State)
	assert.Equal(t, "💰 Pago contra Entrega", res.Session.PaymentMethod)
	assert.Contains(t, res.Reply.Text, "5x Agua Mineral 355ml - $50.00")

	// when
	res = drive(t, e, res.Session, "✅ Sí, confirmar pedido")

	// then
	require.NotNil(t, res.Order)
	assert.Equal(t, OrderStatusPending, res.Order.Status)
	assert.Equal(t, "42", res.Order.UserID)
	assert.Equal(t, "50.00", res.Order.Total.StringFixed(2))
	assert.Equal(t, "2-3 horas", res.Order.ETA)
	assert.Equal(t, fixedNow, res.Order.CreatedAt)
	assert.True(t, strings.HasPrefix(res.Order.ID, "P20250314092653-"))
	assert.Len(t, res.Order.Items, 1)
	assert.Equal(t, StateMenu, res.Session.State)
	assert.True(t, res.Session.Cart.IsEmpty())
	assert.True(t, res.Session.Cart.Total.IsZero())
	assert.Empty(t, res.Session.ShippingInfo)
	assert.Empty(t, res.Session.PaymentMethod)
	assert.Contains(t, res.Reply.Text, res.Order.ID)
	assert.Equal(t, mainMenuOptions(), res.Reply.Options)
}

func Test_Engine_StepDoesNotMutateInput(t *testing.T) {
	// given
	e := newTestEngine(t, DefaultConfig(), nil)
	s := drive(t, e, NewSession("1"), "comprar", "Agua Mineral 600ml").Session
	before := s.Clone()

	// when
	res, err := e.Step(context.Background(), s, "3")

	// then
	require.NoError(t, err)
	assert.Equal(t, before, s)
	assert.NotSame(t, s, res.Session)
	assert.Len(t, res.Session.Cart.Items, 1)
}

func Test_Engine_UniversalInterruptKeepsCart(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil)
	withCart := drive(t, e, NewSession("1"), "comprar", "Agua Mineral 600ml", "2").Session

	testCases := []struct {
		name  string
		state State
	}{
		{name: "from menu", state: StateMenu},
		{name: "from product selection", state: StateProductSelection},
		{name: "from quantity", state: StateQuantity},
		{name: "from shipping info", state: StateShippingInfo},
		{name: "from payment method", state: StatePaymentMethod},
		{name: "from confirmation", state: StateConfirmation},
		{name: "from status lookup", state: StateOrderStatusLookup},
		{name: "from contact", state: StateContact},
		{name: "from settings", state: StateSettings},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			s := withCart.Clone()
			s.State = tc.state

			// when
			res, err := e.Step(context.Background(), s, "🔙 Menú Principal")

			// then
			require.NoError(t, err)
			assert.Nil(t, res.Rejection)
			assert.Equal(t, StateMenu, res.Session.State)
			assert.Equal(t, withCart.Cart, res.Session.Cart)
			assert.Equal(t, textBackToMenu, res.Reply.Text)
		})
	}
}

func Test_Engine_MenuRouting(t *testing.T) {
	testCases := []struct {
		name          string
		text          string
		expectedState State
		expectedText  string
	}{
		{name: "buy", text: "💧 Comprar Agua", expectedState: StateProductSelection, expectedText: textShopIntro},
		{name: "status", text: "📦 Estado de Pedido", expectedState: StateOrderStatusLookup, expectedText: textStatusPrompt},
		{name: "schedule", text: "🕐 Horarios", expectedState: StateMenu, expectedText: textSchedule},
		{name: "faq", text: "❓ Preguntas Frecuentes", expectedState: StateMenu, expectedText: textFAQ},
		{name: "promotions", text: "🎯 Promociones", expectedState: StateMenu, expectedText: textPromotions},
		{name: "contact", text: "👨‍💼 Contacto Humano", expectedState: StateContact, expectedText: textContact},
		{name: "settings", text: "⚙️ Configuración", expectedState: StateSettings, expectedText: textSettings},
		{name: "settings without accent", text: "configuracion", expectedState: StateSettings, expectedText: textSettings},
	}

	e := newTestEngine(t, DefaultConfig(), nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			res, err := e.Step(context.Background(), NewSession("1"), tc.text)

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.expectedState, res.Session.State)
			assert.Equal(t, tc.expectedText, res.Reply.Text)
		})
	}
}

func Test_Engine_MenuIsSilentOnUnknownInput(t *testing.T) {
	// given
	e := newTestEngine(t, DefaultConfig(), nil)

	// when
	res, err := e.Step(context.Background(), NewSession("1"), "hola")

	// then
	require.NoError(t, err)
	assert.ErrorIs(t, res.Rejection, boterrors.ErrUnrecognizedInput)
	assert.Empty(t, res.Reply.Text)
	assert.Equal(t, StateMenu, res.Session.State)
}

func Test_Engine_BuyClearsPreviousCart(t *testing.T) {
	// given
	e := newTestEngine(t, DefaultConfig(), nil)
	s := drive(t, e, NewSession("1"), "comprar", "Agua Mineral 600ml", "2", "menu").Session
	require.False(t, s.Cart.IsEmpty())

	// when
	res := drive(t, e, s, "comprar")

	// then
	assert.True(t, res.Session.Cart.IsEmpty())
	assert.Equal(t, StateProductSelection, res.Session.State)
}

func Test_Engine_ProductSelection(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil)
	selecting := drive(t, e, NewSession("1"), "comprar").Session

	t.Run("longest name wins", func(t *testing.T) {
		// when
		res := drive(t, e, selecting, "Agua Mineral de Vidrio - $25.00")

		// then
		require.NotNil(t, res.Session.PendingProduct)
		assert.Equal(t, "3", res.Session.PendingProduct.ID)
		assert.Equal(t, StateQuantity, res.Session.State)
	})

	t.Run("unknown product re-prompts", func(t *testing.T) {
		// when
		res := drive(t, e, selecting, "Refresco")

		// then
		assert.ErrorIs(t, res.Rejection, boterrors.ErrUnrecognizedInput)
		assert.Equal(t, StateProductSelection, res.Session.State)
		assert.Equal(t, textUnknownProd, res.Reply.Text)
		assert.Len(t, res.Reply.Options, 4)
	})
}

func Test_Engine_QuantityRejections(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil)
	// Vidrio has 5 in stock.
	quantity := drive(t, e, NewSession("1"), "comprar", "Agua Mineral 600ml", "1", "Agua Mineral de Vidrio").Session

	testCases := []struct {
		name        string
		text        string
		expectedErr error
	}{
		{name: "not a number", text: "cinco", expectedErr: boterrors.ErrInvalidQuantity},
		{name: "decimal", text: "2.5", expectedErr: boterrors.ErrInvalidQuantity},
		{name: "zero", text: "0", expectedErr: boterrors.ErrInvalidQuantity},
		{name: "negative", text: "-3", expectedErr: boterrors.ErrInvalidQuantity},
		{name: "above stock", text: "6", expectedErr: boterrors.ErrInsufficientStock},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			res, err := e.Step(context.Background(), quantity, tc.text)

			// then
			require.NoError(t, err)
			assert.ErrorIs(t, res.Rejection, tc.expectedErr)
			assert.Equal(t, StateQuantity, res.Session.State)
			assert.Equal(t, quantity.Cart, res.Session.Cart)
			assert.Equal(t, quantity.PendingProduct, res.Session.PendingProduct)
		})
	}

	t.Run("exactly stock is accepted", func(t *testing.T) {
		// when
		res := drive(t, e, quantity, " 5 ")

		// then
		assert.Nil(t, res.Rejection)
		assert.Len(t, res.Session.Cart.Items, 2)
		assert.Equal(t, "140.00", res.Session.Cart.Total.StringFixed(2))
	})
}

func Test_Engine_SameProductTwiceAddsTwoLines(t *testing.T) {
	// given
	e := newTestEngine(t, DefaultConfig(), nil)

	// when
	res := drive(t, e, NewSession("1"), "comprar", "Agua Mineral 355ml", "2", "Agua Mineral 355ml", "3")

	// then
	require.Len(t, res.Session.Cart.Items, 2)
	assert.Equal(t, "50.00", res.Session.Cart.Total.StringFixed(2))
}

func Test_Engine_PayShortcut(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil)

	t.Run("empty cart returns to product selection", func(t *testing.T) {
		// given
		s := drive(t, e, NewSession("1"), "comprar").Session

		// when
		res := drive(t, e, s, "pagar")

		// then
		assert.ErrorIs(t, res.Rejection, boterrors.ErrEmptyCartCheckout)
		assert.Equal(t, StateProductSelection, res.Session.State)
		assert.Equal(t, textEmptyCart, res.Reply.Text)
	})

	t.Run("works from quantity", func(t *testing.T) {
		// given
		s := drive(t, e, NewSession("1"), "comprar", "Agua Mineral 355ml", "1", "Agua Mineral 600ml").Session
		require.Equal(t, StateQuantity, s.State)

		// when
		res := drive(t, e, s, "Pagar ahora")

		// then
		assert.Equal(t, StateShippingInfo, res.Session.State)
		assert.Nil(t, res.Session.PendingProduct)
	})

	t.Run("ignored outside purchase states", func(t *testing.T) {
		// when
		res := drive(t, e, NewSession("1"), "pagar")

		// then
		assert.Equal(t, StateMenu, res.Session.State)
		assert.ErrorIs(t, res.Rejection, boterrors.ErrUnrecognizedInput)
	})
}

func Test_Engine_ShippingAndPayment(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil)
	shipping := drive(t, e, NewSession("1"), "comprar", "Agua Mineral 355ml", "1", "pagar").Session
	payment := drive(t, e, shipping, "Ana López, Av. Juárez 10").Session

	t.Run("blank shipping is rejected", func(t *testing.T) {
		res := drive(t, e, shipping, "   ")

		assert.ErrorIs(t, res.Rejection, boterrors.ErrUnrecognizedInput)
		assert.Equal(t, StateShippingInfo, res.Session.State)
	})

	t.Run("back returns to shipping", func(t *testing.T) {
		res := drive(t, e, payment, "🔙 Atrás")

		assert.Nil(t, res.Rejection)
		assert.Equal(t, StateShippingInfo, res.Session.State)
		assert.Equal(t, textShippingAgain, res.Reply.Text)
	})

	t.Run("back inside a sentence is the menu interrupt", func(t *testing.T) {
		res := drive(t, e, payment, "quiero volver atrás")

		assert.Equal(t, StateMenu, res.Session.State)
	})

	t.Run("keyword selects method", func(t *testing.T) {
		res := drive(t, e, payment, "con tarjeta por favor")

		assert.Equal(t, StateConfirmation, res.Session.State)
		assert.Equal(t, "💳 Tarjeta de Crédito/Débito", res.Session.PaymentMethod)
	})

	t.Run("summary shows the recomputed total", func(t *testing.T) {
		stale := payment.Clone()
		stale.Cart.Total = decimal.NewFromInt(999)

		res := drive(t, e, stale, "efectivo")

		assert.Contains(t, res.Reply.Text, "Total: $10.00")
		assert.NotContains(t, res.Reply.Text, "999")
	})

	t.Run("unknown method re-prompts", func(t *testing.T) {
		res := drive(t, e, payment, "bitcoin")

		assert.ErrorIs(t, res.Rejection, boterrors.ErrUnrecognizedInput)
		assert.Equal(t, StatePaymentMethod, res.Session.State)
		assert.Equal(t, []string{
			"💳 Tarjeta de Crédito/Débito", "💰 Pago contra Entrega", "🏦 Transferencia Bancaria", optBack,
		}, res.Reply.Options)
	})
}

func Test_Engine_Confirmation(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil)
	confirming := drive(t, e, NewSession("1"),
		"comprar", "Agua Mineral 355ml", "1", "pagar", "Ana López", "transferencia").Session
	require.Equal(t, StateConfirmation, confirming.State)

	t.Run("cancel clears the cart", func(t *testing.T) {
		res := drive(t, e, confirming, "❌ No, cancelar compra")

		assert.Nil(t, res.Order)
		assert.Equal(t, StateMenu, res.Session.State)
		assert.True(t, res.Session.Cart.IsEmpty())
		assert.Equal(t, textCancelled, res.Reply.Text)
	})

	t.Run("no inside a word is not a cancel", func(t *testing.T) {
		res := drive(t, e, confirming, "bueno")

		assert.ErrorIs(t, res.Rejection, boterrors.ErrUnrecognizedInput)
		assert.Equal(t, StateConfirmation, res.Session.State)
		assert.False(t, res.Session.Cart.IsEmpty())
	})

	t.Run("plain yes confirms", func(t *testing.T) {
		res := drive(t, e, confirming, "Si")

		require.NotNil(t, res.Order)
		assert.Equal(t, "🏦 Transferencia Bancaria", res.Order.PaymentMethod)
	})

	t.Run("empty cart cannot be confirmed", func(t *testing.T) {
		s := confirming.Clone()
		s.Cart.Clear()

		res := drive(t, e, s, "sí")

		assert.Nil(t, res.Order)
		assert.ErrorIs(t, res.Rejection, boterrors.ErrEmptyCartCheckout)
		assert.Equal(t, StateConfirmation, res.Session.State)
	})
}

func Test_Engine_OrderIDsAreUnique(t *testing.T) {
	// given
	e := newTestEngine(t, DefaultConfig(), nil)
	checkout := []string{"comprar", "Agua Mineral 355ml", "1", "pagar", "Ana López", "efectivo"}
	firstSummary := drive(t, e, NewSession("1"), checkout...).Session
	secondSummary := drive(t, e, NewSession("1"), checkout...).Session

	// when
	first := drive(t, e, firstSummary, "confirmar")
	second := drive(t, e, secondSummary, "confirmar")

	// then
	require.NotNil(t, first.Order)
	require.NotNil(t, second.Order)
	assert.NotEqual(t, first.Order.ID, second.Order.ID)
	assert.Empty(t, first.Session.CheckoutID)
}

func Test_Engine_ReplayedConfirmationProposesSameOrder(t *testing.T) {
	// given
	e := newTestEngine(t, DefaultConfig(), nil)
	confirming := drive(t, e, NewSession("1"),
		"comprar", "Agua Mineral 355ml", "1", "pagar", "Ana López", "efectivo").Session
	require.NotEmpty(t, confirming.CheckoutID)

	// when
	first := drive(t, e, confirming, "confirmar")
	replayed := drive(t, e, confirming, "confirmar")

	// then
	require.NotNil(t, first.Order)
	require.NotNil(t, replayed.Order)
	assert.Equal(t, confirming.CheckoutID, first.Order.ID)
	assert.Equal(t, first.Order.ID, replayed.Order.ID)
}

func Test_Engine_NewSummaryReservesNewOrderID(t *testing.T) {
	// given
	e := newTestEngine(t, DefaultConfig(), nil)
	confirming := drive(t, e, NewSession("1"),
		"comprar", "Agua Mineral 355ml", "1", "pagar", "Ana López", "efectivo").Session

	// when
	again := drive(t, e, confirming, "pagar", "Ana López", "tarjeta").Session
	cancelled := drive(t, e, confirming, "no").Session

	// then
	assert.Equal(t, StateConfirmation, again.State)
	assert.NotEqual(t, confirming.CheckoutID, again.CheckoutID)
	assert.Empty(t, cancelled.CheckoutID)
}

func Test_Engine_Commands(t *testing.T) {
	e := newTestEngine(t, DefaultConfig(), nil)
	withCart := drive(t, e, NewSession("1"), "comprar", "Agua Mineral 355ml", "1").Session

	t.Run("start", func(t *testing.T) {
		res := drive(t, e, withCart, "/start")

		assert.Equal(t, StateMenu, res.Session.State)
		assert.Equal(t, textWelcome, res.Reply.Text)
		assert.Equal(t, 2, res.Reply.Columns)
	})

	t.Run("start with bot mention", func(t *testing.T) {
		res := drive(t, e, withCart, "/start@AguasBot")

		assert.Equal(t, textWelcome, res.Reply.Text)
	})

	t.Run("cancel removes the keyboard", func(t *testing.T) {
		res := drive(t, e, withCart, "/cancel")

		assert.Equal(t, StateMenu, res.Session.State)
		assert.True(t, res.Reply.RemoveKeyboard)
		assert.Equal(t, withCart.Cart, res.Session.Cart)
	})

	t.Run("estado", func(t *testing.T) {
		res := drive(t, e, withCart, "/estado")

		assert.Equal(t, StateOrderStatusLookup, res.Session.State)
	})

	t.Run("unknown command", func(t *testing.T) {
		res := drive(t, e, withCart, "/foo")

		assert.ErrorIs(t, res.Rejection, boterrors.ErrUnrecognizedInput)
		assert.Equal(t, withCart.State, res.Session.State)
	})
}

func Test_Engine_StatusLookup(t *testing.T) {
	t.Run("synthetic echoes the id", func(t *testing.T) {
		e := newTestEngine(t, DefaultConfig(), nil)

		res := drive(t, e, NewSession("1"), "/estado", "P123")

		assert.Contains(t, res.Reply.Text, "Pedido #P123")
		assert.Equal(t, StateOrderStatusLookup, res.Session.State)
	})

	cfg := DefaultConfig()
	cfg.StatusLookup = StatusLookupValidated
	order := &Order{ID: "P1", UserID: "1", Status: OrderStatusDelivered, Total: decimal.NewFromInt(30), ETA: "2-3 horas"}

	testCases := []struct {
		name          string
		finder        *mockFinder
		userID        string
		expectedText  string
		expectedRej   error
		expectedFault bool
	}{
		{name: "owner sees status", finder: &mockFinder{order: order}, userID: "1", expectedText: "Estado: Entregado"},
		{name: "other user sees not found", finder: &mockFinder{order: order}, userID: "2", expectedText: "No encontramos", expectedRej: boterrors.ErrOrderNotFound},
		{name: "missing order", finder: &mockFinder{err: boterrors.ErrOrderNotFound}, userID: "1", expectedText: "No encontramos", expectedRej: boterrors.ErrOrderNotFound},
		{name: "store failure is a fault", finder: &mockFinder{err: errors.New("connection reset")}, userID: "1", expectedFault: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			e := newTestEngine(t, cfg, tc.finder)
			s := NewSession(tc.userID)
			s.State = StateOrderStatusLookup

			// when
			res, err := e.Step(context.Background(), s, "P1")

			// then
			if tc.expectedFault {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, res.Reply.Text, tc.expectedText)
			if tc.expectedRej != nil {
				assert.ErrorIs(t, res.Rejection, tc.expectedRej)
			} else {
				assert.Nil(t, res.Rejection)
			}
		})
	}
}

func Test_Engine_GeneralizedBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GeneralizedBack = true
	e := newTestEngine(t, cfg, nil)
	s := NewSession("1")

	quantity := drive(t, e, s, "comprar", "Agua Mineral 355ml").Session
	shipping := drive(t, e, s, "comprar", "Agua Mineral 355ml", "1", "pagar").Session
	confirming := drive(t, e, shipping, "Ana", "cash").Session

	testCases := []struct {
		name          string
		session       *Session
		expectedState State
	}{
		{name: "quantity", session: quantity, expectedState: StateProductSelection},
		{name: "shipping", session: shipping, expectedState: StateProductSelection},
		{name: "confirmation", session: confirming, expectedState: StatePaymentMethod},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := drive(t, e, tc.session, "atrás")

			assert.Equal(t, tc.expectedState, res.Session.State)
			assert.Equal(t, tc.session.Cart, res.Session.Cart)
		})
	}
}

func Test_Engine_CartTotalInvariant(t *testing.T) {
	// given
	e := newTestEngine(t, DefaultConfig(), nil)
	messages := []string{"comprar", "Agua Mineral 355ml", "3", "Agua Mineral 600ml", "x", "7", "Vidrio", "Agua Mineral de Vidrio", "9", "2", "menu", "pagar"}
	s := NewSession("1")

	for _, msg := range messages {
		// when
		res, err := e.Step(context.Background(), s, msg)
		require.NoError(t, err)
		s = res.Session

		// then
		sum := decimal.Zero
		for _, item := range s.Cart.Items {
			sum = sum.Add(item.Subtotal())
		}
		assert.True(t, sum.Equal(s.Cart.Total), "after %q", msg)
	}
}

func Test_New(t *testing.T) {
	cat := testCatalog(t)
	empty, err := catalog.New(nil)
	require.NoError(t, err)

	noMethods := DefaultConfig()
	noMethods.PaymentMethods = nil
	validated := DefaultConfig()
	validated.StatusLookup = StatusLookupValidated
	unknown := DefaultConfig()
	unknown.StatusLookup = "magic"

	testCases := []struct {
		name    string
		catalog *catalog.Catalog
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", catalog: cat, cfg: DefaultConfig()},
		{name: "empty catalog", catalog: empty, cfg: DefaultConfig(), wantErr: true},
		{name: "no payment methods", catalog: cat, cfg: noMethods, wantErr: true},
		{name: "validated without finder", catalog: cat, cfg: validated, wantErr: true},
		{name: "unknown lookup mode", catalog: cat, cfg: unknown, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := New(tc.catalog, tc.cfg, nil)
			if tc.wantErr {
				assert.Error(t, err)
				assert.Nil(t, e)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, e)
		})
	}
}
