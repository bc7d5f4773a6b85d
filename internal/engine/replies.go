package engine

import (
	"fmt"
	"strings"

	"github.com/abgdnv/orderbot/internal/catalog"
)

// Reply is what the user sees after a step: text plus ordered quick-reply options.
type Reply struct {
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
	// Columns is a layout hint for rendering Options as a keyboard; 0 means one per row.
	Columns int `json:"columns,omitempty"`
	// RemoveKeyboard asks the transport to hide any previously shown keyboard.
	RemoveKeyboard bool `json:"remove_keyboard,omitempty"`
}

const (
	optBuy       = "💧 Comprar Agua"
	optPromos    = "🎯 Promociones"
	optStatus    = "📦 Estado de Pedido"
	optSchedule  = "🕐 Horarios"
	optSettings  = "⚙️ Configuración"
	optFAQ       = "❓ Preguntas Frecuentes"
	optContact   = "👨‍💼 Contacto Humano"
	optMainMenu  = "🔙 Menú Principal"
	optBack      = "🔙 Atrás"
	optConfirm   = "✅ Sí, confirmar pedido"
	optCancelBuy = "❌ No, cancelar compra"
)

const (
	textWelcome = "💧 ¡Bienvenido a Aguas de Lourdes! 💧\n\n" +
		"Elige una opción para continuar:\n\n" +
		"💡 Tips:\n" +
		"- Usa el teclado para navegar\n" +
		"- Escribe \"menu\" en cualquier momento para volver"
	textBackToMenu   = "🏠 Volviendo al menú principal..."
	textGoodbye      = "👋 ¡Gracias por visitar!"
	textFallback     = "⚠️ Error. Escribe 'menu' para volver"
	textThrottled    = "⏳ Estás enviando mensajes muy rápido. Espera un momento e intenta de nuevo."
	textShopIntro    = "🛍️ SISTEMA DE COMPRAS\n\n💡 ¿Qué tipo de agua deseas comprar?"
	textUnknownProd  = "❌ Producto no reconocido. Por favor selecciona una opción del teclado."
	textQtyNotNumber = "❌ Por favor ingresa un número válido:"
	textQtyNotPos    = "❌ La cantidad debe ser mayor a 0. Intenta de nuevo:"
	textEmptyCart    = "🛒 Tu carrito está vacío. Agrega productos primero."
	textShipping     = "📦 DATOS DE ENVÍO\n\n" +
		"Por favor proporciona:\n• Nombre completo\n• Dirección\n• Teléfono\n• Referencias\n\n" +
		"💡 Ejemplo:\nJuan Pérez\nCalle Hidalgo #123\n555-123-4567"
	textShippingAgain = "📦 Ingresa tus datos de envío:"
	textShippingEmpty = "❌ Los datos de envío no pueden estar vacíos."
	textPayment       = "💳 MÉTODO DE PAGO\n\nElige tu método de pago:"
	textPaymentUnknwn = "❌ Método de pago no reconocido. Elige una opción del teclado:"
	textConfirmAgain  = "❌ Opción no reconocida. ¿Confirmas?"
	textCancelled     = "❌ Pedido cancelado."
	textStatusPrompt  = "📦 Por favor, ingresa tu número de pedido:\n\n💡 Escribe 'menu' para volver"
	textSchedule      = "🕐 HORARIOS DE ATENCIÓN\n\n" +
		"Lunes a Viernes: 9:00 - 18:00 hrs\n" +
		"Sábados: 9:00 - 14:00 hrs\n" +
		"Domingos: Cerrado\n\n" +
		"💡 Escribe 'menu' para volver"
	textFAQ = "❓ PREGUNTAS FRECUENTES\n\n" +
		"1. ¿Cuánto tarda el envío? → 24-48 horas\n" +
		"2. ¿A qué lugares hacen entregas? → Área metropolitana\n" +
		"3. ¿Qué métodos de pago aceptan? → Tarjeta, transferencia, efectivo\n" +
		"4. ¿El agua es de manantial? → ¡Sí! 100% natural\n" +
		"5. ¿Políticas de devolución? → 3 días hábiles con ticket\n\n" +
		"💡 Escribe 'menu' para volver"
	textPromotions = "🎯 PROMOCIONES ACTUALES\n\n" +
		"🔥 OFERTA ESPECIAL:\n" +
		"• Pack 12 botellas 600ml: 10% descuento\n" +
		"• Combo 6 vidrio + 6 PET: $199\n" +
		"• 🚚 Envío gratis en compras > $500\n\n" +
		"💡 Escribe 'menu' para volver"
	textContact = "👨‍💼 CONTACTO Y SOPORTE\n\n" +
		"📞 Teléfono: +52 444 812 3132\n" +
		"📧 Email: ventas@aguasdelourdes.com.mx\n" +
		"🌐 Website: https://aguasdelourdes.com.mx/\n\n" +
		"💡 Escribe 'menu' para volver"
	textContactAck = "📩 Mensaje recibido\n\nUn agente te contactará pronto.\n💡 Escribe 'menu' para volver"
	textSettings   = "⚙️ CONFIGURACIÓN DE USUARIO\n\n" +
		"📝 Datos personales\n🏠 Direcciones de envío\n💳 Métodos de pago\n🔔 Notificaciones\n\n" +
		"💡 Escribe 'menu' para volver"
	textSettingsWip = "🔧 Configuración en desarrollo\n💡 Escribe 'menu' para volver"
)

func mainMenuOptions() []string {
	return []string{optBuy, optPromos, optStatus, optSchedule, optSettings, optFAQ, optContact}
}

func mainMenu(text string) Reply {
	return Reply{Text: text, Options: mainMenuOptions(), Columns: 2}
}

func withBack(text string) Reply {
	return Reply{Text: text, Options: []string{optMainMenu}}
}

// FallbackReply is shown when a message could not be processed.
func FallbackReply() Reply {
	return mainMenu(textFallback)
}

// ThrottledReply is shown when a user exceeds the message rate.
func ThrottledReply() Reply {
	return Reply{Text: textThrottled}
}

func (e *Engine) catalogReply(text string) Reply {
	products := e.catalog.Products()
	options := make([]string, 0, len(products)+1)
	for _, p := range products {
		options = append(options, p.Label())
	}
	return Reply{Text: text, Options: append(options, optMainMenu)}
}

func (e *Engine) paymentReply(text string) Reply {
	options := make([]string, 0, len(e.cfg.PaymentMethods)+1)
	for _, m := range e.cfg.PaymentMethods {
		options = append(options, m.Label)
	}
	return Reply{Text: text, Options: append(options, optBack)}
}

func confirmationReply(text string) Reply {
	return Reply{Text: text, Options: []string{optConfirm, optCancelBuy, optBack}}
}

func selectedProductText(p catalog.Product) string {
	return fmt.Sprintf("✅ Seleccionaste: %s\n💰 Precio: $%s\n📦 Stock disponible: %d unidades\n\n"+
		"💡 ¿Cuántas botellas deseas agregar al carrito?", p.Name, p.Price.StringFixed(2), p.Stock)
}

func insufficientStockText(stock int) string {
	return fmt.Sprintf("😔 Lo sentimos, stock insuficiente.\n📦 Stock actual: %d unidades\n💡 Intenta con menos:", stock)
}

func addedToCartText(item CartItem, cart Cart) string {
	return fmt.Sprintf("✅ ¡Perfecto! Agregado %d %s al carrito.\n💰 Subtotal: $%s\n🛒 Total carrito: $%s\n\n"+
		"💡 Escribe 'pagar' para continuar o selecciona otro producto:",
		item.Quantity, item.Name, item.Subtotal().StringFixed(2), cart.Total.StringFixed(2))
}

func summaryText(s *Session) string {
	var b strings.Builder
	b.WriteString("🛒 RESUMEN DE TU PEDIDO\n\n")
	for _, item := range s.Cart.Items {
		b.WriteString(fmt.Sprintf("• %dx %s - $%s\n", item.Quantity, item.Name, item.Subtotal().StringFixed(2)))
	}
	b.WriteString(fmt.Sprintf("\n💰 Total: $%s\n", s.Cart.Sum().StringFixed(2)))
	b.WriteString(fmt.Sprintf("📦 Envío a:\n%s\n", s.ShippingInfo))
	b.WriteString(fmt.Sprintf("💳 Método de pago: %s\n\n", s.PaymentMethod))
	b.WriteString("✅ ¿Confirmas tu pedido?")
	return b.String()
}

func orderConfirmedText(o *Order) string {
	return fmt.Sprintf("🎉 ¡PEDIDO CONFIRMADO!\n\n📦 Número de pedido: %s\n💰 Total: $%s\n⏰ Tiempo estimado: %s\n"+
		"🚚 Estado: En preparación\n\n💡 Usa /estado para consultar tu pedido\n\n¡Gracias por tu compra! 😊",
		o.ID, o.Total.StringFixed(2), o.ETA)
}

func syntheticStatusText(orderID string) string {
	return fmt.Sprintf("📦 Pedido #%s\n✅ Estado: En proceso\n⏰ Tiempo estimado: 2 horas\n🚚 Repartidor: Juan Pérez\n\n"+
		"💡 Escribe 'menu' para volver", orderID)
}

var statusLabels = map[OrderStatus]string{
	OrderStatusPending:    "Pendiente",
	OrderStatusInProgress: "En proceso",
	OrderStatusDelivered:  "Entregado",
	OrderStatusCancelled:  "Cancelado",
}

func orderStatusText(o *Order) string {
	return fmt.Sprintf("📦 Pedido #%s\n✅ Estado: %s\n💰 Total: $%s\n⏰ Tiempo estimado: %s\n\n💡 Escribe 'menu' para volver",
		o.ID, statusLabels[o.Status], o.Total.StringFixed(2), o.ETA)
}

func orderNotFoundText(orderID string) string {
	return fmt.Sprintf("❌ No encontramos el pedido #%s.\n💡 Verifica el número o escribe 'menu' para volver", orderID)
}
