// Package notify builds notification payloads for domain events. Builders
// are pure: they produce locale-independent (type, title key, message tuple,
// data) payloads and never fail on missing auxiliary order fields.
package notify

import (
	"strconv"

	"shoply/internal/domain"
	"shoply/internal/models"
	"shoply/pkg/i18n"
)

// Payload is what gets persisted by the store adapter and pushed on the live
// channel for one domain event.
type Payload struct {
	Type     string
	TitleKey string
	Message  i18n.Message
	Data     map[string]any
}

// ForStatus returns the builder output for an order arriving at status s,
// or ok=false for statuses with no notification (PENDING).
func ForStatus(o *models.Order, s domain.OrderStatus) (Payload, bool) {
	switch s {
	case domain.StatusPaid:
		return OrderConfirmed(o), true
	case domain.StatusFulfilling:
		return OrderFulfilling(o), true
	case domain.StatusShipped:
		return OrderShipped(o), true
	case domain.StatusDelivered:
		return OrderDelivered(o), true
	case domain.StatusCanceled:
		return OrderCanceled(o), true
	case domain.StatusRefunded:
		return OrderRefunded(o), true
	}
	return Payload{}, false
}

func OrderConfirmed(o *models.Order) Payload {
	return Payload{
		Type:     domain.NotificationOrderUpdate,
		TitleKey: "notification.orderConfirmed",
		Message:  i18n.Msg("notification.orderConfirmedMessage", o.ShortID()),
		Data:     orderData(o, domain.StatusPaid),
	}
}

func OrderFulfilling(o *models.Order) Payload {
	return Payload{
		Type:     domain.NotificationOrderUpdate,
		TitleKey: "notification.orderFulfilling",
		Message:  i18n.Msg("notification.orderFulfillingMessage", o.ShortID()),
		Data:     orderData(o, domain.StatusFulfilling),
	}
}

func OrderShipped(o *models.Order) Payload {
	var tracking *string
	if o.TrackingNumber != "" {
		t := o.TrackingNumber
		tracking = &t
	}
	return Payload{
		Type:     domain.NotificationOrderUpdate,
		TitleKey: "notification.orderShipped",
		Message: i18n.Msg("notification.orderShippedMessage", o.ShortID()).
			WithOptional(tracking, " (", ")"),
		Data: orderData(o, domain.StatusShipped),
	}
}

func OrderDelivered(o *models.Order) Payload {
	return Payload{
		Type:     domain.NotificationOrderUpdate,
		TitleKey: "notification.orderDelivered",
		Message:  i18n.Msg("notification.orderDeliveredMessage", o.ShortID()),
		Data:     orderData(o, domain.StatusDelivered),
	}
}

func OrderCanceled(o *models.Order) Payload {
	return Payload{
		Type:     domain.NotificationOrderUpdate,
		TitleKey: "notification.orderCanceled",
		Message:  i18n.Msg("notification.orderCanceledMessage", o.ShortID()),
		Data:     orderData(o, domain.StatusCanceled),
	}
}

func OrderRefunded(o *models.Order) Payload {
	return Payload{
		Type:     domain.NotificationOrderUpdate,
		TitleKey: "notification.orderRefunded",
		Message:  i18n.Msg("notification.orderRefundedMessage", o.ShortID()),
		Data:     orderData(o, domain.StatusRefunded),
	}
}

func LowStock(p *models.Product) Payload {
	return Payload{
		Type:     domain.NotificationProductAlert,
		TitleKey: "notification.lowStock",
		Message:  i18n.Msg("notification.lowStockMessage", p.Name, strconv.Itoa(p.InStock)),
		Data: map[string]any{
			"alert":       domain.StockAlertLow,
			"productId":   p.ID,
			"productSlug": p.Slug,
			"inStock":     p.InStock,
			"lowStockAt":  p.LowStockAt,
		},
	}
}

func OutOfStock(p *models.Product) Payload {
	return Payload{
		Type:     domain.NotificationProductAlert,
		TitleKey: "notification.outOfStock",
		Message:  i18n.Msg("notification.outOfStockMessage", p.Name),
		Data: map[string]any{
			"alert":       domain.StockAlertOut,
			"productId":   p.ID,
			"productSlug": p.Slug,
			"inStock":     0,
		},
	}
}

// SystemAlert wraps an admin-authored broadcast.
func SystemAlert(titleKey string, msg i18n.Message, data map[string]any) Payload {
	return Payload{
		Type:     domain.NotificationSystemAlert,
		TitleKey: titleKey,
		Message:  msg,
		Data:     data,
	}
}

// orderData assembles the structured payload. Purchaser email and the first
// line item are looked up tolerantly: absent relations yield absent fields,
// never an error.
func orderData(o *models.Order, status domain.OrderStatus) map[string]any {
	data := map[string]any{
		"orderId":     o.ID,
		"orderStatus": string(status),
	}
	if o.TrackingNumber != "" {
		data["trackingNumber"] = o.TrackingNumber
	}
	if o.Carrier != "" {
		data["carrier"] = o.Carrier
	}
	if o.User != nil && o.User.Email != "" {
		data["email"] = o.User.Email
	}
	if len(o.Items) > 0 {
		item := o.Items[0]
		data["productId"] = item.ProductID
		if item.Product != nil && item.Product.Slug != "" {
			data["productSlug"] = item.Product.Slug
		}
	}
	return data
}
