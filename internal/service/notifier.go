package service

import (
	"context"

	"shoply/internal/metrics"
	"shoply/internal/models"
	"shoply/internal/notify"
	"shoply/internal/repository"
	"shoply/internal/ws"

	"go.uber.org/zap"
)

// Notifier turns template payloads into durable rows and best-effort live
// pushes. The two channels are independent: a dropped push is recovered by
// the client's next durable fetch, and a failed persist never blocks the
// push path's caller either.
type Notifier struct {
	notifications *repository.NotificationRepository
	hub           *ws.Hub
	logger        *zap.Logger
}

func NewNotifier(notifications *repository.NotificationRepository, hub *ws.Hub, logger *zap.Logger) *Notifier {
	return &Notifier{notifications: notifications, hub: hub, logger: logger}
}

func (n *Notifier) record(p notify.Payload) *models.Notification {
	rec := &models.Notification{
		Type:     p.Type,
		TitleKey: p.TitleKey,
	}
	rec.SetMessage(p.Message)
	rec.SetData(p.Data)
	return rec
}

// NotifyUser persists for one user and pushes to their sessions.
func (n *Notifier) NotifyUser(ctx context.Context, userID uint, p notify.Payload) (*models.Notification, error) {
	rec := n.record(p)
	if err := n.notifications.CreateForUser(ctx, userID, rec); err != nil {
		return nil, err
	}
	metrics.NotificationsCreatedTotal.WithLabelValues(p.Type).Inc()
	if n.hub != nil {
		n.hub.NotifyUser(userID, ws.EventFromNotification(ws.EventNotification, rec))
	}
	return rec, nil
}

// NotifySystem persists a system-wide row and broadcasts it.
func (n *Notifier) NotifySystem(ctx context.Context, p notify.Payload) (*models.Notification, error) {
	rec := n.record(p)
	if err := n.notifications.CreateSystemWide(ctx, rec); err != nil {
		return nil, err
	}
	metrics.NotificationsCreatedTotal.WithLabelValues(p.Type).Inc()
	if n.hub != nil {
		n.hub.NotifySystem(ws.EventFromNotification(ws.EventSystemNotification, rec))
		n.hub.NotifyAdmins(ws.EventFromNotification(ws.EventAdminNotification, rec))
	}
	return rec, nil
}

// NotifyOrderUpdate persists for the purchaser and pushes to their sessions
// and the order room.
func (n *Notifier) NotifyOrderUpdate(ctx context.Context, order *models.Order, p notify.Payload) (*models.Notification, error) {
	rec := n.record(p)
	if err := n.notifications.CreateForUser(ctx, order.UserID, rec); err != nil {
		return nil, err
	}
	metrics.NotificationsCreatedTotal.WithLabelValues(p.Type).Inc()
	if n.hub != nil {
		n.hub.NotifyOrderUpdate(order.ID, order.UserID, ws.EventFromNotification(ws.EventOrderUpdate, rec))
	}
	return rec, nil
}

// NotifyProductAlert persists system-wide and pushes to the product room
// and admin sessions.
func (n *Notifier) NotifyProductAlert(ctx context.Context, productID uint, p notify.Payload) (*models.Notification, error) {
	rec := n.record(p)
	if err := n.notifications.CreateSystemWide(ctx, rec); err != nil {
		return nil, err
	}
	metrics.NotificationsCreatedTotal.WithLabelValues(p.Type).Inc()
	if n.hub != nil {
		n.hub.NotifyProductAlert(productID, ws.EventFromNotification(ws.EventProductAlert, rec))
	}
	return rec, nil
}
