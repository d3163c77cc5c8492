package service

import (
	"context"
	"errors"
	"fmt"

	"shoply/internal/domain"
	"shoply/internal/models"
	"shoply/internal/notify"
	"shoply/internal/repository"

	"go.uber.org/zap"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// ShippingUpdate carries the optional shipping columns set alongside a
// status change.
type ShippingUpdate struct {
	TrackingNumber string
	Carrier        string
}

// OrderTimeline is the projection served to the UI.
type OrderTimeline struct {
	OrderID        string                `json:"order_id"`
	Status         domain.OrderStatus    `json:"status"`
	ShippingStatus domain.ShippingStatus `json:"shipping_status,omitempty"`
	TrackingNumber string                `json:"tracking_number,omitempty"`
	Carrier        string                `json:"carrier,omitempty"`
	Steps          []domain.TimelineStep `json:"steps"`
}

type OrderService struct {
	orders   *repository.OrderRepository
	notifier *Notifier
	logger   *zap.Logger
}

func NewOrderService(orders *repository.OrderRepository, notifier *Notifier, logger *zap.Logger) *OrderService {
	return &OrderService{orders: orders, notifier: notifier, logger: logger}
}

// UpdateStatus enforces the transition table before persisting, then fires
// the matching notification. Notification failures are logged and swallowed:
// the status change must commit even when its notification cannot be sent.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, next domain.OrderStatus, shipping *ShippingUpdate) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(order.Status, next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, next)
	}
	order.Status = next
	if shipping != nil {
		if shipping.TrackingNumber != "" {
			order.TrackingNumber = shipping.TrackingNumber
		}
		if shipping.Carrier != "" {
			order.Carrier = shipping.Carrier
		}
	}
	if err := s.orders.UpdateStatus(ctx, order); err != nil {
		return nil, err
	}

	if payload, ok := notify.ForStatus(order, next); ok {
		if _, err := s.notifier.NotifyOrderUpdate(ctx, order, payload); err != nil {
			s.logger.Warn("order status notification failed",
				zap.String("order_id", order.ID),
				zap.String("status", string(next)),
				zap.Error(err),
			)
		}
	}
	return order, nil
}

// Timeline projects the order's milestone steps and derived shipping state.
func (s *OrderService) Timeline(ctx context.Context, orderID string) (*OrderTimeline, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderTimeline{
		OrderID:        order.ID,
		Status:         order.Status,
		ShippingStatus: domain.DeriveShippingStatus(order.Status),
		TrackingNumber: order.TrackingNumber,
		Carrier:        order.Carrier,
		Steps:          domain.ProjectTimeline(order.Status),
	}, nil
}

// Owner reports the purchaser for access checks.
func (s *OrderService) Owner(ctx context.Context, orderID string) (uint, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return 0, err
	}
	return order.UserID, nil
}
