package service

import (
	"context"
	"errors"
	"testing"

	"shoply/internal/domain"
	"shoply/internal/models"
	"shoply/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestOrders(t *testing.T, db *gorm.DB) *OrderService {
	t.Helper()
	notifications := repository.NewNotificationRepository(db, 30)
	notifier := NewNotifier(notifications, nil, zap.NewNop())
	return NewOrderService(repository.NewOrderRepository(db), notifier, zap.NewNop())
}

func seedOrder(t *testing.T, db *gorm.DB, status domain.OrderStatus) *models.Order {
	t.Helper()
	user := &models.User{Email: "buyer@example.com", Role: domain.RoleCustomer}
	if err := db.Create(user).Error; err != nil {
		t.Fatal(err)
	}
	order := &models.Order{
		ID:     "11111111-2222-3333-4444-555555555555",
		UserID: user.ID,
		Status: status,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatal(err)
	}
	return order
}

func TestUpdateStatusValidTransition(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrders(t, db)
	order := seedOrder(t, db, domain.StatusFulfilling)

	updated, err := svc.UpdateStatus(context.Background(), order.ID, domain.StatusShipped, &ShippingUpdate{
		TrackingNumber: "1Z999AA1",
		Carrier:        "UPS",
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != domain.StatusShipped {
		t.Errorf("status = %s", updated.Status)
	}

	var stored models.Order
	if err := db.First(&stored, "id = ?", order.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.StatusShipped || stored.TrackingNumber != "1Z999AA1" || stored.Carrier != "UPS" {
		t.Errorf("stored order = %+v", stored)
	}

	// the transition produced a durable notification for the purchaser
	var n models.Notification
	if err := db.Where("user_id = ?", order.UserID).First(&n).Error; err != nil {
		t.Fatalf("notification missing: %v", err)
	}
	if n.Type != domain.NotificationOrderUpdate || n.TitleKey != "notification.orderShipped" {
		t.Errorf("notification = %+v", n)
	}
}

func TestUpdateStatusInvalidTransition(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrders(t, db)
	order := seedOrder(t, db, domain.StatusDelivered)

	_, err := svc.UpdateStatus(context.Background(), order.ID, domain.StatusShipped, nil)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	var stored models.Order
	if err := db.First(&stored, "id = ?", order.ID).Error; err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.StatusDelivered {
		t.Error("rejected transition mutated the order")
	}
	var count int64
	db.Model(&models.Notification{}).Count(&count)
	if count != 0 {
		t.Error("rejected transition produced a notification")
	}
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrders(t, db)

	_, err := svc.UpdateStatus(context.Background(), "missing", domain.StatusPaid, nil)
	if !errors.Is(err, repository.ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestTimelineProjection(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOrders(t, db)
	order := seedOrder(t, db, domain.StatusShipped)

	tl, err := svc.Timeline(context.Background(), order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if tl.ShippingStatus != domain.ShippingInTransit {
		t.Errorf("shipping status = %s", tl.ShippingStatus)
	}
	if len(tl.Steps) != 5 {
		t.Errorf("steps = %d, want 5", len(tl.Steps))
	}
}
