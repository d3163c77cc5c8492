package notify

import (
	"testing"

	"shoply/internal/domain"
	"shoply/internal/models"
)

func testOrder() *models.Order {
	return &models.Order{
		ID:     "a1b2c3d4-0000-0000-0000-000000000000",
		UserID: 7,
		Status: domain.StatusPaid,
		User:   &models.User{ID: 7, Email: "buyer@example.com"},
		Items: []models.OrderItem{
			{ProductID: 42, Product: &models.Product{ID: 42, Slug: "widget"}},
		},
	}
}

func TestOrderConfirmed(t *testing.T) {
	p := OrderConfirmed(testOrder())
	if p.Type != domain.NotificationOrderUpdate {
		t.Errorf("type = %q", p.Type)
	}
	if p.TitleKey != "notification.orderConfirmed" {
		t.Errorf("title key = %q", p.TitleKey)
	}
	if p.Message.Key != "notification.orderConfirmedMessage" {
		t.Errorf("message key = %q", p.Message.Key)
	}
	if len(p.Message.Params) != 1 || p.Message.Params[0] != "A1B2C3D4" {
		t.Errorf("message params = %v, want the uppercase short id", p.Message.Params)
	}
	if p.Data["orderStatus"] != "PAID" {
		t.Errorf("orderStatus = %v", p.Data["orderStatus"])
	}
	if p.Data["email"] != "buyer@example.com" {
		t.Errorf("email = %v", p.Data["email"])
	}
	if p.Data["productSlug"] != "widget" {
		t.Errorf("productSlug = %v", p.Data["productSlug"])
	}
}

func TestOrderShippedWithTracking(t *testing.T) {
	o := testOrder()
	o.TrackingNumber = "1Z999AA1"
	o.Carrier = "UPS"
	p := OrderShipped(o)
	if p.Data["orderStatus"] != "SHIPPED" {
		t.Errorf("orderStatus = %v", p.Data["orderStatus"])
	}
	if p.Data["trackingNumber"] != "1Z999AA1" {
		t.Errorf("trackingNumber = %v", p.Data["trackingNumber"])
	}
	if p.Data["carrier"] != "UPS" {
		t.Errorf("carrier = %v", p.Data["carrier"])
	}
	if len(p.Message.Optional) != 1 {
		t.Fatalf("expected one optional param, got %d", len(p.Message.Optional))
	}
	opt := p.Message.Optional[0]
	if opt.Value == nil || *opt.Value != "1Z999AA1" {
		t.Errorf("optional value = %v", opt.Value)
	}
}

func TestOrderShippedWithoutTracking(t *testing.T) {
	p := OrderShipped(testOrder())
	if _, ok := p.Data["trackingNumber"]; ok {
		t.Error("trackingNumber should be absent")
	}
	if len(p.Message.Optional) != 1 || p.Message.Optional[0].Value != nil {
		t.Error("optional param should carry a nil value")
	}
}

func TestBuildersTolerateBareOrder(t *testing.T) {
	bare := &models.Order{ID: "deadbeef", UserID: 1}
	for _, s := range []domain.OrderStatus{
		domain.StatusPaid, domain.StatusFulfilling, domain.StatusShipped,
		domain.StatusDelivered, domain.StatusCanceled, domain.StatusRefunded,
	} {
		p, ok := ForStatus(bare, s)
		if !ok {
			t.Fatalf("ForStatus(%s) returned no payload", s)
		}
		if p.Data["orderId"] != "deadbeef" {
			t.Errorf("%s: orderId = %v", s, p.Data["orderId"])
		}
		for _, key := range []string{"email", "productId", "productSlug", "trackingNumber"} {
			if _, present := p.Data[key]; present {
				t.Errorf("%s: %s should be absent on a bare order", s, key)
			}
		}
	}
}

func TestForStatusPending(t *testing.T) {
	if _, ok := ForStatus(testOrder(), domain.StatusPending); ok {
		t.Error("PENDING must not produce a notification")
	}
}

func TestStockAlerts(t *testing.T) {
	p := &models.Product{ID: 42, Name: "Widget", Slug: "widget", InStock: 3, LowStockAt: 5}

	low := LowStock(p)
	if low.Type != domain.NotificationProductAlert {
		t.Errorf("type = %q", low.Type)
	}
	if low.Data["alert"] != domain.StockAlertLow {
		t.Errorf("alert = %v", low.Data["alert"])
	}
	if low.Data["inStock"] != 3 {
		t.Errorf("inStock = %v", low.Data["inStock"])
	}

	p.InStock = 0
	out := OutOfStock(p)
	if out.Data["alert"] != domain.StockAlertOut {
		t.Errorf("alert = %v", out.Data["alert"])
	}
	if out.Data["inStock"] != 0 {
		t.Errorf("inStock = %v", out.Data["inStock"])
	}
}
