package service

import (
	"context"
	"testing"
	"time"

	"shoply/internal/domain"
	"shoply/internal/models"
	"shoply/internal/repository"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.User{}, &models.Product{},
		&models.Order{}, &models.OrderItem{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestStock(t *testing.T, db *gorm.DB, window time.Duration) *StockService {
	t.Helper()
	notifications := repository.NewNotificationRepository(db, 30)
	notifier := NewNotifier(notifications, nil, zap.NewNop())
	return NewStockService(repository.NewProductRepository(db), notifier, nil, window, zap.NewNop())
}

func TestScanRaisesAlerts(t *testing.T) {
	db := newTestDB(t)
	svc := newTestStock(t, db, 5*time.Second)
	ctx := context.Background()

	products := []models.Product{
		{Name: "Widget", Slug: "widget", InStock: 3, LowStockAt: 5},
		{Name: "Gadget", Slug: "gadget", InStock: 0, LowStockAt: 5},
		{Name: "Doodad", Slug: "doodad", InStock: 50, LowStockAt: 5},
	}
	for i := range products {
		if err := db.Create(&products[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	res, err := svc.Scan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.LowStock != 1 || res.OutOfStock != 1 {
		t.Fatalf("scan result = %+v", res)
	}

	var count int64
	if err := db.Model(&models.Notification{}).
		Where("type = ?", domain.NotificationProductAlert).
		Where("user_id IS NULL").
		Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("persisted alerts = %d, want 2", count)
	}
}

func TestScanDedupWindow(t *testing.T) {
	db := newTestDB(t)
	svc := newTestStock(t, db, 5*time.Second)
	ctx := context.Background()

	if err := db.Create(&models.Product{Name: "Widget", Slug: "widget", InStock: 2, LowStockAt: 5}).Error; err != nil {
		t.Fatal(err)
	}

	first, err := svc.Scan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Scan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.LowStock != 1 {
		t.Errorf("first scan low stock = %d, want 1", first.LowStock)
	}
	if second.LowStock != 0 {
		t.Errorf("scan inside the dedup window re-raised the alert")
	}

	var count int64
	if err := db.Model(&models.Notification{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("persisted alerts = %d, want exactly 1", count)
	}
}

func TestScanWindowExpires(t *testing.T) {
	db := newTestDB(t)
	svc := newTestStock(t, db, 10*time.Millisecond)
	ctx := context.Background()

	if err := db.Create(&models.Product{Name: "Widget", Slug: "widget", InStock: 0}).Error; err != nil {
		t.Fatal(err)
	}

	if res, _ := svc.Scan(ctx); res.OutOfStock != 1 {
		t.Fatal("first scan should alert")
	}
	time.Sleep(20 * time.Millisecond)
	res, err := svc.Scan(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.OutOfStock != 1 {
		t.Error("alert should fire again after the window passes")
	}
}
