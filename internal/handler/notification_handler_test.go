package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shoply/internal/domain"
	"shoply/internal/models"
	"shoply/internal/repository"
	"shoply/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	user   *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.User{}, &models.Product{},
		&models.Order{}, &models.OrderItem{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	user := &models.User{Email: "buyer@example.com", Role: domain.RoleCustomer, CreatedAt: time.Now().Add(-40 * 24 * time.Hour)}
	if err := db.Create(user).Error; err != nil {
		t.Fatal(err)
	}

	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db, 30)
	notifier := service.NewNotifier(notificationRepo, nil, zap.NewNop())
	stockSvc := service.NewStockService(repository.NewProductRepository(db), notifier, nil, 5*time.Second, zap.NewNop())
	cleanupSvc := service.NewCleanupService(notificationRepo, nil, 30*24*time.Hour, 6*time.Hour, 500, 1000, zap.NewNop())

	nh := NewNotificationHandler(notificationRepo, userRepo, cleanupSvc)
	ah := NewAdminHandler(notifier, stockSvc, cleanupSvc, userRepo, zap.NewNop())

	r := gin.New()
	// stand-in for the JWT middleware
	r.Use(func(c *gin.Context) {
		c.Set("user_id", user.ID)
		c.Set("role", domain.RoleAdmin)
	})
	r.GET("/me/notifications", nh.List)
	r.GET("/me/notifications/unread-count", nh.UnreadCount)
	r.POST("/me/notifications/read", nh.MarkRead)
	r.POST("/me/notifications/read-all", nh.MarkAllRead)
	r.POST("/admin/notifications", ah.SendNotification)
	r.POST("/admin/stock/scan", ah.TriggerStockScan)
	r.GET("/admin/cleanup/stats", ah.CleanupStats)

	return &testEnv{db: db, router: r, user: user}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seed(t *testing.T, userID *uint, typ string, read bool) *models.Notification {
	t.Helper()
	n := &models.Notification{UserID: userID, Type: typ, TitleKey: "notification.test", Read: read}
	if err := e.db.Create(n).Error; err != nil {
		t.Fatal(err)
	}
	return n
}

func TestListNotifications(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, &env.user.ID, domain.NotificationOrderUpdate, false)
	env.seed(t, nil, domain.NotificationSystemAlert, false)

	w := env.do(t, http.MethodGet, "/me/notifications", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Notifications []notificationResponse `json:"notifications"`
		UnreadCount   int64                  `json:"unread_count"`
		Pagination    struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Notifications) != 2 || body.UnreadCount != 2 || body.Pagination.Total != 2 {
		t.Errorf("items=%d unread=%d total=%d", len(body.Notifications), body.UnreadCount, body.Pagination.Total)
	}
}

func TestListRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/me/notifications?type=BOGUS", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMarkReadEndpoint(t *testing.T) {
	env := newTestEnv(t)
	n := env.seed(t, &env.user.ID, domain.NotificationOrderUpdate, false)

	w := env.do(t, http.MethodPost, "/me/notifications/read", map[string]any{"ids": []uint{n.ID}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var body struct {
		Updated int64 `json:"updated"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Updated != 1 {
		t.Errorf("updated = %d, want 1", body.Updated)
	}

	// empty ids is a client error
	w = env.do(t, http.MethodPost, "/me/notifications/read", map[string]any{"ids": []uint{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty ids status = %d, want 400", w.Code)
	}
}

func TestMarkAllReadEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, &env.user.ID, domain.NotificationOrderUpdate, false)
	env.seed(t, &env.user.ID, domain.NotificationProductAlert, false)

	w := env.do(t, http.MethodPost, "/me/notifications/read-all", nil)
	if w.Code != http.StatusOK {
		t.Fatal(w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/me/notifications/unread-count", nil)
	var body struct {
		UnreadCount int64 `json:"unread_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.UnreadCount != 0 {
		t.Errorf("unread = %d, want 0", body.UnreadCount)
	}
}

func TestAdminSendNotification(t *testing.T) {
	env := newTestEnv(t)

	// system-wide broadcast
	w := env.do(t, http.MethodPost, "/admin/notifications", map[string]any{
		"type":        domain.NotificationSystemAlert,
		"title_key":   "notification.maintenance",
		"message_key": "notification.maintenanceMessage",
		"params":      []string{"02:00 UTC"},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	var stored models.Notification
	if err := env.db.First(&stored).Error; err != nil {
		t.Fatal(err)
	}
	if stored.UserID != nil {
		t.Error("broadcast should have no user id")
	}
	if stored.MessageKey != "notification.maintenanceMessage" {
		t.Errorf("message key = %q", stored.MessageKey)
	}

	// targeted at an existing user
	w = env.do(t, http.MethodPost, "/admin/notifications", map[string]any{
		"type":        domain.NotificationSystemAlert,
		"title_key":   "notification.hello",
		"message_key": "notification.helloMessage",
		"user_id":     env.user.ID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("targeted status = %d: %s", w.Code, w.Body.String())
	}

	// unknown target user
	w = env.do(t, http.MethodPost, "/admin/notifications", map[string]any{
		"type":        domain.NotificationSystemAlert,
		"title_key":   "notification.hello",
		"message_key": "notification.helloMessage",
		"user_id":     99999,
	})
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown user status = %d, want 404", w.Code)
	}
}

func TestAdminSendRejectsInvalidType(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/admin/notifications", map[string]any{
		"type":        "NOT_A_TYPE",
		"title_key":   "x",
		"message_key": "y",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	// rejected before any side effect
	var count int64
	env.db.Model(&models.Notification{}).Count(&count)
	if count != 0 {
		t.Error("invalid request persisted a notification")
	}
}

func TestAdminStockScan(t *testing.T) {
	env := newTestEnv(t)
	if err := env.db.Create(&models.Product{Name: "Widget", Slug: "widget", InStock: 1, LowStockAt: 5}).Error; err != nil {
		t.Fatal(err)
	}

	w := env.do(t, http.MethodPost, "/admin/stock/scan", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var res service.StockScanResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.LowStock != 1 {
		t.Errorf("low stock = %d, want 1", res.LowStock)
	}
}

func TestAdminCleanupStats(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, &env.user.ID, domain.NotificationOrderUpdate, false)

	w := env.do(t, http.MethodGet, "/admin/cleanup/stats", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var stats repository.CleanupStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.Total != 1 {
		t.Errorf("total = %d, want 1", stats.Total)
	}
}
