package handler

import (
	"errors"
	"net/http"

	"shoply/internal/domain"
	"shoply/internal/notify"
	"shoply/internal/repository"
	"shoply/internal/service"
	"shoply/pkg/i18n"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AdminHandler struct {
	notifier *service.Notifier
	stock    *service.StockService
	cleanup  *service.CleanupService
	users    *repository.UserRepository
	logger   *zap.Logger
}

func NewAdminHandler(notifier *service.Notifier, stock *service.StockService, cleanup *service.CleanupService, users *repository.UserRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{notifier: notifier, stock: stock, cleanup: cleanup, users: users, logger: logger}
}

type sendNotificationRequest struct {
	Type       string         `json:"type" binding:"required"`
	TitleKey   string         `json:"title_key" binding:"required"`
	MessageKey string         `json:"message_key" binding:"required"`
	Params     []string       `json:"params"`
	Data       map[string]any `json:"data"`
	UserID     *uint          `json:"user_id"`
}

// SendNotification lets an admin post a targeted or system-wide
// notification. Unknown types are rejected before any side effect.
func (h *AdminHandler) SendNotification(c *gin.Context) {
	var req sendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type, title_key and message_key are required"})
		return
	}
	if !domain.ValidNotificationType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification type"})
		return
	}
	payload := notify.Payload{
		Type:     req.Type,
		TitleKey: req.TitleKey,
		Message:  i18n.Msg(req.MessageKey, req.Params...),
		Data:     req.Data,
	}

	if req.UserID != nil {
		if _, err := h.users.GetByID(c.Request.Context(), *req.UserID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
			}
			return
		}
		rec, err := h.notifier.NotifyUser(c.Request.Context(), *req.UserID, payload)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": rec.ID})
		return
	}

	rec, err := h.notifier.NotifySystem(c.Request.Context(), payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "send failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": rec.ID})
}

// TriggerStockScan runs the low/out-of-stock scan and reports affected counts.
func (h *AdminHandler) TriggerStockScan(c *gin.Context) {
	result, err := h.stock.Scan(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "scan failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// TriggerCleanup runs a cleanup pass. Failures mid-pass are logged and the
// partial result is still returned, never an error.
func (h *AdminHandler) TriggerCleanup(c *gin.Context) {
	result, err := h.cleanup.SmartCleanup(c.Request.Context())
	if err != nil {
		h.logger.Warn("admin-triggered cleanup failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, result)
}

func (h *AdminHandler) CleanupStats(c *gin.Context) {
	stats, err := h.cleanup.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "stats failed"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
