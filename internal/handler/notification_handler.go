package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"shoply/internal/domain"
	"shoply/internal/middleware"
	"shoply/internal/models"
	"shoply/internal/repository"
	"shoply/internal/service"
	"shoply/pkg/i18n"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	repo    *repository.NotificationRepository
	users   *repository.UserRepository
	cleanup *service.CleanupService
}

func NewNotificationHandler(repo *repository.NotificationRepository, users *repository.UserRepository, cleanup *service.CleanupService) *NotificationHandler {
	return &NotificationHandler{repo: repo, users: users, cleanup: cleanup}
}

// notificationResponse keeps the message as a deferred-rendering tuple; the
// UI resolves it against the viewer's locale.
type notificationResponse struct {
	ID        uint           `json:"id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   i18n.Message   `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}

func toResponse(n *models.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.TitleKey,
		Message:   n.Message(),
		Data:      n.DataMap(),
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

func (h *NotificationHandler) currentUser(c *gin.Context) (*models.User, bool) {
	user, err := h.users.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		}
		return nil, false
	}
	return user, true
}

func (h *NotificationHandler) List(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	opts := repository.ListOptions{
		Page:       page,
		PageSize:   pageSize,
		UnreadOnly: c.Query("unread") == "true",
	}
	if t := c.Query("type"); t != "" {
		if !domain.ValidNotificationType(t) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification type"})
			return
		}
		opts.Type = t
	}
	result, err := h.repo.ListPaginated(c.Request.Context(), user, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	unread, err := h.repo.UnreadCount(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}

	// reads opportunistically fund retention cleanup
	h.cleanup.LazyCleanup(c.Request.Context())

	items := make([]notificationResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, toResponse(&result.Items[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": items,
		"unread_count":  unread,
		"pagination": gin.H{
			"page":        result.Page,
			"page_size":   result.PageSize,
			"total":       result.Total,
			"total_pages": result.TotalPages,
			"has_next":    result.HasNext,
			"has_prev":    result.HasPrev,
		},
	})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	count, err := h.repo.UnreadCount(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "count failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	var body struct {
		IDs []uint `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || len(body.IDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ids required"})
		return
	}
	updated, err := h.repo.MarkRead(c.Request.Context(), user, body.IDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	updated, err := h.repo.MarkAllRead(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
