package repository

import (
	"context"
	"time"

	"shoply/internal/domain"
	"shoply/internal/models"

	"gorm.io/gorm"
)

// RetentionWindowStart bounds a user's visible window: never before their
// signup, never more than the retention lookback. System-wide rows older
// than a user's signup stay invisible to them without being deleted.
func RetentionWindowStart(userCreatedAt, now time.Time, retention time.Duration) time.Time {
	start := now.Add(-retention)
	if userCreatedAt.After(start) {
		return userCreatedAt
	}
	return start
}

type ListOptions struct {
	Page       int
	PageSize   int
	UnreadOnly bool
	Type       string
}

type Page struct {
	Items      []models.Notification `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
	HasNext    bool                  `json:"has_next"`
	HasPrev    bool                  `json:"has_prev"`
}

type CleanupStats struct {
	Total   int64      `json:"total"`
	Expired int64      `json:"expired"`
	Unread  int64      `json:"unread"`
	LastRun *time.Time `json:"last_run,omitempty"`
}

type NotificationRepository struct {
	db        *gorm.DB
	retention time.Duration
}

func NewNotificationRepository(db *gorm.DB, retentionDays int) *NotificationRepository {
	return &NotificationRepository{db: db, retention: time.Duration(retentionDays) * 24 * time.Hour}
}

func (r *NotificationRepository) Retention() time.Duration {
	return r.retention
}

func (r *NotificationRepository) CreateForUser(ctx context.Context, userID uint, n *models.Notification) error {
	n.UserID = &userID
	return r.db.WithContext(ctx).Create(n).Error
}

// CreateSystemWide persists a notification visible to all users.
func (r *NotificationRepository) CreateSystemWide(ctx context.Context, n *models.Notification) error {
	n.UserID = nil
	return r.db.WithContext(ctx).Create(n).Error
}

// scoped applies the filter every user-facing read and mutation shares:
// own rows or system-wide rows, inside the user's retention window.
func (r *NotificationRepository) scoped(ctx context.Context, user *models.User, now time.Time) *gorm.DB {
	start := RetentionWindowStart(user.CreatedAt, now, r.retention)
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("(user_id = ? OR user_id IS NULL)", user.ID).
		Where("created_at >= ?", start)
}

func (r *NotificationRepository) ListPaginated(ctx context.Context, user *models.User, opts ListOptions) (*Page, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 20
	}
	if opts.PageSize > 100 {
		opts.PageSize = 100
	}
	q := r.scoped(ctx, user, time.Now())
	if opts.UnreadOnly {
		q = q.Where("`read` = ?", false)
	}
	if opts.Type != "" {
		q = q.Where("type = ?", opts.Type)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}
	var items []models.Notification
	err := q.Order("created_at DESC").
		Limit(opts.PageSize).
		Offset((opts.Page - 1) * opts.PageSize).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	totalPages := int((total + int64(opts.PageSize) - 1) / int64(opts.PageSize))
	return &Page{
		Items:      items,
		Total:      total,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalPages: totalPages,
		HasNext:    opts.Page < totalPages,
		HasPrev:    opts.Page > 1,
	}, nil
}

// MarkRead flips read=false→true for the given ids within the user's scope.
// Re-marking already-read rows is a no-op, so overlapping concurrent calls
// are safe. Returns the number of rows actually updated.
func (r *NotificationRepository) MarkRead(ctx context.Context, user *models.User, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.scoped(ctx, user, time.Now()).
		Where("id IN ?", ids).
		Where("`read` = ?", false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, user *models.User) (int64, error) {
	res := r.scoped(ctx, user, time.Now()).
		Where("`read` = ?", false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, user *models.User) (int64, error) {
	var count int64
	err := r.scoped(ctx, user, time.Now()).
		Where("`read` = ?", false).
		Count(&count).Error
	return count, err
}

// expiredQuery matches rows the cleanup may delete: past the retention
// cutoff, read, and not order history (ORDER_UPDATE is exempt).
func (r *NotificationRepository) expiredQuery(ctx context.Context, cutoff time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Where("`read` = ?", true).
		Where("type <> ?", domain.NotificationOrderUpdate)
}

func (r *NotificationRepository) CountExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	err := r.expiredQuery(ctx, cutoff).Model(&models.Notification{}).Count(&count).Error
	return count, err
}

// DeleteExpiredBatch deletes at most limit expired rows and reports how many
// went. Batching keeps each statement short so reads interleave freely.
func (r *NotificationRepository) DeleteExpiredBatch(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	var ids []uint
	err := r.expiredQuery(ctx, cutoff).Model(&models.Notification{}).
		Limit(limit).Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) Stats(ctx context.Context, cutoff time.Time) (*CleanupStats, error) {
	var s CleanupStats
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).Count(&s.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("created_at < ?", cutoff).Count(&s.Expired).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("`read` = ?", false).Count(&s.Unread).Error; err != nil {
		return nil, err
	}
	return &s, nil
}
