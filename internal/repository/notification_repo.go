package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/manziosee/auditshield/internal/model"
)

// NotificationRepository 站内通知数据访问接口
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByCompany(ctx context.Context, companyID string, unreadOnly bool) ([]model.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepo) ListByCompany(ctx context.Context, companyID string, unreadOnly bool) ([]model.Notification, error) {
	var list []model.Notification
	q := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	if unreadOnly {
		q = q.Where("is_read = ?", false)
	}
	err := q.Order("created_at DESC").Find(&list).Error
	return list, err
}

func (r *notificationRepo) MarkRead(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("notification_id = ?", id).
		Update("is_read", true).Error
}
