package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/manziosee/auditshield/internal/dto"
	"github.com/manziosee/auditshield/internal/repository"
)

// NotificationService 站内通知业务接口
type NotificationService interface {
	List(ctx context.Context, companyID string, unreadOnly bool) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, notificationID string) error
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) List(ctx context.Context, companyID string, unreadOnly bool) ([]dto.NotificationResponse, error) {
	list, err := s.repo.Notification.ListByCompany(ctx, companyID, unreadOnly)
	if err != nil {
		s.logger.Error("查询通知失败", zap.Error(err))
		return nil, err
	}
	resp := make([]dto.NotificationResponse, 0, len(list))
	for _, n := range list {
		resp = append(resp, dto.NotificationResponse{
			NotificationID: n.NotificationID,
			Kind:           n.Kind,
			Title:          n.Title,
			Body:           n.Body,
			IsRead:         n.IsRead,
			CreatedAt:      n.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return resp, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID string) error {
	return s.repo.Notification.MarkRead(ctx, notificationID)
}
