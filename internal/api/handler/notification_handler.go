package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/manziosee/auditshield/internal/service"
	"github.com/manziosee/auditshield/pkg/response"
)

// NotificationHandler 站内通知 HTTP 处理器
type NotificationHandler struct {
	notificationSvc service.NotificationService
}

// NewNotificationHandler 创建 NotificationHandler
func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

// ListNotifications 通知列表（?unread=true 仅未读）
// GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"
	result, err := h.notificationSvc.List(c.Request.Context(), companyID, unreadOnly)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// MarkRead 标记通知已读
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if _, ok := MustGetCompanyID(c); !ok {
		return
	}

	if err := h.notificationSvc.MarkRead(c.Request.Context(), c.Param("id")); err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}
