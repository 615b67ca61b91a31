package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/manziosee/auditshield/internal/service"
	"github.com/manziosee/auditshield/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportRun 导出薪资运行报表
// GET /api/v1/export/runs/:id
func (h *ExportHandler) ExportRun(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportRun(c.Request.Context(), companyID, c.Param("id"))
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Header("Content-Type", xlsxContentType)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// PayCalendar 导出发薪日历
// GET /api/v1/export/pay-calendar
func (h *ExportHandler) PayCalendar(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.PayCalendar(c.Request.Context(), companyID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRunNotFound):
		response.NotFound(c, 15001, "薪资运行不存在")
	case errors.Is(err, service.ErrExportNotCompleted):
		response.BadRequest(c, 16101, "薪资运行尚未完成计算，不能导出")
	case errors.Is(err, service.ErrExportNoItems):
		response.NotFound(c, 16102, "暂无可导出的数据")
	default:
		response.InternalError(c)
	}
}
