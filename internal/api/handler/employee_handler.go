package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/manziosee/auditshield/internal/dto"
	"github.com/manziosee/auditshield/internal/service"
	"github.com/manziosee/auditshield/pkg/response"
)

// EmployeeHandler 员工模块 HTTP 处理器
type EmployeeHandler struct {
	employeeSvc service.EmployeeService
}

// NewEmployeeHandler 创建 EmployeeHandler
func NewEmployeeHandler(employeeSvc service.EmployeeService) *EmployeeHandler {
	return &EmployeeHandler{employeeSvc: employeeSvc}
}

// CreateEmployee 创建员工
// POST /api/v1/employees
func (h *EmployeeHandler) CreateEmployee(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.employeeSvc.Create(c.Request.Context(), companyID, userID, &req)
	if err != nil {
		if errors.Is(err, service.ErrSalaryNegative) {
			response.BadRequest(c, 13002, "毛薪不能为负")
			return
		}
		response.InternalError(c)
		return
	}
	response.Created(c, result)
}

// GetEmployee 获取员工详情
// GET /api/v1/employees/:id
func (h *EmployeeHandler) GetEmployee(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}

	result, err := h.employeeSvc.Get(c.Request.Context(), companyID, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrEmployeeNotFound) {
			response.NotFound(c, 13001, "员工不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// ListEmployees 员工列表（分页）
// GET /api/v1/employees
func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}

	var page dto.PaginationRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.employeeSvc.List(c.Request.Context(), companyID, &page)
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OKPage(c, result.Items, result.Total, result.Page, result.PageSize)
}

// UpdateEmployee 更新员工
// PUT /api/v1/employees/:id
func (h *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.employeeSvc.Update(c.Request.Context(), companyID, c.Param("id"), userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmployeeNotFound):
			response.NotFound(c, 13001, "员工不存在")
		case errors.Is(err, service.ErrSalaryNegative):
			response.BadRequest(c, 13002, "毛薪不能为负")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, result)
}

// DeactivateEmployee 员工离职（停用，不删除）
// DELETE /api/v1/employees/:id
func (h *EmployeeHandler) DeactivateEmployee(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.employeeSvc.Deactivate(c.Request.Context(), companyID, c.Param("id"), userID); err != nil {
		if errors.Is(err, service.ErrEmployeeNotFound) {
			response.NotFound(c, 13001, "员工不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, nil)
}
