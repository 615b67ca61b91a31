package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/manziosee/auditshield/internal/dto"
	"github.com/manziosee/auditshield/internal/service"
	"github.com/manziosee/auditshield/pkg/response"
)

// CompanyHandler 公司设置模块 HTTP 处理器
type CompanyHandler struct {
	companySvc service.CompanyService
}

// NewCompanyHandler 创建 CompanyHandler
func NewCompanyHandler(companySvc service.CompanyService) *CompanyHandler {
	return &CompanyHandler{companySvc: companySvc}
}

// GetCompany 获取当前公司设置
// GET /api/v1/company
func (h *CompanyHandler) GetCompany(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}

	result, err := h.companySvc.GetCompany(c.Request.Context(), companyID)
	if err != nil {
		if errors.Is(err, service.ErrCompanyNotFound) {
			response.NotFound(c, 12001, "公司不存在")
			return
		}
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// UpdateCompany 更新公司设置（国别/币种绑定）
// PUT /api/v1/company
func (h *CompanyHandler) UpdateCompany(c *gin.Context) {
	companyID, ok := MustGetCompanyID(c)
	if !ok {
		return
	}

	var req dto.UpdateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	result, err := h.companySvc.UpdateCompany(c.Request.Context(), companyID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCompanyNotFound):
			response.NotFound(c, 12001, "公司不存在")
		case errors.Is(err, service.ErrCountryNotFound):
			response.BadRequest(c, 12002, "国家不存在")
		case errors.Is(err, service.ErrCurrencyNotFound):
			response.BadRequest(c, 12003, "币种不存在")
		default:
			response.InternalError(c)
		}
		return
	}
	response.OK(c, result)
}

// ListCountries 国家参照列表
// GET /api/v1/countries
func (h *CompanyHandler) ListCountries(c *gin.Context) {
	result, err := h.companySvc.ListCountries(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}

// ListCurrencies 币种参照列表
// GET /api/v1/currencies
func (h *CompanyHandler) ListCurrencies(c *gin.Context) {
	result, err := h.companySvc.ListCurrencies(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}
	response.OK(c, result)
}
