package dto

import "github.com/shopspring/decimal"

// CreateEmployeeRequest 创建员工请求
type CreateEmployeeRequest struct {
	EmployeeNumber string          `json:"employee_number" binding:"required,max=50"`
	FullName       string          `json:"full_name"       binding:"required,max=200"`
	Email          string          `json:"email"           binding:"omitempty,email"`
	GrossSalary    decimal.Decimal `json:"gross_salary"    binding:"required"`
}

// UpdateEmployeeRequest 更新员工请求（仅更新非空字段）
type UpdateEmployeeRequest struct {
	FullName    *string          `json:"full_name,omitempty"`
	Email       *string          `json:"email,omitempty"`
	GrossSalary *decimal.Decimal `json:"gross_salary,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

// EmployeeResponse 员工响应
type EmployeeResponse struct {
	EmployeeID     string          `json:"employee_id"`
	CompanyID      string          `json:"company_id"`
	EmployeeNumber string          `json:"employee_number"`
	FullName       string          `json:"full_name"`
	Email          string          `json:"email"`
	GrossSalary    decimal.Decimal `json:"gross_salary"`
	IsActive       bool            `json:"is_active"`
}
