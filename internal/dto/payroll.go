package dto

import "github.com/shopspring/decimal"

// CreateRunRequest 创建薪资运行请求
type CreateRunRequest struct {
	PeriodStart string `json:"period_start" binding:"required"` // YYYY-MM-DD
	PeriodEnd   string `json:"period_end"   binding:"required"` // YYYY-MM-DD
	CurrencyID  string `json:"currency_id"  binding:"omitempty,uuid"`
	Notes       string `json:"notes"        binding:"max=2000"`
}

// RunResponse 薪资运行响应
type RunResponse struct {
	PayrollRunID              string             `json:"payroll_run_id"`
	CompanyID                 string             `json:"company_id"`
	PeriodStart               string             `json:"period_start"`
	PeriodEnd                 string             `json:"period_end"`
	CurrencyCode              string             `json:"currency_code,omitempty"`
	Status                    string             `json:"status"`
	GrossTotal                decimal.Decimal    `json:"gross_total"`
	DeductionTotal            decimal.Decimal    `json:"deduction_total"`
	EmployerContributionTotal decimal.Decimal    `json:"employer_contribution_total"`
	NetTotal                  decimal.Decimal    `json:"net_total"`
	ProcessedBy               *string            `json:"processed_by,omitempty"`
	ApprovedBy                *string            `json:"approved_by,omitempty"`
	Notes                     string             `json:"notes,omitempty"`
	LineItems                 []LineItemResponse `json:"line_items,omitempty"`
}

// LineItemResponse 薪资明细响应
type LineItemResponse struct {
	LineItemID                 string                     `json:"line_item_id"`
	EmployeeID                 string                     `json:"employee_id"`
	EmployeeName               string                     `json:"employee_name,omitempty"`
	EmployeeNumber             string                     `json:"employee_number,omitempty"`
	GrossSalary                decimal.Decimal            `json:"gross_salary"`
	EmployeeDeductions         map[string]decimal.Decimal `json:"employee_deductions"`
	EmployerContributions      map[string]decimal.Decimal `json:"employer_contributions"`
	TotalEmployeeDeductions    decimal.Decimal            `json:"total_employee_deductions"`
	TotalEmployerContributions decimal.Decimal            `json:"total_employer_contributions"`
	NetSalary                  decimal.Decimal            `json:"net_salary"`
	IsPayslipGenerated         bool                       `json:"is_payslip_generated"`
}

// SubmitResponse 异步提交响应：调用方据 job_id 查询执行状态
type SubmitResponse struct {
	JobID string `json:"job_id"`
}

// QueuePayslipsResponse 工资单批量入队响应
type QueuePayslipsResponse struct {
	Queued int      `json:"queued"`
	JobIDs []string `json:"job_ids"`
}

// PayslipResponse 工资单记录响应
type PayslipResponse struct {
	PayslipID  string `json:"payslip_id"`
	LineItemID string `json:"line_item_id"`
	FilePath   string `json:"file_path,omitempty"`
	IsReady    bool   `json:"is_ready"`
}

// JobResponse 后台任务状态响应（失败可观测：attempts 与 last_error 对外可查）
type JobResponse struct {
	JobID       string `json:"job_id"`
	Kind        string `json:"kind"`
	TargetID    string `json:"target_id"`
	Status      string `json:"status"`
	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	LastError   string `json:"last_error,omitempty"`
}
