package handler

import "github.com/manziosee/auditshield/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Company      *CompanyHandler
	Employee     *EmployeeHandler
	TaxRule      *TaxRuleHandler
	Payroll      *PayrollHandler
	Export       *ExportHandler
	Notification *NotificationHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Services) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Company:      NewCompanyHandler(svc.Company),
		Employee:     NewEmployeeHandler(svc.Employee),
		TaxRule:      NewTaxRuleHandler(svc.TaxRule),
		Payroll:      NewPayrollHandler(svc.Payroll, svc.Payslip),
		Export:       NewExportHandler(svc.Export),
		Notification: NewNotificationHandler(svc.Notification),
	}
}
