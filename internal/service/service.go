package service

import (
	"go.uber.org/zap"

	"github.com/manziosee/auditshield/config"
	"github.com/manziosee/auditshield/internal/repository"
	"github.com/manziosee/auditshield/pkg/jwt"
	"github.com/manziosee/auditshield/pkg/redis"
)

// Services 所有业务服务的聚合入口
type Services struct {
	Auth         AuthService
	Company      CompanyService
	Employee     EmployeeService
	TaxRule      TaxRuleService
	Payroll      PayrollService
	Payslip      PayslipService
	Export       ExportService
	Notification NotificationService
}

// NewServices 创建 Services 聚合（依赖注入）
func NewServices(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Services {
	payslip := NewPayslipService(cfg, repo, logger)
	return &Services{
		Auth:         NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		Company:      NewCompanyService(repo, logger),
		Employee:     NewEmployeeService(repo, logger),
		TaxRule:      NewTaxRuleService(repo, logger),
		Payroll:      NewPayrollService(cfg, repo, rdb, logger),
		Payslip:      payslip,
		Export:       NewExportService(repo, logger),
		Notification: NewNotificationService(repo, logger),
	}
}
