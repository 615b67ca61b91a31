package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Country      CountryRepository
	Company      CompanyRepository
	User         UserRepository
	Employee     EmployeeRepository
	TaxRule      TaxRuleRepository
	PayrollRun   PayrollRunRepository
	LineItem     LineItemRepository
	Payslip      PayslipRepository
	Job          JobRepository
	Notification NotificationRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Country:      NewCountryRepo(db),
		Company:      NewCompanyRepo(db),
		User:         NewUserRepo(db),
		Employee:     NewEmployeeRepo(db),
		TaxRule:      NewTaxRuleRepo(db),
		PayrollRun:   NewPayrollRunRepo(db),
		LineItem:     NewLineItemRepo(db),
		Payslip:      NewPayslipRepo(db),
		Job:          NewJobRepo(db),
		Notification: NewNotificationRepo(db),
	}
}
