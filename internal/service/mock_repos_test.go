package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/manziosee/auditshield/internal/model"
)

// ── Mock Repositories ──
//
// 基于内存 map 的 Repository 替身，供服务层单元测试使用。
// 与真实实现一致：未命中返回 gorm.ErrRecordNotFound。

// ── Country ──

type mockCountryRepo struct {
	countries  map[string]*model.Country
	currencies map[string]*model.Currency
}

func newMockCountryRepo() *mockCountryRepo {
	return &mockCountryRepo{
		countries:  make(map[string]*model.Country),
		currencies: make(map[string]*model.Currency),
	}
}

func (m *mockCountryRepo) GetByID(_ context.Context, id string) (*model.Country, error) {
	if c, ok := m.countries[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCountryRepo) ListCountries(_ context.Context) ([]model.Country, error) {
	var out []model.Country
	for _, c := range m.countries {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCountryRepo) ListCurrencies(_ context.Context) ([]model.Currency, error) {
	var out []model.Currency
	for _, c := range m.currencies {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCountryRepo) GetCurrencyByID(_ context.Context, id string) (*model.Currency, error) {
	if c, ok := m.currencies[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Company ──

type mockCompanyRepo struct {
	companies map[string]*model.Company
}

func newMockCompanyRepo() *mockCompanyRepo {
	return &mockCompanyRepo{companies: make(map[string]*model.Company)}
}

func (m *mockCompanyRepo) GetByID(_ context.Context, id string) (*model.Company, error) {
	if c, ok := m.companies[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCompanyRepo) Update(_ context.Context, company *model.Company) error {
	m.companies[company.CompanyID] = company
	return nil
}

// ── User ──

type mockUserRepo struct {
	users map[string]*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		user.UserID = fmt.Sprintf("test-user-%d", len(m.users)+1)
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Employee ──

type mockEmployeeRepo struct {
	employees map[string]*model.Employee
}

func newMockEmployeeRepo() *mockEmployeeRepo {
	return &mockEmployeeRepo{employees: make(map[string]*model.Employee)}
}

func (m *mockEmployeeRepo) Create(_ context.Context, employee *model.Employee) error {
	if employee.EmployeeID == "" {
		employee.EmployeeID = fmt.Sprintf("test-emp-%d", len(m.employees)+1)
	}
	m.employees[employee.EmployeeID] = employee
	return nil
}

func (m *mockEmployeeRepo) GetByID(_ context.Context, id string) (*model.Employee, error) {
	if e, ok := m.employees[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEmployeeRepo) List(_ context.Context, companyID string, page, pageSize int) ([]model.Employee, int64, error) {
	all := m.sortedByCompany(companyID, false)
	return all, int64(len(all)), nil
}

func (m *mockEmployeeRepo) ListActiveByCompany(_ context.Context, companyID string) ([]model.Employee, error) {
	return m.sortedByCompany(companyID, true), nil
}

func (m *mockEmployeeRepo) Update(_ context.Context, employee *model.Employee) error {
	m.employees[employee.EmployeeID] = employee
	return nil
}

func (m *mockEmployeeRepo) Deactivate(_ context.Context, id string, updatedBy string) error {
	if e, ok := m.employees[id]; ok {
		e.IsActive = false
		e.UpdatedBy = &updatedBy
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockEmployeeRepo) sortedByCompany(companyID string, activeOnly bool) []model.Employee {
	var out []model.Employee
	for _, e := range m.employees {
		if e.CompanyID != companyID {
			continue
		}
		if activeOnly && !e.IsActive {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeNumber < out[j].EmployeeNumber })
	return out
}

// ── TaxRule ──

type mockTaxRuleRepo struct {
	rules map[string]*model.TaxRule
}

func newMockTaxRuleRepo() *mockTaxRuleRepo {
	return &mockTaxRuleRepo{rules: make(map[string]*model.TaxRule)}
}

func (m *mockTaxRuleRepo) Create(_ context.Context, rule *model.TaxRule) error {
	if rule.TaxRuleID == "" {
		rule.TaxRuleID = fmt.Sprintf("test-rule-%d", len(m.rules)+1)
	}
	m.rules[rule.TaxRuleID] = rule
	return nil
}

func (m *mockTaxRuleRepo) GetByID(_ context.Context, id string) (*model.TaxRule, error) {
	if r, ok := m.rules[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTaxRuleRepo) ListActive(_ context.Context, countryID string, asOf time.Time) ([]model.TaxRule, error) {
	var out []model.TaxRule
	for _, r := range m.rules {
		if r.CountryID != countryID || !r.IsActive {
			continue
		}
		if r.EffectiveFrom.After(asOf) {
			continue
		}
		if r.EffectiveTo != nil && r.EffectiveTo.Before(asOf) {
			continue
		}
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RuleType != out[j].RuleType {
			return out[i].RuleType < out[j].RuleType
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *mockTaxRuleRepo) ListByCountry(_ context.Context, countryID string) ([]model.TaxRule, error) {
	var out []model.TaxRule
	for _, r := range m.rules {
		if r.CountryID == countryID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockTaxRuleRepo) Update(_ context.Context, rule *model.TaxRule) error {
	m.rules[rule.TaxRuleID] = rule
	return nil
}

func (m *mockTaxRuleRepo) Deactivate(_ context.Context, id string) error {
	if r, ok := m.rules[id]; ok {
		r.IsActive = false
		return nil
	}
	return gorm.ErrRecordNotFound
}

// ── LineItem ──

type mockLineItemRepo struct {
	// key: payroll_run_id + ":" + employee_id，模拟唯一键
	items map[string]*model.PayrollLineItem
}

func newMockLineItemRepo() *mockLineItemRepo {
	return &mockLineItemRepo{items: make(map[string]*model.PayrollLineItem)}
}

func lineItemKey(runID, employeeID string) string {
	return runID + ":" + employeeID
}

func (m *mockLineItemRepo) GetByID(_ context.Context, id string) (*model.PayrollLineItem, error) {
	for _, item := range m.items {
		if item.LineItemID == id {
			return item, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockLineItemRepo) ListByRun(_ context.Context, runID string) ([]model.PayrollLineItem, error) {
	var out []model.PayrollLineItem
	for _, item := range m.items {
		if item.PayrollRunID == runID {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (m *mockLineItemRepo) ListPendingPayslip(_ context.Context, runID string) ([]model.PayrollLineItem, error) {
	var out []model.PayrollLineItem
	for _, item := range m.items {
		if item.PayrollRunID == runID && !item.IsPayslipGenerated {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (m *mockLineItemRepo) MarkPayslipGenerated(_ context.Context, id string) error {
	for _, item := range m.items {
		if item.LineItemID == id {
			item.IsPayslipGenerated = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// upsert 模拟按 (run, employee) 唯一键的覆盖写入
func (m *mockLineItemRepo) upsert(item model.PayrollLineItem) {
	key := lineItemKey(item.PayrollRunID, item.EmployeeID)
	if existing, ok := m.items[key]; ok {
		// 覆盖计算列，保留主键与工资单标记
		item.LineItemID = existing.LineItemID
		item.IsPayslipGenerated = existing.IsPayslipGenerated
	} else {
		item.LineItemID = fmt.Sprintf("test-item-%d", len(m.items)+1)
	}
	m.items[key] = &item
}

// ── PayrollRun ──

type mockPayrollRunRepo struct {
	runs      map[string]*model.PayrollRun
	lineItems *mockLineItemRepo // SaveProcessed 的落点
	companies *mockCompanyRepo  // GetByID 模拟 Preload("Company")
}

func newMockPayrollRunRepo(lineItems *mockLineItemRepo, companies *mockCompanyRepo) *mockPayrollRunRepo {
	return &mockPayrollRunRepo{
		runs:      make(map[string]*model.PayrollRun),
		lineItems: lineItems,
		companies: companies,
	}
}

func (m *mockPayrollRunRepo) Create(_ context.Context, run *model.PayrollRun) error {
	if run.PayrollRunID == "" {
		run.PayrollRunID = fmt.Sprintf("test-run-%d", len(m.runs)+1)
	}
	m.runs[run.PayrollRunID] = run
	return nil
}

func (m *mockPayrollRunRepo) GetByID(_ context.Context, id string) (*model.PayrollRun, error) {
	if r, ok := m.runs[id]; ok {
		copied := *r
		if m.companies != nil {
			if c, ok := m.companies.companies[r.CompanyID]; ok {
				copied.Company = c
			}
		}
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPayrollRunRepo) GetByPeriod(_ context.Context, companyID string, periodStart, periodEnd time.Time) (*model.PayrollRun, error) {
	for _, r := range m.runs {
		if r.CompanyID == companyID && r.PeriodStart.Equal(periodStart) && r.PeriodEnd.Equal(periodEnd) {
			copied := *r
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPayrollRunRepo) List(_ context.Context, companyID string, page, pageSize int) ([]model.PayrollRun, int64, error) {
	var out []model.PayrollRun
	for _, r := range m.runs {
		if r.CompanyID == companyID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	return out, int64(len(out)), nil
}

func (m *mockPayrollRunRepo) Update(_ context.Context, run *model.PayrollRun) error {
	m.runs[run.PayrollRunID] = run
	return nil
}

func (m *mockPayrollRunRepo) UpdateStatus(_ context.Context, id, status string) error {
	if r, ok := m.runs[id]; ok {
		r.Status = status
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (m *mockPayrollRunRepo) SaveProcessed(_ context.Context, run *model.PayrollRun, items []model.PayrollLineItem) error {
	stored, ok := m.runs[run.PayrollRunID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	// 与真实实现一致：先清除本轮花名册之外的残留明细，再覆盖写入
	keep := make(map[string]bool, len(items))
	for i := range items {
		keep[lineItemKey(run.PayrollRunID, items[i].EmployeeID)] = true
	}
	for key, existing := range m.lineItems.items {
		if existing.PayrollRunID == run.PayrollRunID && !keep[key] {
			delete(m.lineItems.items, key)
		}
	}
	for _, item := range items {
		m.lineItems.upsert(item)
	}
	stored.GrossTotal = run.GrossTotal
	stored.DeductionTotal = run.DeductionTotal
	stored.EmployerContributionTotal = run.EmployerContributionTotal
	stored.NetTotal = run.NetTotal
	stored.Status = run.Status
	return nil
}

// ── Payslip ──

type mockPayslipRepo struct {
	payslips map[string]*model.Payslip // key: line_item_id
}

func newMockPayslipRepo() *mockPayslipRepo {
	return &mockPayslipRepo{payslips: make(map[string]*model.Payslip)}
}

func (m *mockPayslipRepo) GetOrCreate(_ context.Context, lineItemID string) (*model.Payslip, error) {
	if p, ok := m.payslips[lineItemID]; ok {
		return p, nil
	}
	p := &model.Payslip{
		PayslipID:  fmt.Sprintf("test-payslip-%d", len(m.payslips)+1),
		LineItemID: lineItemID,
	}
	m.payslips[lineItemID] = p
	return p, nil
}

func (m *mockPayslipRepo) Update(_ context.Context, payslip *model.Payslip) error {
	m.payslips[payslip.LineItemID] = payslip
	return nil
}

// ── Job ──

type mockJobRepo struct {
	jobs map[string]*model.Job
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*model.Job)}
}

func (m *mockJobRepo) Enqueue(_ context.Context, job *model.Job) error {
	if job.JobID == "" {
		job.JobID = fmt.Sprintf("test-job-%d", len(m.jobs)+1)
	}
	m.jobs[job.JobID] = job
	return nil
}

func (m *mockJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	if j, ok := m.jobs[id]; ok {
		return j, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockJobRepo) FetchDue(_ context.Context, limit int, now time.Time) ([]model.Job, error) {
	var out []model.Job
	for _, j := range m.jobs {
		if j.Status == model.JobStatusPending && !j.RunAt.After(now) {
			j.Status = model.JobStatusRunning
			started := now
			j.StartedAt = &started
			out = append(out, *j)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *mockJobRepo) Update(_ context.Context, job *model.Job) error {
	m.jobs[job.JobID] = job
	return nil
}

func (m *mockJobRepo) RescueStuck(_ context.Context, deadline time.Time) (int64, error) {
	var n int64
	for _, j := range m.jobs {
		if j.Status == model.JobStatusRunning && j.StartedAt != nil && j.StartedAt.Before(deadline) {
			j.Status = model.JobStatusPending
			n++
		}
	}
	return n, nil
}

// ── Notification ──

type mockNotificationRepo struct {
	notifications []*model.Notification
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if n.NotificationID == "" {
		n.NotificationID = fmt.Sprintf("test-notify-%d", len(m.notifications)+1)
	}
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *mockNotificationRepo) ListByCompany(_ context.Context, companyID string, unreadOnly bool) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range m.notifications {
		if n.CompanyID != companyID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, *n)
	}
	return out, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, id string) error {
	for _, n := range m.notifications {
		if n.NotificationID == id {
			n.IsRead = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}
