package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/manziosee/auditshield/config"
	"github.com/manziosee/auditshield/internal/dto"
	"github.com/manziosee/auditshield/internal/model"
	"github.com/manziosee/auditshield/internal/repository"
)

// ── 测试辅助 ──

type payrollFixture struct {
	svc           PayrollService
	countries     *mockCountryRepo
	companies     *mockCompanyRepo
	employees     *mockEmployeeRepo
	taxRules      *mockTaxRuleRepo
	runs          *mockPayrollRunRepo
	items         *mockLineItemRepo
	jobs          *mockJobRepo
	notifications *mockNotificationRepo
}

func setupPayrollFixture() *payrollFixture {
	f := &payrollFixture{
		countries:     newMockCountryRepo(),
		companies:     newMockCompanyRepo(),
		employees:     newMockEmployeeRepo(),
		taxRules:      newMockTaxRuleRepo(),
		items:         newMockLineItemRepo(),
		jobs:          newMockJobRepo(),
		notifications: newMockNotificationRepo(),
	}
	f.runs = newMockPayrollRunRepo(f.items, f.companies)

	repo := &repository.Repository{
		Country:      f.countries,
		Company:      f.companies,
		User:         newMockUserRepo(),
		Employee:     f.employees,
		TaxRule:      f.taxRules,
		PayrollRun:   f.runs,
		LineItem:     f.items,
		Payslip:      newMockPayslipRepo(),
		Job:          f.jobs,
		Notification: f.notifications,
	}
	cfg := &config.Config{
		Worker: config.WorkerConfig{
			MaxAttempts:   3,
			RetryBackoff:  60 * time.Second,
			StuckDeadline: 10 * time.Minute,
		},
	}
	f.svc = NewPayrollService(cfg, repo, nil, zap.NewNop())
	return f
}

// seedCompany 植入国家、公司与两名在册员工
func (f *payrollFixture) seedCompany() {
	countryID := "country-cn"
	f.countries.countries[countryID] = &model.Country{CountryID: countryID, ISOCode: "CN", Name: "中国"}
	f.companies.companies["company-1"] = &model.Company{
		CompanyID: "company-1",
		Name:      "测试公司",
		CountryID: &countryID,
	}
	f.employees.employees["emp-1"] = &model.Employee{
		EmployeeID: "emp-1", CompanyID: "company-1",
		EmployeeNumber: "E001", FullName: "张三",
		GrossSalary: d("50000"), IsActive: true,
	}
	f.employees.employees["emp-2"] = &model.Employee{
		EmployeeID: "emp-2", CompanyID: "company-1",
		EmployeeNumber: "E002", FullName: "李四",
		GrossSalary: d("30000"), IsActive: true,
	}
}

// seedRules 植入三条生效税则：累进所得税 + 双侧比例社保 + 固定会费
func (f *payrollFixture) seedRules() {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	f.taxRules.rules["rule-1"] = &model.TaxRule{
		TaxRuleID: "rule-1", CountryID: "country-cn",
		Name: "income_tax", RuleType: model.RuleTypeIncomeTax, CalcType: model.CalcTypeBracket,
		Configuration: model.JSONB(`{"brackets": [{"min": 0, "max": 30000, "rate": 0}, {"min": 30001, "max": 100000, "rate": 0.20}]}`),
		AppliesToEmployee: true, EffectiveFrom: from, IsActive: true,
	}
	f.taxRules.rules["rule-2"] = &model.TaxRule{
		TaxRuleID: "rule-2", CountryID: "country-cn",
		Name: "social_security", RuleType: model.RuleTypeSocialSecurity, CalcType: model.CalcTypePercentage,
		Configuration:     model.JSONB(`{"rate": 0.08, "employer_rate": 0.10}`),
		AppliesToEmployee: true, AppliesToEmployer: true, EffectiveFrom: from, IsActive: true,
	}
	f.taxRules.rules["rule-3"] = &model.TaxRule{
		TaxRuleID: "rule-3", CountryID: "country-cn",
		Name: "union_fee", RuleType: model.RuleTypeOther, CalcType: model.CalcTypeFixed,
		Configuration:     model.JSONB(`{"amount": 200}`),
		AppliesToEmployee: true, EffectiveFrom: from, IsActive: true,
	}
}

func (f *payrollFixture) createRun(t *testing.T) string {
	t.Helper()
	resp, err := f.svc.CreateRun(context.Background(), "company-1", "user-1", &dto.CreateRunRequest{
		PeriodStart: "2025-06-01",
		PeriodEnd:   "2025-06-30",
	})
	if err != nil {
		t.Fatalf("CreateRun 应成功: %v", err)
	}
	return resp.PayrollRunID
}

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ── CreateRun 测试 ──

func TestPayrollService_CreateRun_Draft(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()

	resp, err := f.svc.CreateRun(context.Background(), "company-1", "user-1", &dto.CreateRunRequest{
		PeriodStart: "2025-06-01",
		PeriodEnd:   "2025-06-30",
	})
	if err != nil {
		t.Fatalf("CreateRun 应成功: %v", err)
	}
	if resp.Status != model.RunStatusDraft {
		t.Errorf("新建运行应为 draft，实际=%s", resp.Status)
	}
	if !resp.GrossTotal.IsZero() || !resp.NetTotal.IsZero() {
		t.Errorf("新建运行汇总应为 0，实际 gross=%s net=%s", resp.GrossTotal, resp.NetTotal)
	}
}

func TestPayrollService_CreateRun_DuplicatePeriod(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()
	f.createRun(t)

	_, err := f.svc.CreateRun(context.Background(), "company-1", "user-1", &dto.CreateRunRequest{
		PeriodStart: "2025-06-01",
		PeriodEnd:   "2025-06-30",
	})
	if !errors.Is(err, ErrRunDuplicatePeriod) {
		t.Errorf("期望 ErrRunDuplicatePeriod，实际: %v", err)
	}
}

func TestPayrollService_CreateRun_DateFormatInvalid(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()

	_, err := f.svc.CreateRun(context.Background(), "company-1", "user-1", &dto.CreateRunRequest{
		PeriodStart: "06/01/2025",
		PeriodEnd:   "2025-06-30",
	})
	if !errors.Is(err, ErrRunDateInvalid) {
		t.Errorf("期望 ErrRunDateInvalid，实际: %v", err)
	}
}

func TestPayrollService_CreateRun_PeriodOrderInvalid(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()

	_, err := f.svc.CreateRun(context.Background(), "company-1", "user-1", &dto.CreateRunRequest{
		PeriodStart: "2025-06-30",
		PeriodEnd:   "2025-06-01",
	})
	if !errors.Is(err, ErrRunPeriodInvalid) {
		t.Errorf("期望 ErrRunPeriodInvalid，实际: %v", err)
	}
}

// ── SubmitRun 测试 ──

func TestPayrollService_SubmitRun_EnqueuesJob(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()
	runID := f.createRun(t)

	resp, err := f.svc.SubmitRun(context.Background(), "company-1", runID, "user-1")
	if err != nil {
		t.Fatalf("SubmitRun 应成功: %v", err)
	}

	job, err := f.jobs.GetByID(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("任务应已入队: %v", err)
	}
	if job.Kind != model.JobKindProcessRun || job.TargetID != runID {
		t.Errorf("任务内容错误: kind=%s target=%s", job.Kind, job.TargetID)
	}
	if job.Status != model.JobStatusPending || job.MaxAttempts != 3 {
		t.Errorf("任务初始状态错误: status=%s max_attempts=%d", job.Status, job.MaxAttempts)
	}
}

func TestPayrollService_SubmitRun_RejectedAfterApproval(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()
	runID := f.createRun(t)
	f.runs.runs[runID].Status = model.RunStatusApproved

	_, err := f.svc.SubmitRun(context.Background(), "company-1", runID, "user-1")
	if !errors.Is(err, ErrRunNotProcessable) {
		t.Errorf("approved 后提交应被拒，实际: %v", err)
	}
}

func TestPayrollService_SubmitRun_AllowedWhenStuckProcessing(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()
	runID := f.createRun(t)
	// worker 崩溃遗留的 processing 状态，允许重新提交
	f.runs.runs[runID].Status = model.RunStatusProcessing

	if _, err := f.svc.SubmitRun(context.Background(), "company-1", runID, "user-1"); err != nil {
		t.Errorf("processing 卡死运行重新提交应成功: %v", err)
	}
}

func TestPayrollService_SubmitRun_TenantBoundary(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()
	runID := f.createRun(t)

	_, err := f.svc.SubmitRun(context.Background(), "company-other", runID, "user-1")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("跨租户访问应返回 ErrRunNotFound，实际: %v", err)
	}
}

// ── ProcessRun 测试 ──

func TestPayrollService_ProcessRun_FullCycle(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()
	f.seedRules()
	runID := f.createRun(t)

	if err := f.svc.ProcessRun(context.Background(), runID); err != nil {
		t.Fatalf("ProcessRun 应成功: %v", err)
	}

	run, _ := f.runs.GetByID(context.Background(), runID)
	if run.Status != model.RunStatusCompleted {
		t.Fatalf("计算后应为 completed，实际=%s", run.Status)
	}

	// 员工1（50000）：所得税 4000 + 社保 4000 + 会费 200 = 8200，净薪 41800
	// 员工2（30000）：所得税 0 + 社保 2400 + 会费 200 = 2600，净薪 27400
	if !run.GrossTotal.Equal(d("80000")) {
		t.Errorf("期望毛薪总额=80000，实际=%s", run.GrossTotal)
	}
	if !run.DeductionTotal.Equal(d("10800")) {
		t.Errorf("期望扣缴总额=10800，实际=%s", run.DeductionTotal)
	}
	// 雇主侧社保 0.10：5000 + 3000 = 8000
	if !run.EmployerContributionTotal.Equal(d("8000")) {
		t.Errorf("期望雇主缴费总额=8000，实际=%s", run.EmployerContributionTotal)
	}
	if !run.NetTotal.Equal(d("69200")) {
		t.Errorf("期望净薪总额=69200，实际=%s", run.NetTotal)
	}
	// 不变式：净薪总额 = 毛薪总额 − 扣缴总额
	if !run.NetTotal.Equal(run.GrossTotal.Sub(run.DeductionTotal)) {
		t.Errorf("汇总不变式被破坏: net=%s gross=%s deduction=%s",
			run.NetTotal, run.GrossTotal, run.DeductionTotal)
	}

	items, _ := f.items.ListByRun(context.Background(), runID)
	if len(items) != 2 {
		t.Fatalf("期望 2 条明细，实际=%d", len(items))
	}
	for _, item := range items {
		if !item.NetSalary.Equal(item.GrossSalary.Sub(item.TotalEmployeeDeductions)) {
			t.Errorf("明细不变式被破坏: employee=%s", item.EmployeeID)
		}
	}

	// 完成通知已写入
	notifications, _ := f.notifications.ListByCompany(context.Background(), "company-1", false)
	if len(notifications) != 1 || notifications[0].Kind != NotifyRunCompleted {
		t.Errorf("期望 1 条完成通知，实际=%d", len(notifications))
	}
}

func TestPayrollService_ProcessRun_ReprocessOverwritesInPlace(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()
	f.seedRules()
	runID := f.createRun(t)

	if err := f.svc.ProcessRun(context.Background(), runID); err != nil {
		t.Fatalf("首次计算应成功: %v", err)
	}

	// 调薪后重算：明细按 (run, employee) 键覆盖，绝不重复
	f.employees.employees["emp-1"].GrossSalary = d("60000")
	if err := f.svc.ProcessRun(context.Background(), runID); err != nil {
		t.Fatalf("重算应成功: %v", err)
	}

	items, _ := f.items.ListByRun(context.Background(), runID)
	if len(items) != 2 {
		t.Fatalf("重算后仍应为 2 条明细，实际=%d", len(items))
	}
	run, _ := f.runs.GetByID(context.Background(), runID)
	if !run.GrossTotal.Equal(d("90000")) {
		t.Errorf("重算后毛薪总额应为 90000，实际=%s", run.GrossTotal)
	}
}

func TestPayrollService_ProcessRun_ShrunkRosterDropsStaleItems(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()
	f.seedRules()
	runID := f.createRun(t)

	if err := f.svc.ProcessRun(context.Background(), runID); err != nil {
		t.Fatalf("首次计算应成功: %v", err)
	}

	// 员工2 在两轮之间被停用：重算后其明细必须被清除，
	// 否则汇总与落库明细之和对不上
	f.employees.employees["emp-2"].IsActive = false
	if err := f.svc.ProcessRun(context.Background(), runID); err != nil {
		t.Fatalf("重算应成功: %v", err)
	}

	items, _ := f.items.ListByRun(context.Background(), runID)
	if len(items) != 1 {
		t.Fatalf("停用员工的残留明细应被清除，期望 1 条，实际=%d", len(items))
	}
	if items[0].EmployeeID != "emp-1" {
		t.Errorf("保留的明细应属于在册员工，实际=%s", items[0].EmployeeID)
	}

	// 汇总必须等于落库明细各列之和
	run, _ := f.runs.GetByID(context.Background(), runID)
	netSum := decimal.Zero
	grossSum := decimal.Zero
	for _, item := range items {
		netSum = netSum.Add(item.NetSalary)
		grossSum = grossSum.Add(item.GrossSalary)
	}
	if !run.NetTotal.Equal(netSum) {
		t.Errorf("净薪总额与明细之和不一致: run=%s sum=%s", run.NetTotal, netSum)
	}
	if !run.GrossTotal.Equal(grossSum) {
		t.Errorf("毛薪总额与明细之和不一致: run=%s sum=%s", run.GrossTotal, grossSum)
	}
}

func TestPayrollService_ProcessRun_NoCountryMeansNoDeductions(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()
	f.seedRules()
	// 解除国别绑定：无适用规则，净薪=毛薪
	f.companies.companies["company-1"].CountryID = nil
	runID := f.createRun(t)

	if err := f.svc.ProcessRun(context.Background(), runID); err != nil {
		t.Fatalf("ProcessRun 应成功: %v", err)
	}

	run, _ := f.runs.GetByID(context.Background(), runID)
	if !run.DeductionTotal.IsZero() {
		t.Errorf("无国别时扣缴总额应为 0，实际=%s", run.DeductionTotal)
	}
	if !run.NetTotal.Equal(run.GrossTotal) {
		t.Errorf("无国别时净薪应等于毛薪: net=%s gross=%s", run.NetTotal, run.GrossTotal)
	}
}

func TestPayrollService_ProcessRun_MalformedRuleAbortsWholeRun(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()
	f.seedRules()
	// 历史损坏数据：bracket 规则带 percentage 形状的配置
	f.taxRules.rules["rule-1"].Configuration = model.JSONB(`{"rate": 0.2}`)
	runID := f.createRun(t)

	if err := f.svc.ProcessRun(context.Background(), runID); err == nil {
		t.Fatal("坏配置应导致整轮失败")
	}

	// 不落半套明细
	items, _ := f.items.ListByRun(context.Background(), runID)
	if len(items) != 0 {
		t.Errorf("失败的运行不应留下明细，实际=%d", len(items))
	}
}

func TestPayrollService_ProcessRun_RejectedAfterApproval(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()
	runID := f.createRun(t)
	f.runs.runs[runID].Status = model.RunStatusPaid

	if err := f.svc.ProcessRun(context.Background(), runID); !errors.Is(err, ErrRunNotProcessable) {
		t.Errorf("paid 运行不可重算，实际: %v", err)
	}
}

// ── 审批流程测试 ──

func TestPayrollService_StateMachine(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()
	f.seedRules()
	runID := f.createRun(t)

	// draft 不能直接审批
	if _, err := f.svc.ApproveRun(context.Background(), "company-1", runID, "admin-1"); !errors.Is(err, ErrRunInvalidTransition) {
		t.Errorf("draft 审批应被拒，实际: %v", err)
	}

	// completed → approved → paid
	if err := f.svc.ProcessRun(context.Background(), runID); err != nil {
		t.Fatalf("ProcessRun 应成功: %v", err)
	}
	resp, err := f.svc.ApproveRun(context.Background(), "company-1", runID, "admin-1")
	if err != nil {
		t.Fatalf("completed 审批应成功: %v", err)
	}
	if resp.Status != model.RunStatusApproved || resp.ApprovedBy == nil {
		t.Errorf("审批后状态错误: status=%s", resp.Status)
	}

	// approved 不能重复审批
	if _, err := f.svc.ApproveRun(context.Background(), "company-1", runID, "admin-1"); !errors.Is(err, ErrRunInvalidTransition) {
		t.Errorf("重复审批应被拒，实际: %v", err)
	}

	paid, err := f.svc.MarkRunPaid(context.Background(), "company-1", runID)
	if err != nil {
		t.Fatalf("标记发放应成功: %v", err)
	}
	if paid.Status != model.RunStatusPaid {
		t.Errorf("期望 paid，实际=%s", paid.Status)
	}

	// paid 为终态
	if _, err := f.svc.MarkRunPaid(context.Background(), "company-1", runID); !errors.Is(err, ErrRunInvalidTransition) {
		t.Errorf("重复标记发放应被拒，实际: %v", err)
	}
}

// ── QueuePayslips 测试 ──

func TestPayrollService_QueuePayslips(t *testing.T) {
	f := setupPayrollFixture()
	f.seedCompany()
	f.seedRules()
	runID := f.createRun(t)

	// draft 不能入队
	if _, err := f.svc.QueuePayslips(context.Background(), "company-1", runID); !errors.Is(err, ErrRunInvalidTransition) {
		t.Errorf("draft 入队工资单应被拒，实际: %v", err)
	}

	if err := f.svc.ProcessRun(context.Background(), runID); err != nil {
		t.Fatalf("ProcessRun 应成功: %v", err)
	}

	resp, err := f.svc.QueuePayslips(context.Background(), "company-1", runID)
	if err != nil {
		t.Fatalf("QueuePayslips 应成功: %v", err)
	}
	if resp.Queued != 2 {
		t.Errorf("期望入队 2 个任务，实际=%d", resp.Queued)
	}

	// 已生成的明细自动跳过（幂等）
	items, _ := f.items.ListByRun(context.Background(), runID)
	f.items.MarkPayslipGenerated(context.Background(), items[0].LineItemID)

	resp, err = f.svc.QueuePayslips(context.Background(), "company-1", runID)
	if err != nil {
		t.Fatalf("重复入队应成功: %v", err)
	}
	if resp.Queued != 1 {
		t.Errorf("已生成的明细应被跳过，期望 1，实际=%d", resp.Queued)
	}
}

// ── GetJob 测试 ──

func TestPayrollService_GetJob_NotFound(t *testing.T) {
	f := setupPayrollFixture()

	_, err := f.svc.GetJob(context.Background(), "missing")
	if !errors.Is(err, ErrJobNotFound) {
		t.Errorf("期望 ErrJobNotFound，实际: %v", err)
	}
}
