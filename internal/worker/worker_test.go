package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/manziosee/auditshield/config"
	"github.com/manziosee/auditshield/internal/dto"
	"github.com/manziosee/auditshield/internal/model"
	"github.com/manziosee/auditshield/internal/repository"
	"github.com/manziosee/auditshield/internal/service"
)

// ── 测试替身 ──

// stubPayrollService 只关心 worker 会调用的两个入口
type stubPayrollService struct {
	processErr    error
	processedRuns []string
	failNotices   []string
}

func (s *stubPayrollService) ProcessRun(_ context.Context, runID string) error {
	s.processedRuns = append(s.processedRuns, runID)
	return s.processErr
}

func (s *stubPayrollService) NotifyRunFailed(_ context.Context, runID, reason string) error {
	s.failNotices = append(s.failNotices, runID+": "+reason)
	return nil
}

func (s *stubPayrollService) CreateRun(_ context.Context, _, _ string, _ *dto.CreateRunRequest) (*dto.RunResponse, error) {
	return nil, nil
}

func (s *stubPayrollService) GetRun(_ context.Context, _, _ string, _ bool) (*dto.RunResponse, error) {
	return nil, nil
}

func (s *stubPayrollService) ListRuns(_ context.Context, _ string, _ *dto.PaginationRequest) (*dto.PageResponse, error) {
	return nil, nil
}

func (s *stubPayrollService) SubmitRun(_ context.Context, _, _, _ string) (*dto.SubmitResponse, error) {
	return nil, nil
}

func (s *stubPayrollService) ApproveRun(_ context.Context, _, _, _ string) (*dto.RunResponse, error) {
	return nil, nil
}

func (s *stubPayrollService) MarkRunPaid(_ context.Context, _, _ string) (*dto.RunResponse, error) {
	return nil, nil
}

func (s *stubPayrollService) QueuePayslips(_ context.Context, _, _ string) (*dto.QueuePayslipsResponse, error) {
	return nil, nil
}

func (s *stubPayrollService) GetJob(_ context.Context, _ string) (*dto.JobResponse, error) {
	return nil, nil
}

type stubPayslipService struct {
	generateErr error
	generated   []string
}

func (s *stubPayslipService) Generate(_ context.Context, lineItemID string) error {
	s.generated = append(s.generated, lineItemID)
	return s.generateErr
}

func (s *stubPayslipService) GetByLineItem(_ context.Context, _, _ string) (*dto.PayslipResponse, error) {
	return nil, nil
}

// stubJobRepo 内存任务表
type stubJobRepo struct {
	jobs map[string]*model.Job
}

func newStubJobRepo() *stubJobRepo {
	return &stubJobRepo{jobs: make(map[string]*model.Job)}
}

func (m *stubJobRepo) Enqueue(_ context.Context, job *model.Job) error {
	if job.JobID == "" {
		job.JobID = fmt.Sprintf("test-job-%d", len(m.jobs)+1)
	}
	m.jobs[job.JobID] = job
	return nil
}

func (m *stubJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	if j, ok := m.jobs[id]; ok {
		return j, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *stubJobRepo) FetchDue(_ context.Context, limit int, now time.Time) ([]model.Job, error) {
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

func (m *stubJobRepo) Update(_ context.Context, job *model.Job) error {
	m.jobs[job.JobID] = job
	return nil
}

func (m *stubJobRepo) RescueStuck(_ context.Context, deadline time.Time) (int64, error) {
	var n int64
	for _, j := range m.jobs {
		if j.Status == model.JobStatusRunning && j.StartedAt != nil && j.StartedAt.Before(deadline) {
			j.Status = model.JobStatusPending
			n++
		}
	}
	return n, nil
}

// ── 测试辅助 ──

type workerFixture struct {
	worker  *Worker
	jobs    *stubJobRepo
	payroll *stubPayrollService
	payslip *stubPayslipService
}

func setupWorker() *workerFixture {
	cfg := &config.Config{
		Worker: config.WorkerConfig{
			PollInterval:   2 * time.Second,
			BatchSize:      20,
			MaxAttempts:    3,
			RetryBackoff:   60 * time.Second,
			StuckDeadline:  10 * time.Minute,
			RescueSchedule: "*/5 * * * *",
		},
	}
	jobs := newStubJobRepo()
	payroll := &stubPayrollService{}
	payslip := &stubPayslipService{}

	repo := &repository.Repository{Job: jobs}
	svc := &service.Services{Payroll: payroll, Payslip: payslip}
	return &workerFixture{
		worker:  New(cfg, repo, svc, zap.NewNop()),
		jobs:    jobs,
		payroll: payroll,
		payslip: payslip,
	}
}

func pendingJob(kind, targetID string, attempts int) *model.Job {
	return &model.Job{
		Kind:        kind,
		TargetID:    targetID,
		Status:      model.JobStatusPending,
		Attempts:    attempts,
		MaxAttempts: 3,
		RunAt:       time.Now().Add(-time.Second),
	}
}

// ════════════════════════════════════════
// 任务执行测试
// ════════════════════════════════════════

func TestWorker_RunJob_Success(t *testing.T) {
	f := setupWorker()
	job := pendingJob(model.JobKindProcessRun, "run-1", 0)
	f.jobs.Enqueue(context.Background(), job)

	f.worker.runJob(context.Background(), job)

	if job.Status != model.JobStatusSucceeded {
		t.Errorf("期望 succeeded，实际=%s", job.Status)
	}
	if job.Attempts != 1 {
		t.Errorf("期望 attempts=1，实际=%d", job.Attempts)
	}
	if job.FinishedAt == nil {
		t.Error("成功任务应记录 finished_at")
	}
	if len(f.payroll.processedRuns) != 1 || f.payroll.processedRuns[0] != "run-1" {
		t.Errorf("期望处理 run-1，实际=%v", f.payroll.processedRuns)
	}
}

func TestWorker_RunJob_TransientFailureRetries(t *testing.T) {
	f := setupWorker()
	f.payroll.processErr = errors.New("数据库暂时不可用")
	job := pendingJob(model.JobKindProcessRun, "run-1", 0)
	f.jobs.Enqueue(context.Background(), job)

	before := time.Now()
	f.worker.runJob(context.Background(), job)

	// 未耗尽：回退 pending，延迟重试
	if job.Status != model.JobStatusPending {
		t.Errorf("期望回退 pending，实际=%s", job.Status)
	}
	if job.Attempts != 1 {
		t.Errorf("期望 attempts=1，实际=%d", job.Attempts)
	}
	if job.LastError == "" {
		t.Error("失败任务应保留 last_error")
	}
	if job.FinishedAt != nil {
		t.Error("待重试任务不应有 finished_at")
	}
	if job.RunAt.Before(before.Add(59 * time.Second)) {
		t.Errorf("下次执行应在约 60 秒后，实际 run_at=%v", job.RunAt)
	}
	// 瞬态失败不写失败通知
	if len(f.payroll.failNotices) != 0 {
		t.Errorf("瞬态失败不应写通知，实际=%v", f.payroll.failNotices)
	}
}

func TestWorker_RunJob_ExhaustedMarksFailedAndNotifies(t *testing.T) {
	f := setupWorker()
	f.payroll.processErr = errors.New("税则配置无效")
	job := pendingJob(model.JobKindProcessRun, "run-1", 2) // 第三次也是最后一次尝试
	f.jobs.Enqueue(context.Background(), job)

	f.worker.runJob(context.Background(), job)

	if job.Status != model.JobStatusFailed {
		t.Errorf("期望 failed，实际=%s", job.Status)
	}
	if job.Attempts != 3 {
		t.Errorf("期望 attempts=3，实际=%d", job.Attempts)
	}
	if job.LastError != "税则配置无效" {
		t.Errorf("期望保留原始错误，实际=%s", job.LastError)
	}
	if job.FinishedAt == nil {
		t.Error("终态任务应记录 finished_at")
	}
	// 薪资运行任务耗尽后必须可观察：写一条失败通知
	if len(f.payroll.failNotices) != 1 {
		t.Fatalf("期望 1 条失败通知，实际=%d", len(f.payroll.failNotices))
	}
}

func TestWorker_RunJob_PayslipExhaustionSkipsRunNotice(t *testing.T) {
	f := setupWorker()
	f.payslip.generateErr = errors.New("写文件失败")
	job := pendingJob(model.JobKindGeneratePayslip, "item-1", 2)
	f.jobs.Enqueue(context.Background(), job)

	f.worker.runJob(context.Background(), job)

	if job.Status != model.JobStatusFailed {
		t.Errorf("期望 failed，实际=%s", job.Status)
	}
	// 运行失败通知只针对 process_run 任务
	if len(f.payroll.failNotices) != 0 {
		t.Errorf("工资单任务不应写运行失败通知，实际=%v", f.payroll.failNotices)
	}
}

func TestWorker_RunJob_UnknownKindFails(t *testing.T) {
	f := setupWorker()
	job := pendingJob("send_email", "x", 2)
	f.jobs.Enqueue(context.Background(), job)

	f.worker.runJob(context.Background(), job)

	if job.Status != model.JobStatusFailed {
		t.Errorf("未知种类重试耗尽应为 failed，实际=%s", job.Status)
	}
	if job.LastError == "" {
		t.Error("应保留错误信息")
	}
}

// ════════════════════════════════════════
// 批量取活与僵死回收测试
// ════════════════════════════════════════

func TestWorker_ProcessBatch_OnlyDueJobs(t *testing.T) {
	f := setupWorker()
	due := pendingJob(model.JobKindProcessRun, "run-due", 0)
	future := pendingJob(model.JobKindProcessRun, "run-future", 0)
	future.RunAt = time.Now().Add(time.Hour)
	f.jobs.Enqueue(context.Background(), due)
	f.jobs.Enqueue(context.Background(), future)

	f.worker.processBatch(context.Background())

	if len(f.payroll.processedRuns) != 1 || f.payroll.processedRuns[0] != "run-due" {
		t.Errorf("只应处理到期任务，实际=%v", f.payroll.processedRuns)
	}
	if future.Status != model.JobStatusPending {
		t.Errorf("未到期任务应保持 pending，实际=%s", future.Status)
	}
}

func TestWorker_RescueStuck(t *testing.T) {
	f := setupWorker()

	stuck := pendingJob(model.JobKindProcessRun, "run-stuck", 1)
	stuck.Status = model.JobStatusRunning
	started := time.Now().Add(-time.Hour)
	stuck.StartedAt = &started
	f.jobs.Enqueue(context.Background(), stuck)

	fresh := pendingJob(model.JobKindProcessRun, "run-fresh", 1)
	fresh.Status = model.JobStatusRunning
	freshStart := time.Now()
	fresh.StartedAt = &freshStart
	f.jobs.Enqueue(context.Background(), fresh)

	f.worker.rescueStuck(context.Background())

	if stuck.Status != model.JobStatusPending {
		t.Errorf("超时任务应被拨回 pending，实际=%s", stuck.Status)
	}
	if fresh.Status != model.JobStatusRunning {
		t.Errorf("未超时任务不应被回收，实际=%s", fresh.Status)
	}
}
