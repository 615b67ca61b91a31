package model

import "time"

// ── 任务种类 ──

const (
	JobKindProcessRun      = "process_run"      // 处理一次薪资运行
	JobKindGeneratePayslip = "generate_payslip" // 为一条明细生成工资单
)

// ── 任务状态 ──

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// Job 后台任务表 — 对应 jobs
//
// 请求路径只入队，执行在 worker 进程。瞬态失败回退为 pending 并延迟重试；
// 尝试次数耗尽置为 failed 并保留 last_error，任务不会被静默丢弃。
type Job struct {
	JobID       string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"job_id"`
	Kind        string     `gorm:"type:varchar(30);not null"  json:"kind"`
	TargetID    string     `gorm:"type:uuid;not null"         json:"target_id"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_jobs_status_run_at" json:"status"`
	Attempts    int        `gorm:"not null;default:0"         json:"attempts"`
	MaxAttempts int        `gorm:"not null;default:3"         json:"max_attempts"`
	RunAt       time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_jobs_status_run_at" json:"run_at"`
	StartedAt   *time.Time `gorm:""                           json:"started_at,omitempty"`
	FinishedAt  *time.Time `gorm:""                           json:"finished_at,omitempty"`
	LastError   string     `gorm:"type:text;not null;default:''" json:"last_error"`
	BaseModel
}

// TableName 指定表名
func (Job) TableName() string { return "jobs" }
