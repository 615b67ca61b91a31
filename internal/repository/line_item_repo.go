package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/manziosee/auditshield/internal/model"
)

// LineItemRepository 薪资明细数据访问接口
type LineItemRepository interface {
	GetByID(ctx context.Context, id string) (*model.PayrollLineItem, error)
	ListByRun(ctx context.Context, runID string) ([]model.PayrollLineItem, error)
	// ListPendingPayslip 返回尚未生成工资单的明细行
	ListPendingPayslip(ctx context.Context, runID string) ([]model.PayrollLineItem, error)
	MarkPayslipGenerated(ctx context.Context, id string) error
}

type lineItemRepo struct {
	db *gorm.DB
}

// NewLineItemRepo 创建 LineItemRepository 实例
func NewLineItemRepo(db *gorm.DB) LineItemRepository {
	return &lineItemRepo{db: db}
}

func (r *lineItemRepo) GetByID(ctx context.Context, id string) (*model.PayrollLineItem, error) {
	var item model.PayrollLineItem
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Where("line_item_id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *lineItemRepo) ListByRun(ctx context.Context, runID string) ([]model.PayrollLineItem, error) {
	var items []model.PayrollLineItem
	err := r.db.WithContext(ctx).
		Preload("Employee").
		Where("payroll_run_id = ?", runID).
		Order("created_at").
		Find(&items).Error
	return items, err
}

func (r *lineItemRepo) ListPendingPayslip(ctx context.Context, runID string) ([]model.PayrollLineItem, error) {
	var items []model.PayrollLineItem
	err := r.db.WithContext(ctx).
		Where("payroll_run_id = ? AND is_payslip_generated = ?", runID, false).
		Find(&items).Error
	return items, err
}

func (r *lineItemRepo) MarkPayslipGenerated(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.PayrollLineItem{}).
		Where("line_item_id = ?", id).
		Update("is_payslip_generated", true).Error
}
