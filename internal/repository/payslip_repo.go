package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/manziosee/auditshield/internal/model"
)

// PayslipRepository 工资单记录数据访问接口
type PayslipRepository interface {
	// GetOrCreate 取出明细行对应的工资单记录，不存在则创建（幂等）
	GetOrCreate(ctx context.Context, lineItemID string) (*model.Payslip, error)
	Update(ctx context.Context, payslip *model.Payslip) error
}

type payslipRepo struct {
	db *gorm.DB
}

// NewPayslipRepo 创建 PayslipRepository 实例
func NewPayslipRepo(db *gorm.DB) PayslipRepository {
	return &payslipRepo{db: db}
}

func (r *payslipRepo) GetOrCreate(ctx context.Context, lineItemID string) (*model.Payslip, error) {
	var payslip model.Payslip
	err := r.db.WithContext(ctx).
		Where("line_item_id = ?", lineItemID).
		First(&payslip).Error
	if err == nil {
		return &payslip, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	payslip = model.Payslip{LineItemID: lineItemID}
	if err := r.db.WithContext(ctx).Create(&payslip).Error; err != nil {
		return nil, err
	}
	return &payslip, nil
}

func (r *payslipRepo) Update(ctx context.Context, payslip *model.Payslip) error {
	return r.db.WithContext(ctx).Save(payslip).Error
}
