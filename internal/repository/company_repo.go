package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/manziosee/auditshield/internal/model"
)

// CompanyRepository 公司数据访问接口
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*model.Company, error)
	Update(ctx context.Context, company *model.Company) error
}

type companyRepo struct {
	db *gorm.DB
}

// NewCompanyRepo 创建 CompanyRepository 实例
func NewCompanyRepo(db *gorm.DB) CompanyRepository {
	return &companyRepo{db: db}
}

func (r *companyRepo) GetByID(ctx context.Context, id string) (*model.Company, error) {
	var company model.Company
	err := r.db.WithContext(ctx).
		Preload("Country").
		Preload("Currency").
		Where("company_id = ?", id).
		First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepo) Update(ctx context.Context, company *model.Company) error {
	return r.db.WithContext(ctx).Save(company).Error
}
