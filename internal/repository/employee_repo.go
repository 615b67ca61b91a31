package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/manziosee/auditshield/internal/model"
)

// EmployeeRepository 员工数据访问接口
type EmployeeRepository interface {
	Create(ctx context.Context, employee *model.Employee) error
	GetByID(ctx context.Context, id string) (*model.Employee, error)
	List(ctx context.Context, companyID string, page, pageSize int) ([]model.Employee, int64, error)
	// ListActiveByCompany 返回在册员工花名册 —— 薪资引擎的输入
	ListActiveByCompany(ctx context.Context, companyID string) ([]model.Employee, error)
	Update(ctx context.Context, employee *model.Employee) error
	Deactivate(ctx context.Context, id string, updatedBy string) error
}

type employeeRepo struct {
	db *gorm.DB
}

// NewEmployeeRepo 创建 EmployeeRepository 实例
func NewEmployeeRepo(db *gorm.DB) EmployeeRepository {
	return &employeeRepo{db: db}
}

func (r *employeeRepo) Create(ctx context.Context, employee *model.Employee) error {
	return r.db.WithContext(ctx).Create(employee).Error
}

func (r *employeeRepo) GetByID(ctx context.Context, id string) (*model.Employee, error) {
	var employee model.Employee
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", id).
		First(&employee).Error
	if err != nil {
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepo) List(ctx context.Context, companyID string, page, pageSize int) ([]model.Employee, int64, error) {
	var employees []model.Employee
	var total int64

	q := r.db.WithContext(ctx).
		Model(&model.Employee{}).
		Where("company_id = ?", companyID)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("employee_number").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&employees).Error
	return employees, total, err
}

func (r *employeeRepo) ListActiveByCompany(ctx context.Context, companyID string) ([]model.Employee, error) {
	var employees []model.Employee
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("employee_number").
		Find(&employees).Error
	return employees, err
}

func (r *employeeRepo) Update(ctx context.Context, employee *model.Employee) error {
	return r.db.WithContext(ctx).Save(employee).Error
}

func (r *employeeRepo) Deactivate(ctx context.Context, id string, updatedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Employee{}).
		Where("employee_id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_by": updatedBy,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}
