package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/manziosee/auditshield/internal/dto"
	"github.com/manziosee/auditshield/internal/model"
	"github.com/manziosee/auditshield/internal/repository"
)

// ── 员工模块业务错误 ──

var (
	ErrEmployeeNotFound    = errors.New("员工不存在")
	ErrEmployeeNotInTenant = errors.New("员工不属于当前公司")
	ErrSalaryNegative      = errors.New("毛薪不能为负")
)

// EmployeeService 员工业务接口
// 所有操作带租户边界：只能触达 companyID 名下的员工
type EmployeeService interface {
	Create(ctx context.Context, companyID, operatorID string, req *dto.CreateEmployeeRequest) (*dto.EmployeeResponse, error)
	Get(ctx context.Context, companyID, employeeID string) (*dto.EmployeeResponse, error)
	List(ctx context.Context, companyID string, page *dto.PaginationRequest) (*dto.PageResponse, error)
	Update(ctx context.Context, companyID, employeeID, operatorID string, req *dto.UpdateEmployeeRequest) (*dto.EmployeeResponse, error)
	Deactivate(ctx context.Context, companyID, employeeID, operatorID string) error
}

type employeeService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewEmployeeService 创建 EmployeeService 实例
func NewEmployeeService(repo *repository.Repository, logger *zap.Logger) EmployeeService {
	return &employeeService{repo: repo, logger: logger}
}

func (s *employeeService) Create(ctx context.Context, companyID, operatorID string, req *dto.CreateEmployeeRequest) (*dto.EmployeeResponse, error) {
	if req.GrossSalary.IsNegative() {
		return nil, ErrSalaryNegative
	}

	employee := &model.Employee{
		CompanyID:      companyID,
		EmployeeNumber: req.EmployeeNumber,
		FullName:       req.FullName,
		Email:          req.Email,
		GrossSalary:    req.GrossSalary,
		IsActive:       true,
	}
	employee.CreatedBy = &operatorID

	if err := s.repo.Employee.Create(ctx, employee); err != nil {
		s.logger.Error("创建员工失败", zap.Error(err))
		return nil, err
	}
	return toEmployeeResponse(employee), nil
}

func (s *employeeService) Get(ctx context.Context, companyID, employeeID string) (*dto.EmployeeResponse, error) {
	employee, err := s.getInTenant(ctx, companyID, employeeID)
	if err != nil {
		return nil, err
	}
	return toEmployeeResponse(employee), nil
}

func (s *employeeService) List(ctx context.Context, companyID string, page *dto.PaginationRequest) (*dto.PageResponse, error) {
	employees, total, err := s.repo.Employee.List(ctx, companyID, page.GetPage(), page.GetPageSize())
	if err != nil {
		s.logger.Error("查询员工列表失败", zap.Error(err))
		return nil, err
	}

	items := make([]dto.EmployeeResponse, 0, len(employees))
	for i := range employees {
		items = append(items, *toEmployeeResponse(&employees[i]))
	}
	return &dto.PageResponse{
		Items:    items,
		Total:    total,
		Page:     page.GetPage(),
		PageSize: page.GetPageSize(),
	}, nil
}

func (s *employeeService) Update(ctx context.Context, companyID, employeeID, operatorID string, req *dto.UpdateEmployeeRequest) (*dto.EmployeeResponse, error) {
	employee, err := s.getInTenant(ctx, companyID, employeeID)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		employee.FullName = *req.FullName
	}
	if req.Email != nil {
		employee.Email = *req.Email
	}
	if req.GrossSalary != nil {
		if req.GrossSalary.IsNegative() {
			return nil, ErrSalaryNegative
		}
		employee.GrossSalary = *req.GrossSalary
	}
	if req.IsActive != nil {
		employee.IsActive = *req.IsActive
	}
	employee.UpdatedBy = &operatorID

	if err := s.repo.Employee.Update(ctx, employee); err != nil {
		s.logger.Error("更新员工失败", zap.Error(err))
		return nil, err
	}
	return toEmployeeResponse(employee), nil
}

func (s *employeeService) Deactivate(ctx context.Context, companyID, employeeID, operatorID string) error {
	if _, err := s.getInTenant(ctx, companyID, employeeID); err != nil {
		return err
	}
	return s.repo.Employee.Deactivate(ctx, employeeID, operatorID)
}

// ── 私有辅助方法 ──

// getInTenant 查询员工并校验租户边界
func (s *employeeService) getInTenant(ctx context.Context, companyID, employeeID string) (*model.Employee, error) {
	employee, err := s.repo.Employee.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	if employee.CompanyID != companyID {
		// 不泄露其他租户的存在性
		return nil, ErrEmployeeNotFound
	}
	return employee, nil
}

// ── 响应转换器 ──

func toEmployeeResponse(e *model.Employee) *dto.EmployeeResponse {
	return &dto.EmployeeResponse{
		EmployeeID:     e.EmployeeID,
		CompanyID:      e.CompanyID,
		EmployeeNumber: e.EmployeeNumber,
		FullName:       e.FullName,
		Email:          e.Email,
		GrossSalary:    e.GrossSalary,
		IsActive:       e.IsActive,
	}
}
