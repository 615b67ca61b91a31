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

// ── 公司模块业务错误 ──

var (
	ErrCompanyNotFound  = errors.New("公司不存在")
	ErrCountryNotFound  = errors.New("国家不存在")
	ErrCurrencyNotFound = errors.New("币种不存在")
)

// CompanyService 公司设置业务接口
//
// 公司的国别绑定决定薪资引擎取哪个国家的税则；
// 未绑定国别的公司计算时按"无适用规则"处理（净薪=毛薪）。
type CompanyService interface {
	GetCompany(ctx context.Context, companyID string) (*dto.CompanyResponse, error)
	UpdateCompany(ctx context.Context, companyID string, req *dto.UpdateCompanyRequest) (*dto.CompanyResponse, error)
	ListCountries(ctx context.Context) ([]dto.CountryResponse, error)
	ListCurrencies(ctx context.Context) ([]dto.CurrencyResponse, error)
}

type companyService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCompanyService 创建 CompanyService 实例
func NewCompanyService(repo *repository.Repository, logger *zap.Logger) CompanyService {
	return &companyService{repo: repo, logger: logger}
}

func (s *companyService) GetCompany(ctx context.Context, companyID string) (*dto.CompanyResponse, error) {
	company, err := s.repo.Company.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		s.logger.Error("查询公司失败", zap.Error(err))
		return nil, err
	}
	return toCompanyResponse(company), nil
}

func (s *companyService) UpdateCompany(ctx context.Context, companyID string, req *dto.UpdateCompanyRequest) (*dto.CompanyResponse, error) {
	company, err := s.repo.Company.GetByID(ctx, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		company.Name = *req.Name
	}
	if req.CountryID != nil {
		if _, err := s.repo.Country.GetByID(ctx, *req.CountryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCountryNotFound
			}
			return nil, err
		}
		company.CountryID = req.CountryID
	}
	if req.CurrencyID != nil {
		if _, err := s.repo.Country.GetCurrencyByID(ctx, *req.CurrencyID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCurrencyNotFound
			}
			return nil, err
		}
		company.CurrencyID = req.CurrencyID
	}

	if err := s.repo.Company.Update(ctx, company); err != nil {
		s.logger.Error("更新公司失败", zap.Error(err))
		return nil, err
	}

	// 重新读取以带出关联的国家/币种
	return s.GetCompany(ctx, companyID)
}

func (s *companyService) ListCountries(ctx context.Context) ([]dto.CountryResponse, error) {
	countries, err := s.repo.Country.ListCountries(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.CountryResponse, 0, len(countries))
	for _, c := range countries {
		resp = append(resp, dto.CountryResponse{
			CountryID: c.CountryID,
			ISOCode:   c.ISOCode,
			Name:      c.Name,
		})
	}
	return resp, nil
}

func (s *companyService) ListCurrencies(ctx context.Context) ([]dto.CurrencyResponse, error) {
	currencies, err := s.repo.Country.ListCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.CurrencyResponse, 0, len(currencies))
	for _, c := range currencies {
		resp = append(resp, dto.CurrencyResponse{
			CurrencyID: c.CurrencyID,
			Code:       c.Code,
			Name:       c.Name,
			Symbol:     c.Symbol,
		})
	}
	return resp, nil
}

// ── 响应转换器 ──

func toCompanyResponse(company *model.Company) *dto.CompanyResponse {
	resp := &dto.CompanyResponse{
		CompanyID: company.CompanyID,
		Name:      company.Name,
	}
	if company.Country != nil {
		resp.CountryID = company.Country.CountryID
		resp.CountryName = company.Country.Name
	}
	if company.Currency != nil {
		resp.CurrencyID = company.Currency.CurrencyID
		resp.CurrencyCode = company.Currency.Code
	}
	return resp
}
