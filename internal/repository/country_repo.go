package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/manziosee/auditshield/internal/model"
)

// CountryRepository 国家/币种参照数据访问接口
type CountryRepository interface {
	GetByID(ctx context.Context, id string) (*model.Country, error)
	ListCountries(ctx context.Context) ([]model.Country, error)
	ListCurrencies(ctx context.Context) ([]model.Currency, error)
	GetCurrencyByID(ctx context.Context, id string) (*model.Currency, error)
}

type countryRepo struct {
	db *gorm.DB
}

// NewCountryRepo 创建 CountryRepository 实例
func NewCountryRepo(db *gorm.DB) CountryRepository {
	return &countryRepo{db: db}
}

func (r *countryRepo) GetByID(ctx context.Context, id string) (*model.Country, error) {
	var country model.Country
	err := r.db.WithContext(ctx).
		Where("country_id = ?", id).
		First(&country).Error
	if err != nil {
		return nil, err
	}
	return &country, nil
}

func (r *countryRepo) ListCountries(ctx context.Context) ([]model.Country, error) {
	var countries []model.Country
	err := r.db.WithContext(ctx).
		Order("name").
		Find(&countries).Error
	return countries, err
}

func (r *countryRepo) ListCurrencies(ctx context.Context) ([]model.Currency, error) {
	var currencies []model.Currency
	err := r.db.WithContext(ctx).
		Order("code").
		Find(&currencies).Error
	return currencies, err
}

func (r *countryRepo) GetCurrencyByID(ctx context.Context, id string) (*model.Currency, error) {
	var currency model.Currency
	err := r.db.WithContext(ctx).
		Where("currency_id = ?", id).
		First(&currency).Error
	if err != nil {
		return nil, err
	}
	return &currency, nil
}
