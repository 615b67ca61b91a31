package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/manziosee/auditshield/internal/model"
)

// TaxRuleRepository 税则数据访问接口
// 引擎侧只读；写入仅限平台管理端（创建/编辑/停用，从不删除）
type TaxRuleRepository interface {
	Create(ctx context.Context, rule *model.TaxRule) error
	GetByID(ctx context.Context, id string) (*model.TaxRule, error)
	// ListActive 返回指定国家在 asOf 日期生效的税则集合（有序）
	ListActive(ctx context.Context, countryID string, asOf time.Time) ([]model.TaxRule, error)
	ListByCountry(ctx context.Context, countryID string) ([]model.TaxRule, error)
	Update(ctx context.Context, rule *model.TaxRule) error
	Deactivate(ctx context.Context, id string) error
}

type taxRuleRepo struct {
	db *gorm.DB
}

// NewTaxRuleRepo 创建 TaxRuleRepository 实例
func NewTaxRuleRepo(db *gorm.DB) TaxRuleRepository {
	return &taxRuleRepo{db: db}
}

func (r *taxRuleRepo) Create(ctx context.Context, rule *model.TaxRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *taxRuleRepo) GetByID(ctx context.Context, id string) (*model.TaxRule, error) {
	var rule model.TaxRule
	err := r.db.WithContext(ctx).
		Where("tax_rule_id = ?", id).
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *taxRuleRepo) ListActive(ctx context.Context, countryID string, asOf time.Time) ([]model.TaxRule, error) {
	var rules []model.TaxRule
	err := r.db.WithContext(ctx).
		Where("country_id = ? AND is_active = ?", countryID, true).
		Where("effective_from <= ?", asOf).
		Where("effective_to IS NULL OR effective_to >= ?", asOf).
		Order("rule_type, name").
		Find(&rules).Error
	return rules, err
}

func (r *taxRuleRepo) ListByCountry(ctx context.Context, countryID string) ([]model.TaxRule, error) {
	var rules []model.TaxRule
	err := r.db.WithContext(ctx).
		Where("country_id = ?", countryID).
		Order("rule_type, name, effective_from").
		Find(&rules).Error
	return rules, err
}

func (r *taxRuleRepo) Update(ctx context.Context, rule *model.TaxRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *taxRuleRepo) Deactivate(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&model.TaxRule{}).
		Where("tax_rule_id = ?", id).
		Update("is_active", false).Error
}
