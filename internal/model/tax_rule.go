package model

import "time"

// ── 规则类别（仅作展示分类，不影响计算）──

const (
	RuleTypeIncomeTax       = "income_tax"
	RuleTypeSocialSecurity  = "social_security"
	RuleTypePension         = "pension"
	RuleTypeHealthInsurance = "health_insurance"
	RuleTypePayrollLevy     = "payroll_levy"
	RuleTypeOther           = "other"
)

// ── 计算策略 ──

const (
	CalcTypePercentage = "percentage" // 统一比例
	CalcTypeBracket    = "bracket"    // 累进分档
	CalcTypeFixed      = "fixed"      // 固定金额
)

// TaxRule 税则表 — 对应 payroll_tax_rules
//
// 按国别配置的扣缴/缴费规则，带生效时间窗。平台级维护：
// 只停用、只被新生效窗口取代，从不删除，保证历史运行可复现。
// configuration 的形状必须与 calc_type 匹配，入库前经 payroll.ParseConfig 校验。
type TaxRule struct {
	TaxRuleID         string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"tax_rule_id"`
	CountryID         string     `gorm:"type:uuid;not null;index"   json:"country_id"`
	Name              string     `gorm:"type:varchar(100);not null" json:"name"`
	RuleType          string     `gorm:"type:varchar(30);not null"  json:"rule_type"`
	CalcType          string     `gorm:"type:varchar(20);not null"  json:"calc_type"`
	Configuration     JSONB      `gorm:"type:jsonb;not null;default:'{}'" json:"configuration"`
	AppliesToEmployee bool       `gorm:"not null;default:true"      json:"applies_to_employee"`
	AppliesToEmployer bool       `gorm:"not null;default:false"     json:"applies_to_employer"`
	EffectiveFrom     time.Time  `gorm:"type:date;not null"         json:"effective_from"`
	EffectiveTo       *time.Time `gorm:"type:date"                  json:"effective_to,omitempty"`
	IsActive          bool       `gorm:"not null;default:true"      json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (TaxRule) TableName() string { return "payroll_tax_rules" }
