package dto

import "encoding/json"

// CreateTaxRuleRequest 创建税则请求（平台管理端）
// configuration 形状必须与 calc_type 匹配，服务层解析校验后入库
type CreateTaxRuleRequest struct {
	CountryID         string          `json:"country_id"          binding:"required,uuid"`
	Name              string          `json:"name"                binding:"required,max=100"`
	RuleType          string          `json:"rule_type"           binding:"required,oneof=income_tax social_security pension health_insurance payroll_levy other"`
	CalcType          string          `json:"calc_type"           binding:"required,oneof=percentage bracket fixed"`
	Configuration     json.RawMessage `json:"configuration"       binding:"required"`
	AppliesToEmployee bool            `json:"applies_to_employee"`
	AppliesToEmployer bool            `json:"applies_to_employer"`
	EffectiveFrom     string          `json:"effective_from"      binding:"required"` // YYYY-MM-DD
	EffectiveTo       *string         `json:"effective_to,omitempty"`                 // YYYY-MM-DD，空为开放
}

// UpdateTaxRuleRequest 更新税则请求（仅更新非空字段）
type UpdateTaxRuleRequest struct {
	Name              *string         `json:"name,omitempty"`
	Configuration     json.RawMessage `json:"configuration,omitempty"`
	AppliesToEmployee *bool           `json:"applies_to_employee,omitempty"`
	AppliesToEmployer *bool           `json:"applies_to_employer,omitempty"`
	EffectiveTo       *string         `json:"effective_to,omitempty"`
}

// TaxRuleResponse 税则响应
type TaxRuleResponse struct {
	TaxRuleID         string          `json:"tax_rule_id"`
	CountryID         string          `json:"country_id"`
	Name              string          `json:"name"`
	RuleType          string          `json:"rule_type"`
	CalcType          string          `json:"calc_type"`
	Configuration     json.RawMessage `json:"configuration"`
	AppliesToEmployee bool            `json:"applies_to_employee"`
	AppliesToEmployer bool            `json:"applies_to_employer"`
	EffectiveFrom     string          `json:"effective_from"`
	EffectiveTo       *string         `json:"effective_to,omitempty"`
	IsActive          bool            `json:"is_active"`
}
