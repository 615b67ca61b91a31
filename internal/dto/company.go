package dto

// UpdateCompanyRequest 更新公司设置请求（仅更新非空字段）
type UpdateCompanyRequest struct {
	Name       *string `json:"name,omitempty"`
	CountryID  *string `json:"country_id,omitempty"  binding:"omitempty,uuid"`
	CurrencyID *string `json:"currency_id,omitempty" binding:"omitempty,uuid"`
}

// CompanyResponse 公司响应
type CompanyResponse struct {
	CompanyID    string `json:"company_id"`
	Name         string `json:"name"`
	CountryID    string `json:"country_id,omitempty"`
	CountryName  string `json:"country_name,omitempty"`
	CurrencyID   string `json:"currency_id,omitempty"`
	CurrencyCode string `json:"currency_code,omitempty"`
}
