package dto

// ── 分页 ──

// PaginationRequest 通用分页参数
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage 获取页码（含默认值）
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页数量（含默认值）
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// PageResponse 通用分页响应包装
type PageResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// ── 参照数据响应 ──

// CountryResponse 国家响应
type CountryResponse struct {
	CountryID string `json:"country_id"`
	ISOCode   string `json:"iso_code"`
	Name      string `json:"name"`
}

// CurrencyResponse 币种响应
type CurrencyResponse struct {
	CurrencyID string `json:"currency_id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Symbol     string `json:"symbol"`
}

// NotificationResponse 站内通知响应
type NotificationResponse struct {
	NotificationID string `json:"notification_id"`
	Kind           string `json:"kind"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	IsRead         bool   `json:"is_read"`
	CreatedAt      string `json:"created_at"`
}
