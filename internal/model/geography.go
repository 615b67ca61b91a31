package model

// Country 国家参照表 — 对应 countries
// 平台级数据，决定公司适用的税则集合
type Country struct {
	CountryID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"country_id"`
	ISOCode   string `gorm:"column:iso_code;type:varchar(2);not null;unique" json:"iso_code"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	BaseModel
}

// TableName 指定表名
func (Country) TableName() string { return "countries" }

// Currency 币种参照表 — 对应 currencies
// 仅作计价单位，不做汇率换算
type Currency struct {
	CurrencyID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"currency_id"`
	Code       string `gorm:"type:varchar(3);not null;unique" json:"code"`
	Name       string `gorm:"type:varchar(50);not null"       json:"name"`
	Symbol     string `gorm:"type:varchar(8);not null;default:''" json:"symbol"`
	BaseModel
}

// TableName 指定表名
func (Currency) TableName() string { return "currencies" }
