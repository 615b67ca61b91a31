package model

// Company 租户公司表 — 对应 companies
type Company struct {
	CompanyID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"company_id"`
	Name       string    `gorm:"type:varchar(200);not null" json:"name"`
	CountryID  *string   `gorm:"type:uuid"                  json:"country_id,omitempty"`
	CurrencyID *string   `gorm:"type:uuid"                  json:"currency_id,omitempty"`
	Country    *Country  `gorm:"foreignKey:CountryID"       json:"country,omitempty"`
	Currency   *Currency `gorm:"foreignKey:CurrencyID"      json:"currency,omitempty"`
	BaseModel
}

// TableName 指定表名
func (Company) TableName() string { return "companies" }

// User 平台用户表 — 对应 users
type User struct {
	UserID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	CompanyID    *string `gorm:"type:uuid"                   json:"company_id,omitempty"`
	Email        string  `gorm:"type:varchar(255);not null;unique" json:"email"`
	PasswordHash string  `gorm:"type:varchar(255);not null"  json:"-"`
	FullName     string  `gorm:"type:varchar(200);not null;default:''" json:"full_name"`
	Role         string  `gorm:"type:varchar(20);not null;default:'employee'" json:"role"` // admin | hr | employee
	IsActive     bool    `gorm:"not null;default:true"       json:"is_active"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }
