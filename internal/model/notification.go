package model

// Notification 站内通知表 — 对应 notifications
// 由服务在状态跃迁成功后显式写入（取代隐式的保存信号副作用）
type Notification struct {
	NotificationID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	CompanyID      string `gorm:"type:uuid;not null;index"    json:"company_id"`
	Kind           string `gorm:"type:varchar(50);not null"   json:"kind"`
	Title          string `gorm:"type:varchar(200);not null"  json:"title"`
	Body           string `gorm:"type:text;not null;default:''" json:"body"`
	IsRead         bool   `gorm:"not null;default:false"      json:"is_read"`
	BaseModel
}

// TableName 指定表名
func (Notification) TableName() string { return "notifications" }
