package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ── PostgreSQL JSONB 自定义类型 ──

// JSONB 对应 PostgreSQL jsonb 列，保留原始 JSON 字节，实现 GORM Scanner/Valuer 接口。
// 税则 configuration 字段在入库前由 payroll.ParseConfig 校验形状，这里不做解释。
type JSONB json.RawMessage

// Scan 读取数据库 jsonb 值
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
		return nil
	case string:
		*j = JSONB(v)
		return nil
	default:
		return fmt.Errorf("JSONB.Scan: unsupported type %T", src)
	}
}

// Value 写入数据库 jsonb 值
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return "{}", nil
	}
	return string(j), nil
}

// MarshalJSON 保持原始 JSON 输出
func (j JSONB) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON 保持原始 JSON 输入
func (j *JSONB) UnmarshalJSON(data []byte) error {
	*j = append((*j)[0:0], data...)
	return nil
}

// ── 金额映射自定义类型 ──

// DecimalMap 规则名 → 金额 的映射，对应 jsonb 列。
// 金额使用 decimal 序列化，避免二进制浮点在重复运行间产生舍入漂移。
type DecimalMap map[string]decimal.Decimal

// Scan 将数据库 jsonb 解析为 map[string]decimal.Decimal
func (m *DecimalMap) Scan(src interface{}) error {
	if src == nil {
		*m = DecimalMap{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("DecimalMap.Scan: unsupported type %T", src)
	}
	out := make(map[string]decimal.Decimal)
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("DecimalMap.Scan: invalid jsonb: %w", err)
	}
	*m = out
	return nil
}

// Value 将映射序列化为 jsonb
func (m DecimalMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]decimal.Decimal(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// AuditedModel 带操作者记录的审计字段
type AuditedModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy *string   `gorm:"type:uuid"                          json:"created_by,omitempty"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	UpdatedBy *string   `gorm:"type:uuid"                          json:"updated_by,omitempty"`
}
