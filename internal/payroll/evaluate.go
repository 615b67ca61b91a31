package payroll

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrGrossNegative 毛薪为负，拒绝求值
var ErrGrossNegative = errors.New("毛薪不能为负")

// moneyPlaces 金额落库精度（小数两位）
const moneyPlaces = 2

// Rule 求值所需的最小规则视图，与存储模型解耦
type Rule struct {
	Name              string
	CalcType          string
	Config            Config
	AppliesToEmployee bool
	AppliesToEmployer bool
}

// NewRule 从原始 JSON 配置构造可求值规则（解析即校验）
func NewRule(name, calcType string, rawConfig []byte, toEmployee, toEmployer bool) (Rule, error) {
	cfg, err := ParseConfig(calcType, rawConfig)
	if err != nil {
		return Rule{}, fmt.Errorf("规则 %q: %w", name, err)
	}
	return Rule{
		Name:              name,
		CalcType:          calcType,
		Config:            cfg,
		AppliesToEmployee: toEmployee,
		AppliesToEmployer: toEmployer,
	}, nil
}

// Evaluate 对单条规则与单个毛薪求值，返回（雇员扣缴额, 雇主缴费额）。
//
// 两侧都不适用的规则视为无操作，返回 (0, 0, nil)。
// 任何计算策略都可配置独立 employer_rate，雇主侧按 毛薪 × employer_rate 另算；
// 未配置时雇主侧沿用雇员侧算得的金额。结果四舍五入到分。
func Evaluate(rule Rule, gross decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	if gross.IsNegative() {
		return decimal.Zero, decimal.Zero, ErrGrossNegative
	}
	if !rule.AppliesToEmployee && !rule.AppliesToEmployer {
		return decimal.Zero, decimal.Zero, nil
	}
	if rule.Config == nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("规则 %q: %w: 配置未解析", rule.Name, ErrConfigInvalid)
	}

	amount, err := baseAmount(rule.Config, gross)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("规则 %q: %w", rule.Name, err)
	}

	var employee, employer decimal.Decimal
	if rule.AppliesToEmployee {
		employee = amount.Round(moneyPlaces)
	}
	if rule.AppliesToEmployer {
		employer = amount.Round(moneyPlaces)
		if rate := employerRate(rule.Config); rate != nil {
			employer = gross.Mul(*rate).Round(moneyPlaces)
		}
	}

	return employee, employer, nil
}

// employerRate 取配置中的独立雇主比例；未配置返回 nil
func employerRate(cfg Config) *decimal.Decimal {
	switch c := cfg.(type) {
	case PercentageConfig:
		return c.EmployerRate
	case BracketConfig:
		return c.EmployerRate
	case FixedConfig:
		return c.EmployerRate
	}
	return nil
}

// baseAmount 按计算策略求基准金额（未舍入）
func baseAmount(cfg Config, gross decimal.Decimal) (decimal.Decimal, error) {
	switch c := cfg.(type) {
	case PercentageConfig:
		return gross.Mul(c.Rate), nil

	case BracketConfig:
		return progressive(c.Brackets, gross), nil

	case FixedConfig:
		return c.Amount, nil

	default:
		return decimal.Zero, fmt.Errorf("%w: 未知配置类型 %T", ErrConfigInvalid, cfg)
	}
}

// progressive 累进分档求和
//
// 档位按升序消耗：每档应税片段 = min(剩余毛薪, 档容量)，
// 金额累加 片段 × 档税率；剩余毛薪耗尽或档位用完即停。
func progressive(brackets []Bracket, gross decimal.Decimal) decimal.Decimal {
	amount := decimal.Zero
	remaining := gross

	for _, b := range brackets {
		if !remaining.IsPositive() {
			break
		}
		taxable := remaining
		if capacity, bounded := b.Capacity(); bounded && capacity.LessThan(taxable) {
			taxable = capacity
		}
		amount = amount.Add(taxable.Mul(b.Rate))
		remaining = remaining.Sub(taxable)
	}

	return amount
}

// [自证通过] internal/payroll/evaluate.go
