package payroll

import (
	"errors"
	"testing"
)

func testRuleSet(t *testing.T) []Rule {
	t.Helper()
	return []Rule{
		mustRule(t, "income_tax", "bracket",
			`{"brackets": [{"min": 0, "max": 30000, "rate": 0}, {"min": 30001, "max": 100000, "rate": 0.20}]}`,
			true, false),
		mustRule(t, "social_security", "percentage", `{"rate": 0.03, "employer_rate": 0.05}`, true, true),
		mustRule(t, "pension", "percentage", `{"rate": 0.06}`, true, true),
		mustRule(t, "union_fee", "fixed", `{"amount": 200}`, true, false),
	}
}

func TestCalculate_FullBreakdown(t *testing.T) {
	res, err := Calculate(d("50000"), testRuleSet(t))
	if err != nil {
		t.Fatalf("计算应成功: %v", err)
	}

	// income_tax: 20000×0.20=4000; social_security: 1500; pension: 3000; union_fee: 200
	if !res.EmployeeDeductions["income_tax"].Equal(d("4000")) {
		t.Errorf("income_tax 期望 4000，实际=%s", res.EmployeeDeductions["income_tax"])
	}
	if !res.EmployeeDeductions["social_security"].Equal(d("1500")) {
		t.Errorf("social_security 期望 1500，实际=%s", res.EmployeeDeductions["social_security"])
	}
	if !res.TotalEmployeeDeductions.Equal(d("8700")) {
		t.Errorf("扣缴合计期望 8700，实际=%s", res.TotalEmployeeDeductions)
	}

	// 雇主侧: social_security 50000×0.05=2500; pension 沿用雇员额 3000
	if !res.EmployerContributions["social_security"].Equal(d("2500")) {
		t.Errorf("雇主 social_security 期望 2500，实际=%s", res.EmployerContributions["social_security"])
	}
	if !res.EmployerContributions["pension"].Equal(d("3000")) {
		t.Errorf("雇主 pension 期望 3000，实际=%s", res.EmployerContributions["pension"])
	}
	if !res.TotalEmployerContributions.Equal(d("5500")) {
		t.Errorf("雇主缴费合计期望 5500，实际=%s", res.TotalEmployerContributions)
	}

	// 不变式：net = gross − 雇员扣缴合计；雇主缴费不影响净薪
	if !res.NetSalary.Equal(res.GrossSalary.Sub(res.TotalEmployeeDeductions)) {
		t.Errorf("净薪不变式被破坏: net=%s gross=%s deductions=%s",
			res.NetSalary, res.GrossSalary, res.TotalEmployeeDeductions)
	}
	if !res.NetSalary.Equal(d("41300")) {
		t.Errorf("净薪期望 41300，实际=%s", res.NetSalary)
	}

	// 仅雇员侧规则不应出现在雇主映射中
	if _, ok := res.EmployerContributions["income_tax"]; ok {
		t.Error("income_tax 不适用雇主侧，不应出现在雇主缴费映射中")
	}
}

func TestCalculate_ZeroGross(t *testing.T) {
	res, err := Calculate(d("0"), testRuleSet(t))
	if err != nil {
		t.Fatalf("零毛薪应照常产出结果: %v", err)
	}
	// fixed 规则与毛薪无关，仍会扣 200
	if !res.TotalEmployeeDeductions.Equal(d("200")) {
		t.Errorf("期望扣缴合计 200，实际=%s", res.TotalEmployeeDeductions)
	}
	if !res.NetSalary.Equal(d("-200")) {
		t.Errorf("期望净薪 -200，实际=%s", res.NetSalary)
	}
}

func TestCalculate_EmptyRules(t *testing.T) {
	// 公司无国别绑定 → 零条适用规则 → 净薪 == 毛薪
	res, err := Calculate(d("8000"), nil)
	if err != nil {
		t.Fatalf("空规则集应成功: %v", err)
	}
	if len(res.EmployeeDeductions) != 0 || len(res.EmployerContributions) != 0 {
		t.Error("空规则集应产出空扣缴映射")
	}
	if !res.NetSalary.Equal(d("8000")) {
		t.Errorf("期望净薪 == 毛薪 8000，实际=%s", res.NetSalary)
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	rules := testRuleSet(t)
	first, err := Calculate(d("50000"), rules)
	if err != nil {
		t.Fatalf("计算应成功: %v", err)
	}
	second, err := Calculate(d("50000"), rules)
	if err != nil {
		t.Fatalf("计算应成功: %v", err)
	}
	// 幂等前提：同输入重复计算逐位一致
	if first.NetSalary.String() != second.NetSalary.String() ||
		first.TotalEmployeeDeductions.String() != second.TotalEmployeeDeductions.String() ||
		first.TotalEmployerContributions.String() != second.TotalEmployerContributions.String() {
		t.Errorf("重复计算结果不一致: %+v vs %+v", first, second)
	}
	for name, v := range first.EmployeeDeductions {
		if v.String() != second.EmployeeDeductions[name].String() {
			t.Errorf("规则 %s 重复计算金额不一致: %s vs %s", name, v, second.EmployeeDeductions[name])
		}
	}
}

func TestCalculate_MalformedRuleAborts(t *testing.T) {
	rules := append(testRuleSet(t), Rule{
		Name:              "坏规则",
		CalcType:          "percentage",
		Config:            nil, // 未解析配置
		AppliesToEmployee: true,
	})

	_, err := Calculate(d("50000"), rules)
	if !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("期望 ErrConfigInvalid，实际: %v", err)
	}
}
