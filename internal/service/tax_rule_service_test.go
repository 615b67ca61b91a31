package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/manziosee/auditshield/internal/dto"
	"github.com/manziosee/auditshield/internal/model"
	"github.com/manziosee/auditshield/internal/payroll"
	"github.com/manziosee/auditshield/internal/repository"
)

// ── 测试辅助 ──

func setupTaxRuleService() (TaxRuleService, *mockTaxRuleRepo) {
	countries := newMockCountryRepo()
	countries.countries["country-cn"] = &model.Country{CountryID: "country-cn", ISOCode: "CN", Name: "中国"}
	taxRules := newMockTaxRuleRepo()

	repo := &repository.Repository{
		Country: countries,
		TaxRule: taxRules,
	}
	return NewTaxRuleService(repo, zap.NewNop()), taxRules
}

func validBracketRequest() *dto.CreateTaxRuleRequest {
	return &dto.CreateTaxRuleRequest{
		CountryID:         "country-cn",
		Name:              "income_tax",
		RuleType:          model.RuleTypeIncomeTax,
		CalcType:          model.CalcTypeBracket,
		Configuration:     []byte(`{"brackets": [{"min": 0, "max": 30000, "rate": 0}, {"min": 30001, "rate": 0.20}]}`),
		AppliesToEmployee: true,
		EffectiveFrom:     "2025-01-01",
	}
}

// ── Create 测试 ──

func TestTaxRuleService_Create_Success(t *testing.T) {
	svc, _ := setupTaxRuleService()

	resp, err := svc.Create(context.Background(), validBracketRequest())
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if !resp.IsActive {
		t.Error("新建税则应为 active")
	}
	if resp.EffectiveFrom != "2025-01-01" {
		t.Errorf("期望 effective_from=2025-01-01，实际=%s", resp.EffectiveFrom)
	}
}

func TestTaxRuleService_Create_BadConfigRejectedAtSave(t *testing.T) {
	svc, rules := setupTaxRuleService()

	// bracket 计算策略配了 percentage 形状的配置，保存时即拒绝
	req := validBracketRequest()
	req.Configuration = []byte(`{"rate": 0.2}`)

	_, err := svc.Create(context.Background(), req)
	if !errors.Is(err, payroll.ErrConfigInvalid) {
		t.Fatalf("期望 ErrConfigInvalid，实际: %v", err)
	}
	if len(rules.rules) != 0 {
		t.Error("坏配置不应入库")
	}
}

func TestTaxRuleService_Create_UnknownCountry(t *testing.T) {
	svc, _ := setupTaxRuleService()

	req := validBracketRequest()
	req.CountryID = "country-missing"

	if _, err := svc.Create(context.Background(), req); !errors.Is(err, ErrCountryNotFound) {
		t.Errorf("期望 ErrCountryNotFound，实际: %v", err)
	}
}

func TestTaxRuleService_Create_EffectiveToBeforeFrom(t *testing.T) {
	svc, _ := setupTaxRuleService()

	req := validBracketRequest()
	to := "2024-12-31"
	req.EffectiveTo = &to

	if _, err := svc.Create(context.Background(), req); !errors.Is(err, ErrTaxRuleDateOrder) {
		t.Errorf("期望 ErrTaxRuleDateOrder，实际: %v", err)
	}
}

// ── Update 测试 ──

func TestTaxRuleService_Update_ConfigRevalidated(t *testing.T) {
	svc, _ := setupTaxRuleService()
	created, err := svc.Create(context.Background(), validBracketRequest())
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	// 新配置必须匹配既有 calc_type
	_, err = svc.Update(context.Background(), created.TaxRuleID, &dto.UpdateTaxRuleRequest{
		Configuration: []byte(`{"amount": 100}`),
	})
	if !errors.Is(err, payroll.ErrConfigInvalid) {
		t.Errorf("形状不匹配的更新应被拒，实际: %v", err)
	}

	// 合法的同形状更新
	updated, err := svc.Update(context.Background(), created.TaxRuleID, &dto.UpdateTaxRuleRequest{
		Configuration: []byte(`{"brackets": [{"min": 0, "max": 50000, "rate": 0.1}, {"min": 50001, "rate": 0.3}]}`),
	})
	if err != nil {
		t.Fatalf("合法更新应成功: %v", err)
	}
	if updated.TaxRuleID != created.TaxRuleID {
		t.Error("更新不应改变主键")
	}
}

// ── Deactivate 测试 ──

func TestTaxRuleService_Deactivate_NeverDeletes(t *testing.T) {
	svc, rules := setupTaxRuleService()
	created, err := svc.Create(context.Background(), validBracketRequest())
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}

	if err := svc.Deactivate(context.Background(), created.TaxRuleID); err != nil {
		t.Fatalf("Deactivate 应成功: %v", err)
	}

	// 停用而非删除：记录仍在，is_active=false
	stored, ok := rules.rules[created.TaxRuleID]
	if !ok {
		t.Fatal("停用后记录应仍然存在")
	}
	if stored.IsActive {
		t.Error("停用后 is_active 应为 false")
	}
}

func TestTaxRuleService_Deactivate_NotFound(t *testing.T) {
	svc, _ := setupTaxRuleService()

	if err := svc.Deactivate(context.Background(), "missing"); !errors.Is(err, ErrTaxRuleNotFound) {
		t.Errorf("期望 ErrTaxRuleNotFound，实际: %v", err)
	}
}
