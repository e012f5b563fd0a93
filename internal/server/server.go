package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/paybook/internal/access"
	"github.com/smallbiznis/paybook/internal/advance"
	advancedomain "github.com/smallbiznis/paybook/internal/advance/domain"
	"github.com/smallbiznis/paybook/internal/audit"
	auditdomain "github.com/smallbiznis/paybook/internal/audit/domain"
	"github.com/smallbiznis/paybook/internal/auth"
	authdomain "github.com/smallbiznis/paybook/internal/auth/domain"
	"github.com/smallbiznis/paybook/internal/auth/session"
	"github.com/smallbiznis/paybook/internal/config"
	"github.com/smallbiznis/paybook/internal/employee"
	employeedomain "github.com/smallbiznis/paybook/internal/employee/domain"
	obsmiddleware "github.com/smallbiznis/paybook/internal/observability/logger"
	"github.com/smallbiznis/paybook/internal/organization"
	orgdomain "github.com/smallbiznis/paybook/internal/organization/domain"
	"github.com/smallbiznis/paybook/internal/salary"
	salarydomain "github.com/smallbiznis/paybook/internal/salary/domain"
	"github.com/smallbiznis/paybook/internal/subscription"
	subdomain "github.com/smallbiznis/paybook/internal/subscription/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	audit.Module,
	auth.Module,
	organization.Module,
	subscription.Module,
	access.FxModule,
	employee.Module,
	advance.Module,
	salary.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           cfg.Environment != "production",
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	sessions        *session.Manager
	authsvc         authdomain.Service
	accessSvc       access.Service
	auditSvc        auditdomain.Service
	organizationSvc orgdomain.Service
	subscriptionSvc subdomain.Service
	employeeSvc     employeedomain.Service
	advanceSvc      advancedomain.Service
	salarySvc       salarydomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Sessions        *session.Manager
	Authsvc         authdomain.Service
	AccessSvc       access.Service
	AuditSvc        auditdomain.Service
	OrganizationSvc orgdomain.Service
	SubscriptionSvc subdomain.Service
	EmployeeSvc     employeedomain.Service
	AdvanceSvc      advancedomain.Service
	SalarySvc       salarydomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		sessions:        p.Sessions,
		authsvc:         p.Authsvc,
		accessSvc:       p.AccessSvc,
		auditSvc:        p.AuditSvc,
		organizationSvc: p.OrganizationSvc,
		subscriptionSvc: p.SubscriptionSvc,
		employeeSvc:     p.EmployeeSvc,
		advanceSvc:      p.AdvanceSvc,
		salarySvc:       p.SalarySvc,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	authGroup := s.engine.Group("/auth")
	{
		authGroup.POST("/signup", s.Signup)
		authGroup.POST("/login", s.Login)
		authGroup.POST("/logout", s.Logout)
		authGroup.GET("/me", s.AuthRequired(), s.Me)
	}

	api := s.engine.Group("/api", s.AuthRequired(), OrgContext())

	api.GET("/orgs", s.ListOrganizations)
	api.POST("/orgs", s.CreateOrganization)
	api.POST("/access/check", s.CheckAccess)

	api.GET("/org",
		s.requireAccess(access.ModuleOrganization, access.ActionView, ""), s.GetOrganization)

	members := api.Group("/org/members")
	{
		members.GET("",
			s.requireAccess(access.ModuleMember, access.ActionView, ""), s.ListMembers)
		members.POST("",
			s.requireAccess(access.ModuleMember, access.ActionCreate, ""), s.AddMember)
		members.DELETE("/:userId",
			s.requireAccess(access.ModuleMember, access.ActionDelete, ""), s.RemoveMember)
	}

	sub := api.Group("/subscription")
	{
		sub.GET("",
			s.requireAccess(access.ModuleSubscription, access.ActionView, ""), s.GetSubscription)
		sub.POST("/trial",
			s.requireAccess(access.ModuleSubscription, access.ActionUpdate, ""), s.StartTrial)
		sub.PUT("/plan",
			s.requireAccess(access.ModuleSubscription, access.ActionUpdate, ""), s.ChangePlan)
	}

	employees := api.Group("/employees")
	{
		employees.GET("",
			s.requireAccess(access.ModuleEmployee, access.ActionView, ""), s.ListEmployees)
		employees.POST("",
			s.requireAccess(access.ModuleEmployee, access.ActionCreate, ""), s.CreateEmployee)
		employees.GET("/:id",
			s.requireAccess(access.ModuleEmployee, access.ActionView, ""), s.GetEmployee)
		employees.PATCH("/:id",
			s.requireAccess(access.ModuleEmployee, access.ActionUpdate, ""), s.UpdateEmployee)
		employees.DELETE("/:id",
			s.requireAccess(access.ModuleEmployee, access.ActionDelete, ""), s.DeactivateEmployee)
	}

	advances := api.Group("/advances")
	{
		advances.GET("",
			s.requireAccess(access.ModuleAdvance, access.ActionView, access.FeatureAdvances), s.ListAdvances)
		advances.POST("",
			s.requireAccess(access.ModuleAdvance, access.ActionCreate, access.FeatureAdvances), s.CreateAdvance)
		advances.GET("/:id",
			s.requireAccess(access.ModuleAdvance, access.ActionView, access.FeatureAdvances), s.GetAdvance)
		advances.PATCH("/:id",
			s.requireAccess(access.ModuleAdvance, access.ActionUpdate, access.FeatureAdvances), s.EditAdvance)
		advances.DELETE("/:id",
			s.requireAccess(access.ModuleAdvance, access.ActionDelete, access.FeatureAdvances), s.DeleteAdvance)
	}

	salaries := api.Group("/salaries")
	{
		salaries.GET("",
			s.requireAccess(access.ModuleSalary, access.ActionView, access.FeaturePayroll), s.ListSalaries)
		salaries.POST("",
			s.requireAccess(access.ModuleSalary, access.ActionCreate, access.FeaturePayroll), s.GenerateSalary)
		salaries.GET("/:id",
			s.requireAccess(access.ModuleSalary, access.ActionView, access.FeaturePayroll), s.GetSalary)
		salaries.PATCH("/:id",
			s.requireAccess(access.ModuleSalary, access.ActionUpdate, access.FeaturePayroll), s.EditSalary)
		salaries.DELETE("/:id",
			s.requireAccess(access.ModuleSalary, access.ActionDelete, access.FeaturePayroll), s.DeleteSalary)
		salaries.POST("/:id/pay",
			s.requireAccess(access.ModuleSalary, access.ActionPay, access.FeaturePayroll), s.MarkSalaryPaid)
	}

	api.GET("/audit-logs",
		s.requireAccess(access.ModuleAuditLog, access.ActionView, access.FeatureAuditTrail), s.ListAuditLogs)
}
