package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jobayadurrasid/Smart-Campus/config"
	"github.com/jobayadurrasid/Smart-Campus/internal/api/handler"
	"github.com/jobayadurrasid/Smart-Campus/internal/api/middleware"
	"github.com/jobayadurrasid/Smart-Campus/internal/model"
	"github.com/jobayadurrasid/Smart-Campus/pkg/jwt"
	"github.com/jobayadurrasid/Smart-Campus/pkg/metrics"
)

// rateWindow 写接口限流窗口，配合 schedule.rate_limit_per_min
const rateWindow = time.Minute

// Deps 路由依赖；Blacklist / RateStore 为 nil 时分别跳过吊销检查、使用进程内限流
type Deps struct {
	Verifier  *jwt.Verifier
	Blacklist middleware.TokenBlacklist
	RateStore middleware.RateStore
	Metrics   *metrics.Metrics
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, deps Deps, logger *zap.Logger) *gin.Engine {
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 / 指标 ──
	r.GET("/health", h.Health.Health)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	admin := middleware.RoleAuth(model.RoleAdmin)
	writeLimit := middleware.RateLimit(deps.RateStore, cfg.Schedule.RateLimitPerMin, rateWindow, logger)

	// ── API v1（全部需要认证）──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(deps.Verifier, deps.Blacklist, logger))
	{
		// 课表模块
		schedules := v1.Group("/schedules")
		{
			schedules.POST("/group", admin, writeLimit, h.Schedule.ReconcileGroup)
			schedules.PUT("/entries/:id/deactivate", admin, writeLimit, h.Schedule.DeactivateEntry)
			schedules.GET("/group/:group_code", h.Schedule.GetGroupSchedule)
			schedules.GET("/teacher/:teacher_id", middleware.RoleAuth(model.RoleAdmin, model.RoleTeacher), h.Schedule.GetTeacherSchedule)
			schedules.GET("/student/:student_id", h.Schedule.GetStudentSchedule) // 学生仅本人（Handler 层鉴权）
		}

		// 人员模块
		persons := v1.Group("/persons")
		{
			persons.POST("", admin, writeLimit, h.Person.Register)
			persons.GET("/me", h.Person.GetMe)
			persons.GET("/:id", admin, h.Person.GetPerson)
		}

		// 院系模块
		departments := v1.Group("/departments")
		{
			departments.GET("", h.Department.ListDepartments)
			departments.POST("", admin, h.Department.CreateDepartment)
		}

		// 课程与选课模块
		v1.POST("/courses", admin, writeLimit, h.Course.CreateCourse)
		v1.POST("/courses/common", middleware.RoleAuth(model.RoleAdmin, model.RoleTeacher), h.Course.CommonCourses)
		v1.POST("/enrollments", admin, writeLimit, h.Course.Enroll)
		v1.POST("/enrollments/bulk", admin, writeLimit, h.Course.BulkEnroll)

		// 令牌吊销
		v1.POST("/tokens/revoke", admin, writeLimit, h.Token.RevokeToken)

		// 导出模块
		export := v1.Group("/export")
		{
			export.GET("/schedules/group/:file", h.Export.ExportGroupSchedule)
		}
	}

	return r
}
