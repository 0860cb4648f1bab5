package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/jobayadurrasid/Smart-Campus/config"
	"github.com/jobayadurrasid/Smart-Campus/internal/repository"
	"github.com/jobayadurrasid/Smart-Campus/pkg/metrics"
)

// Service 所有 Service 的聚合入口
type Service struct {
	GroupSchedule GroupScheduleService
	Query         ScheduleQueryService
	Person        PersonService
	Course        CourseService
	Export        ExportService
	Department    DepartmentService
	Token         TokenService
}

// NewService 创建 Service 聚合；cache 为 nil 时查询直接读库，tokens 为 nil 时不支持吊销
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	cache ScheduleCache,
	tokens TokenStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	query := NewScheduleQueryService(repo, cache, cfg.Schedule.CacheTTL, m, logger)

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		logger.Warn("无效的排课时区，使用 UTC", zap.String("timezone", cfg.Schedule.Timezone), zap.Error(err))
		loc = time.UTC
	}
	calendar := TermCalendar{
		FallStart:   cfg.Schedule.FallStart,
		SpringStart: cfg.Schedule.SpringStart,
		Weeks:       cfg.Schedule.Weeks,
		Location:    loc,
	}

	return &Service{
		GroupSchedule: NewGroupScheduleService(repo, cache, m, logger),
		Query:         query,
		Person:        NewPersonService(repo, logger),
		Course:        NewCourseService(repo, logger),
		Export:        NewExportService(query, calendar, logger),
		Department:    NewDepartmentService(repo, logger),
		Token:         NewTokenService(tokens, logger),
	}
}
