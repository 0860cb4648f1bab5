package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
	"github.com/jobayadurrasid/Smart-Campus/internal/model"
	"github.com/jobayadurrasid/Smart-Campus/internal/repository"
	"github.com/jobayadurrasid/Smart-Campus/pkg/metrics"
	"github.com/jobayadurrasid/Smart-Campus/pkg/redis"
)

// ScheduleCache 班组课表读缓存，未命中时返回 redis.ErrCacheMiss
// 回填前须先取版本号；失效会推进版本，旧版本的写入返回 redis.ErrStaleVersion
type ScheduleCache interface {
	GetGroupSchedule(ctx context.Context, groupCode, term string) ([]byte, error)
	GroupScheduleVersion(ctx context.Context, groupCode string) (int64, error)
	SetGroupSchedule(ctx context.Context, groupCode, term string, version int64, data []byte, ttl time.Duration) error
	InvalidateGroupSchedule(ctx context.Context, groupCode string) error
}

// ScheduleQueryService 课表查询业务接口
// 结果按 (day_of_week, start_time) 升序，包含已停用条目（is_active=false）
type ScheduleQueryService interface {
	ForTeacher(ctx context.Context, teacherID string, year int, semester string) ([]dto.ScheduleEntryResponse, error)
	// ForStudent 编号未知时返回空列表
	ForStudent(ctx context.Context, studentID string, year int, semester string) ([]dto.ScheduleEntryResponse, error)
	ForGroup(ctx context.Context, groupCode string, year int, semester string) ([]dto.ScheduleEntryResponse, error)
}

type scheduleQueryService struct {
	repo     *repository.Repository
	cache    ScheduleCache
	cacheTTL time.Duration
	group    singleflight.Group
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewScheduleQueryService 创建 ScheduleQueryService 实例，cache 为 nil 时直接读库
func NewScheduleQueryService(repo *repository.Repository, cache ScheduleCache, cacheTTL time.Duration, m *metrics.Metrics, logger *zap.Logger) ScheduleQueryService {
	return &scheduleQueryService{
		repo:     repo,
		cache:    cache,
		cacheTTL: cacheTTL,
		metrics:  m,
		logger:   logger,
	}
}

func (s *scheduleQueryService) ForTeacher(ctx context.Context, teacherID string, year int, semester string) ([]dto.ScheduleEntryResponse, error) {
	sem, err := model.ParseSemester(semester)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	entries, err := s.repo.ScheduleEntry.ListByTeacher(ctx, teacherID, year, sem)
	if err != nil {
		s.logger.Error("查询教师课表失败", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, persistence("list teacher schedule", err)
	}
	return toScheduleEntryResponses(entries), nil
}

func (s *scheduleQueryService) ForStudent(ctx context.Context, studentID string, year int, semester string) ([]dto.ScheduleEntryResponse, error) {
	sem, err := model.ParseSemester(semester)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	person, err := s.repo.Person.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []dto.ScheduleEntryResponse{}, nil
		}
		s.logger.Error("查询学生失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, persistence("get student", err)
	}
	groupCode := person.GroupCode()
	if groupCode == "" {
		return []dto.ScheduleEntryResponse{}, nil
	}
	return s.forGroup(ctx, groupCode, year, sem)
}

func (s *scheduleQueryService) ForGroup(ctx context.Context, groupCode string, year int, semester string) ([]dto.ScheduleEntryResponse, error) {
	sem, err := model.ParseSemester(semester)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	groupCode = strings.TrimSpace(groupCode)
	if groupCode == "" {
		return nil, invalidf("group_code is required")
	}
	return s.forGroup(ctx, groupCode, year, sem)
}

// forGroup 先读缓存，未命中时合并并发回源
func (s *scheduleQueryService) forGroup(ctx context.Context, groupCode string, year int, sem model.Semester) ([]dto.ScheduleEntryResponse, error) {
	term := fmt.Sprintf("%d:%s", year, sem)

	if s.cache != nil {
		data, err := s.cache.GetGroupSchedule(ctx, groupCode, term)
		switch {
		case err == nil:
			var cached []dto.ScheduleEntryResponse
			if jsonErr := json.Unmarshal(data, &cached); jsonErr == nil {
				s.metrics.CacheLookup("hit")
				return cached, nil
			}
			s.metrics.CacheLookup("error")
		case errors.Is(err, redis.ErrCacheMiss):
			s.metrics.CacheLookup("miss")
		default:
			s.metrics.CacheLookup("error")
			s.logger.Warn("读取班组课表缓存失败，降级查库", zap.String("group_code", groupCode), zap.Error(err))
		}
	}

	v, err, _ := s.group.Do(groupCode+"|"+term, func() (interface{}, error) {
		// 版本号必须在查库之前读取
		version, cacheable := s.cacheVersion(ctx, groupCode)
		entries, err := s.repo.ScheduleEntry.ListByGroup(ctx, groupCode, year, sem)
		if err != nil {
			return nil, err
		}
		resp := toScheduleEntryResponses(entries)
		if cacheable {
			s.fillCache(ctx, groupCode, term, version, resp)
		}
		return resp, nil
	})
	if err != nil {
		s.logger.Error("查询班组课表失败", zap.String("group_code", groupCode), zap.Error(err))
		return nil, persistence("list group schedule", err)
	}
	return v.([]dto.ScheduleEntryResponse), nil
}

// cacheVersion 取回填所需的版本号，取不到时本次不回填
func (s *scheduleQueryService) cacheVersion(ctx context.Context, groupCode string) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}
	version, err := s.cache.GroupScheduleVersion(ctx, groupCode)
	if err != nil {
		s.logger.Warn("读取班组缓存版本失败，跳过回填", zap.String("group_code", groupCode), zap.Error(err))
		return 0, false
	}
	return version, true
}

func (s *scheduleQueryService) fillCache(ctx context.Context, groupCode, term string, version int64, resp []dto.ScheduleEntryResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	err = s.cache.SetGroupSchedule(ctx, groupCode, term, version, data, s.cacheTTL)
	switch {
	case err == nil:
	case errors.Is(err, redis.ErrStaleVersion):
		s.metrics.CacheLookup("stale")
		s.logger.Debug("回填期间班组课表已变更，放弃写入缓存", zap.String("group_code", groupCode))
	default:
		s.logger.Warn("写入班组课表缓存失败", zap.String("group_code", groupCode), zap.Error(err))
	}
}

// ── 转换 ──

func toScheduleEntryResponse(e *model.ScheduleEntry) dto.ScheduleEntryResponse {
	resp := dto.ScheduleEntryResponse{
		ID:           e.ScheduleEntryID,
		CourseID:     e.CourseID,
		AcademicYear: e.AcademicYear,
		Semester:     string(e.Semester),
		DayOfWeek:    int(e.DayOfWeek),
		DayName:      e.DayOfWeek.String(),
		StartTime:    e.StartTime.String(),
		EndTime:      e.EndTime.String(),
		IsActive:     e.IsActive,
		GroupCode:    e.GroupCode,
	}
	if e.Course != nil {
		resp.CourseName = e.Course.Name
		resp.TeacherID = e.Course.TeacherID
	}
	return resp
}

func toScheduleEntryResponses(entries []model.ScheduleEntry) []dto.ScheduleEntryResponse {
	out := make([]dto.ScheduleEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toScheduleEntryResponse(&entries[i]))
	}
	return out
}
