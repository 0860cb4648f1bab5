package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
	"github.com/jobayadurrasid/Smart-Campus/internal/model"
	"github.com/jobayadurrasid/Smart-Campus/internal/repository"
	"github.com/jobayadurrasid/Smart-Campus/internal/timeslot"
	"github.com/jobayadurrasid/Smart-Campus/pkg/metrics"
)

// GroupScheduleService 班组课表写入业务接口
type GroupScheduleService interface {
	// Reconcile 将班组课表调整为请求中的期望状态，全部成功或全部回滚
	Reconcile(ctx context.Context, req *dto.ReconcileGroupScheduleRequest) (*dto.ReconcileResult, error)
	// DeactivateEntry 停用单条课表条目（保留记录）
	DeactivateEntry(ctx context.Context, id uint) (*dto.ScheduleEntryResponse, error)
}

type groupScheduleService struct {
	repo    *repository.Repository
	cache   ScheduleCache
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewGroupScheduleService 创建 GroupScheduleService 实例，cache / m 可为 nil
func NewGroupScheduleService(repo *repository.Repository, cache ScheduleCache, m *metrics.Metrics, logger *zap.Logger) GroupScheduleService {
	return &groupScheduleService{
		repo:    repo,
		cache:   cache,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// desiredEntry 解析后的期望条目
type desiredEntry struct {
	CourseID string
	Slot     timeslot.Slot
}

// groupRequest 解析后的提交请求
type groupRequest struct {
	GroupCode    string
	Year         string // group_code 前 4 位
	Department   string // group_code 余下部分
	AcademicYear int
	Semester     model.Semester
	Entries      []desiredEntry
}

// ────────────────────── Reconcile ──────────────────────

func (s *groupScheduleService) Reconcile(ctx context.Context, req *dto.ReconcileGroupScheduleRequest) (*dto.ReconcileResult, error) {
	parsed, err := parseGroupRequest(req)
	if err != nil {
		s.metrics.Reconcile("rejected")
		return nil, err
	}

	var result *dto.ReconcileResult
	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		// 事务重放时从零开始统计
		r, err := s.reconcileInTx(ctx, txRepo, parsed)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, s.reconcileFailed(parsed, err)
	}

	s.invalidateGroup(ctx, parsed.GroupCode)
	s.metrics.Reconcile("ok")
	s.metrics.EntriesApplied(result.Inserted, result.Updated)
	s.logger.Info("班组课表已更新",
		zap.String("group_code", parsed.GroupCode),
		zap.Int("academic_year", parsed.AcademicYear),
		zap.String("semester", string(parsed.Semester)),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Strings("skipped_courses", result.SkippedCourses),
	)
	return result, nil
}

func (s *groupScheduleService) reconcileInTx(ctx context.Context, txRepo *repository.Repository, req *groupRequest) (*dto.ReconcileResult, error) {
	// 1. 班组成员
	students, err := txRepo.Person.ListStudentsByGroup(ctx, req.Year, req.Department)
	if err != nil {
		return nil, persistence("list group students", err)
	}
	if len(students) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyGroup, req.GroupCode)
	}

	// 2. 全员共同选修的课程
	studentIDs := make([]string, len(students))
	for i := range students {
		studentIDs[i] = students[i].PersonID
	}
	enrolled, err := txRepo.Enrollment.CourseIDsByStudents(ctx, studentIDs)
	if err != nil {
		return nil, persistence("load enrollments", err)
	}
	common := intersectCourses(studentIDs, enrolled)

	entries, skipped := filterEntries(req.Entries, common)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCommonCourses, req.GroupCode)
	}

	// 3. 解析授课教师，并按固定顺序锁定涉及的教师时段窗口
	teachers := make(map[string]string, len(entries))
	lockKeys := make(map[string]struct{})
	for _, e := range entries {
		if _, ok := teachers[e.CourseID]; ok {
			continue
		}
		course, err := txRepo.Course.GetByID(ctx, e.CourseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrUnassignedTeacher, e.CourseID)
			}
			return nil, persistence("get course", err)
		}
		if course.TeacherID == nil || *course.TeacherID == "" {
			return nil, fmt.Errorf("%w: %s", ErrUnassignedTeacher, e.CourseID)
		}
		teachers[e.CourseID] = *course.TeacherID
	}
	for _, e := range entries {
		lockKeys[teacherWindowLockKey(teachers[e.CourseID], req.AcademicYear, req.Semester, e.Slot.Day)] = struct{}{}
	}
	if err := lockAll(ctx, txRepo, lockKeys); err != nil {
		return nil, err
	}

	// 4. 逐条检测冲突并写入；任何一条失败整批回滚
	result := &dto.ReconcileResult{
		Message:        "Group schedule updated successfully",
		GroupCode:      req.GroupCode,
		SkippedCourses: skipped,
	}
	for _, e := range entries {
		teacherID := teachers[e.CourseID]

		existing, err := txRepo.ScheduleEntry.FindByGroupKey(ctx, repository.GroupEntryKey{
			CourseID:     e.CourseID,
			AcademicYear: req.AcademicYear,
			Semester:     req.Semester,
			Day:          e.Slot.Day,
			GroupCode:    req.GroupCode,
		})
		if err != nil {
			return nil, persistence("find schedule entry", err)
		}

		q := ConflictQuery{
			TeacherID:    teacherID,
			AcademicYear: req.AcademicYear,
			Semester:     req.Semester,
			Slot:         e.Slot,
		}
		if existing != nil {
			q.ExcludeID = &existing.ScheduleEntryID
		}
		blocking, err := FindTeacherConflict(ctx, txRepo.ScheduleEntry, q)
		if err != nil {
			return nil, err
		}
		if blocking != nil {
			return nil, &TeacherConflictError{TeacherID: teacherID, Entry: *blocking}
		}

		if existing != nil {
			if err := txRepo.ScheduleEntry.UpdateTimes(ctx, existing.ScheduleEntryID, e.Slot.Start, e.Slot.End); err != nil {
				return nil, persistence("update schedule entry", err)
			}
			result.Updated++
			continue
		}

		groupCode := req.GroupCode
		entry := &model.ScheduleEntry{
			CourseID:     e.CourseID,
			AcademicYear: req.AcademicYear,
			Semester:     req.Semester,
			DayOfWeek:    e.Slot.Day,
			StartTime:    e.Slot.Start,
			EndTime:      e.Slot.End,
			IsActive:     true,
			GroupCode:    &groupCode,
		}
		if err := txRepo.ScheduleEntry.Create(ctx, entry); err != nil {
			return nil, persistence("create schedule entry", err)
		}
		result.Inserted++
	}
	result.Applied = result.Inserted + result.Updated
	return result, nil
}

// reconcileFailed 记录失败原因并统一错误类型
func (s *groupScheduleService) reconcileFailed(req *groupRequest, err error) error {
	fields := []zap.Field{
		zap.String("group_code", req.GroupCode),
		zap.Int("academic_year", req.AcademicYear),
		zap.String("semester", string(req.Semester)),
	}
	var conflict *TeacherConflictError
	switch {
	case errors.As(err, &conflict):
		s.metrics.TeacherConflict()
		s.metrics.Reconcile("conflict")
		s.logger.Info("班组课表与教师既有课程冲突，已回滚",
			append(fields, zap.String("teacher_id", conflict.TeacherID), zap.Uint("blocking_entry", conflict.Entry.ScheduleEntryID))...)
		return err
	case errors.Is(err, ErrEmptyGroup), errors.Is(err, ErrNoCommonCourses),
		errors.Is(err, ErrUnassignedTeacher), errors.Is(err, ErrInvalidRequest):
		s.metrics.Reconcile("rejected")
		s.logger.Info("班组课表提交被拒绝", append(fields, zap.Error(err))...)
		return err
	case errors.Is(err, ErrPersistence):
		s.metrics.Reconcile("error")
		s.logger.Error("班组课表写入失败，已回滚", append(fields, zap.Error(err))...)
		return err
	default:
		s.metrics.Reconcile("error")
		s.logger.Error("班组课表事务失败，已回滚", append(fields, zap.Error(err))...)
		return persistence("commit group schedule", err)
	}
}

// ────────────────────── DeactivateEntry ──────────────────────

func (s *groupScheduleService) DeactivateEntry(ctx context.Context, id uint) (*dto.ScheduleEntryResponse, error) {
	var entry *model.ScheduleEntry
	err := s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		e, err := txRepo.ScheduleEntry.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEntryNotFound
			}
			return persistence("get schedule entry", err)
		}
		now := s.now()
		ok, err := txRepo.ScheduleEntry.Deactivate(ctx, id, now)
		if err != nil {
			return persistence("deactivate schedule entry", err)
		}
		if !ok {
			return ErrEntryNotFound
		}
		e.IsActive = false
		e.DeactivatedAt = &now
		entry = e
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrEntryNotFound) {
			s.logger.Error("停用课表条目失败", zap.Uint("id", id), zap.Error(err))
			if !errors.Is(err, ErrPersistence) {
				err = persistence("deactivate schedule entry", err)
			}
		}
		return nil, err
	}

	if entry.GroupCode != nil {
		s.invalidateGroup(ctx, *entry.GroupCode)
	}
	s.logger.Info("课表条目已停用", zap.Uint("id", id), zap.String("course_id", entry.CourseID))
	resp := toScheduleEntryResponse(entry)
	return &resp, nil
}

// invalidateGroup 写入成功后清除班组读缓存，失败只记录日志
func (s *groupScheduleService) invalidateGroup(ctx context.Context, groupCode string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateGroupSchedule(ctx, groupCode); err != nil {
		s.logger.Warn("清除班组课表缓存失败", zap.String("group_code", groupCode), zap.Error(err))
	}
}

// ── 辅助函数 ──

// parseGroupRequest 校验并解析提交请求
func parseGroupRequest(req *dto.ReconcileGroupScheduleRequest) (*groupRequest, error) {
	if req == nil {
		return nil, invalidf("request body is required")
	}
	code := strings.TrimSpace(req.GroupCode)
	if code == "" {
		return nil, invalidf("group_code is required")
	}
	if len(code) < 5 {
		return nil, invalidf("group_code %q must be a 4-digit year followed by a department code", code)
	}
	for _, r := range code[:4] {
		if r < '0' || r > '9' {
			return nil, invalidf("group_code %q must start with a 4-digit year", code)
		}
	}
	sem, err := model.ParseSemester(req.Semester)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	if req.AcademicYear < 1000 || req.AcademicYear > 9999 {
		return nil, invalidf("academic_year must have 4 digits, got %d", req.AcademicYear)
	}

	out := &groupRequest{
		GroupCode:    code,
		Year:         code[:4],
		Department:   code[4:],
		AcademicYear: req.AcademicYear,
		Semester:     sem,
		Entries:      make([]desiredEntry, 0, len(req.Entries)),
	}
	for i, in := range req.Entries {
		if strings.TrimSpace(in.CourseID) == "" {
			return nil, invalidf("entries[%d]: course_id is required", i)
		}
		if in.DayOfWeek == nil {
			return nil, invalidf("entries[%d]: day_of_week is required", i)
		}
		start, err := timeslot.ParseClock(in.StartTime)
		if err != nil {
			return nil, invalidf("entries[%d]: start_time: %v", i, err)
		}
		end, err := timeslot.ParseClock(in.EndTime)
		if err != nil {
			return nil, invalidf("entries[%d]: end_time: %v", i, err)
		}
		slot := timeslot.Slot{Day: timeslot.Weekday(*in.DayOfWeek), Start: start, End: end}
		if err := slot.Validate(); err != nil {
			return nil, invalidf("entries[%d]: %v", i, err)
		}
		out.Entries = append(out.Entries, desiredEntry{CourseID: in.CourseID, Slot: slot})
	}
	return out, nil
}

// intersectCourses 求所有学生选课集合的交集；任一学生无选课则结果为空
func intersectCourses(studentIDs []string, enrolled map[string][]string) map[string]struct{} {
	if len(studentIDs) == 0 {
		return map[string]struct{}{}
	}
	common := make(map[string]struct{})
	for _, c := range enrolled[studentIDs[0]] {
		common[c] = struct{}{}
	}
	for _, id := range studentIDs[1:] {
		if len(common) == 0 {
			break
		}
		own := make(map[string]struct{}, len(enrolled[id]))
		for _, c := range enrolled[id] {
			own[c] = struct{}{}
		}
		for c := range common {
			if _, ok := own[c]; !ok {
				delete(common, c)
			}
		}
	}
	return common
}

// filterEntries 保留共同课程的条目（保持提交顺序），返回被跳过的课程编号
func filterEntries(entries []desiredEntry, common map[string]struct{}) ([]desiredEntry, []string) {
	kept := make([]desiredEntry, 0, len(entries))
	skipped := []string{}
	seen := make(map[string]bool)
	for _, e := range entries {
		if _, ok := common[e.CourseID]; ok {
			kept = append(kept, e)
			continue
		}
		if !seen[e.CourseID] {
			seen[e.CourseID] = true
			skipped = append(skipped, e.CourseID)
		}
	}
	return kept, skipped
}

func teacherWindowLockKey(teacherID string, year int, sem model.Semester, day timeslot.Weekday) string {
	return fmt.Sprintf("teacher-window:%s:%d:%s:%d", teacherID, year, sem, day)
}

// lockAll 按字典序加锁，避免并发提交交叉等待
func lockAll(ctx context.Context, txRepo *repository.Repository, keys map[string]struct{}) error {
	if txRepo.Locker == nil {
		return nil
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	for _, k := range sorted {
		if err := txRepo.Locker.Lock(ctx, k); err != nil {
			return persistence("acquire lock "+k, err)
		}
	}
	return nil
}
