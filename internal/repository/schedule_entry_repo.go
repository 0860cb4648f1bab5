package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jobayadurrasid/Smart-Campus/internal/model"
	"github.com/jobayadurrasid/Smart-Campus/internal/timeslot"
)

// GroupEntryKey 班组课表条目的定位键
type GroupEntryKey struct {
	CourseID     string
	AcademicYear int
	Semester     model.Semester
	Day          timeslot.Weekday
	GroupCode    string
}

// ScheduleEntryRepository 课表条目数据访问接口
type ScheduleEntryRepository interface {
	Create(ctx context.Context, entry *model.ScheduleEntry) error
	GetByID(ctx context.Context, id uint) (*model.ScheduleEntry, error)
	// FindByGroupKey 加行锁读取（FOR UPDATE），不存在时返回 (nil, nil)
	FindByGroupKey(ctx context.Context, key GroupEntryKey) (*model.ScheduleEntry, error)
	// UpdateTimes 原地改写起止时间并重新激活
	UpdateTimes(ctx context.Context, id uint, start, end timeslot.Clock) error
	// Deactivate 停用条目（保留行），返回是否命中
	Deactivate(ctx context.Context, id uint, at time.Time) (bool, error)
	// ListTeacherDay 教师在某学年学期某天的所有启用条目
	ListTeacherDay(ctx context.Context, teacherID string, year int, semester model.Semester, day timeslot.Weekday) ([]model.ScheduleEntry, error)
	ListByTeacher(ctx context.Context, teacherID string, year int, semester model.Semester) ([]model.ScheduleEntry, error)
	ListByGroup(ctx context.Context, groupCode string, year int, semester model.Semester) ([]model.ScheduleEntry, error)
}

type scheduleEntryRepo struct {
	db *gorm.DB
}

// NewScheduleEntryRepo 创建 ScheduleEntryRepository 实例
func NewScheduleEntryRepo(db *gorm.DB) ScheduleEntryRepository {
	return &scheduleEntryRepo{db: db}
}

func (r *scheduleEntryRepo) Create(ctx context.Context, entry *model.ScheduleEntry) error {
	entry.IsActive = true
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *scheduleEntryRepo) GetByID(ctx context.Context, id uint) (*model.ScheduleEntry, error) {
	var entry model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("id = ?", id).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *scheduleEntryRepo) FindByGroupKey(ctx context.Context, key GroupEntryKey) (*model.ScheduleEntry, error) {
	var entry model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("course_id = ? AND academic_year = ? AND semester = ? AND day_of_week = ? AND group_code = ?",
			key.CourseID, key.AcademicYear, key.Semester, key.Day, key.GroupCode).
		Order("id ASC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *scheduleEntryRepo) UpdateTimes(ctx context.Context, id uint, start, end timeslot.Clock) error {
	return r.db.WithContext(ctx).
		Model(&model.ScheduleEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"start_time":     start,
			"end_time":       end,
			"is_active":      true,
			"deactivated_at": nil,
			"updated_at":     gorm.Expr("NOW()"),
		}).Error
}

func (r *scheduleEntryRepo) Deactivate(ctx context.Context, id uint, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.ScheduleEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":      false,
			"deactivated_at": at,
			"updated_at":     at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *scheduleEntryRepo) ListTeacherDay(ctx context.Context, teacherID string, year int, semester model.Semester, day timeslot.Weekday) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Joins("JOIN courses ON courses.course_id = schedule_entries.course_id").
		Where("courses.teacher_id = ?", teacherID).
		Where("schedule_entries.academic_year = ? AND schedule_entries.semester = ? AND schedule_entries.day_of_week = ?", year, semester, day).
		Where("schedule_entries.is_active = ?", true).
		Order("schedule_entries.start_time ASC").
		Find(&entries).Error
	return entries, err
}

func (r *scheduleEntryRepo) ListByTeacher(ctx context.Context, teacherID string, year int, semester model.Semester) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Preload("Course").
		Joins("JOIN courses ON courses.course_id = schedule_entries.course_id").
		Where("courses.teacher_id = ?", teacherID).
		Where("schedule_entries.academic_year = ? AND schedule_entries.semester = ?", year, semester).
		Order("schedule_entries.day_of_week ASC, schedule_entries.start_time ASC").
		Find(&entries).Error
	return entries, err
}

func (r *scheduleEntryRepo) ListByGroup(ctx context.Context, groupCode string, year int, semester model.Semester) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	err := r.db.WithContext(ctx).
		Preload("Course").
		Where("group_code = ? AND academic_year = ? AND semester = ?", groupCode, year, semester).
		Order("day_of_week ASC, start_time ASC").
		Find(&entries).Error
	return entries, err
}
