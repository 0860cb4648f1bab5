package service

import (
	"context"

	"github.com/jobayadurrasid/Smart-Campus/internal/model"
	"github.com/jobayadurrasid/Smart-Campus/internal/repository"
	"github.com/jobayadurrasid/Smart-Campus/internal/timeslot"
)

// ConflictQuery 教师冲突查询条件
type ConflictQuery struct {
	TeacherID    string
	AcademicYear int
	Semester     model.Semester
	Slot         timeslot.Slot
	// ExcludeID 待原地更新的条目自身不参与比较
	ExcludeID *uint
}

// FindTeacherConflict 返回与 q.Slot 重叠的第一条启用条目，无冲突时返回 nil。
// 只扫描该教师同学年、同学期、同一天的条目，停用条目由仓储层过滤。
func FindTeacherConflict(ctx context.Context, repo repository.ScheduleEntryRepository, q ConflictQuery) (*model.ScheduleEntry, error) {
	entries, err := repo.ListTeacherDay(ctx, q.TeacherID, q.AcademicYear, q.Semester, q.Slot.Day)
	if err != nil {
		return nil, persistence("list teacher entries", err)
	}
	for i := range entries {
		e := &entries[i]
		if q.ExcludeID != nil && e.ScheduleEntryID == *q.ExcludeID {
			continue
		}
		if !e.IsActive {
			continue
		}
		if timeslot.Overlaps(e.Slot(), q.Slot) {
			return e, nil
		}
	}
	return nil, nil
}

// HasTeacherConflict 仅判断是否冲突
func HasTeacherConflict(ctx context.Context, repo repository.ScheduleEntryRepository, q ConflictQuery) (bool, error) {
	e, err := FindTeacherConflict(ctx, repo, q)
	return e != nil, err
}
