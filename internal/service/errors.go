package service

import (
	"errors"
	"fmt"

	"github.com/jobayadurrasid/Smart-Campus/internal/model"
)

// ── 排课业务错误 ──
// 文案直接返回给调用方，须给出精确原因

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrEmptyGroup        = errors.New("no students found for group")
	ErrNoCommonCourses   = errors.New("no courses common to every student in the group")
	ErrUnassignedTeacher = errors.New("course has no assigned teacher")
	ErrTeacherConflict   = errors.New("teacher already has a course in this slot")
	ErrExhaustedSequence = errors.New("identifier sequence exhausted (max 999)")
	ErrDuplicateCourse   = errors.New("course with the same name, semester and teacher already exists")
	ErrPersistence       = errors.New("failed to persist changes")

	ErrDepartmentNotFound = errors.New("department not found")
	ErrPersonNotFound     = errors.New("person not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrEntryNotFound      = errors.New("schedule entry not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrAlreadyEnrolled    = errors.New("student already enrolled in this course")
	ErrNotAStudent        = errors.New("person is not a student")
	ErrNotATeacher        = errors.New("person is not a teacher")

	ErrRevocationUnavailable = errors.New("token revocation store is not configured")
)

// TeacherConflictError 教师时段冲突，携带阻塞的既有条目
type TeacherConflictError struct {
	TeacherID string
	Entry     model.ScheduleEntry
}

func (e *TeacherConflictError) Error() string {
	return "Teacher already has course at: " + e.Entry.Slot().String()
}

// Is 使 errors.Is(err, ErrTeacherConflict) 成立
func (e *TeacherConflictError) Is(target error) bool {
	return target == ErrTeacherConflict
}

// invalidf 构造带原因的 ErrInvalidRequest
func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// persistence 包装存储层错误，保留原始错误供事务重试判断
func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
