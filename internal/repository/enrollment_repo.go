package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/jobayadurrasid/Smart-Campus/internal/model"
)

// EnrollmentRepository 选课数据访问接口
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
	// CourseIDsByStudents 批量读取学生的选课集合，未选课的学生不出现在结果中
	CourseIDsByStudents(ctx context.Context, studentIDs []string) (map[string][]string, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepo) Exists(ctx context.Context, studentID, courseID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		Count(&count).Error
	return count > 0, err
}

func (r *enrollmentRepo) CourseIDsByStudents(ctx context.Context, studentIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(studentIDs))
	if len(studentIDs) == 0 {
		return result, nil
	}
	var rows []model.Enrollment
	err := r.db.WithContext(ctx).
		Select("student_id", "course_id").
		Where("student_id IN ?", studentIDs).
		Order("student_id ASC, course_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.StudentID] = append(result[row.StudentID], row.CourseID)
	}
	return result, nil
}
