package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jobayadurrasid/Smart-Campus/internal/model"
)

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id string) (*model.Course, error)
	// MaxIDWithPrefix 返回形如 "<short>-NNN" 的最大课程编号，不存在时返回 ""
	MaxIDWithPrefix(ctx context.Context, short string) (string, error)
	// FindDuplicate 查找同名、同学期、同教师的课程，不存在时返回 (nil, nil)
	FindDuplicate(ctx context.Context, name string, semester model.Semester, teacherID *string) (*model.Course, error)
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	return r.db.WithContext(ctx).Create(course).Error
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("course_id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) MaxIDWithPrefix(ctx context.Context, short string) (string, error) {
	var course model.Course
	// 序号固定 3 位补零，字典序即数值序
	err := r.db.WithContext(ctx).
		Select("course_id").
		Where(`course_id LIKE ? ESCAPE '\'`, likePrefix(short+"-")).
		Order("course_id DESC").
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return course.CourseID, nil
}

func (r *courseRepo) FindDuplicate(ctx context.Context, name string, semester model.Semester, teacherID *string) (*model.Course, error) {
	q := r.db.WithContext(ctx).
		Where("name = ? AND semester = ?", name, semester)
	if teacherID == nil {
		q = q.Where("teacher_id IS NULL")
	} else {
		q = q.Where("teacher_id = ?", *teacherID)
	}
	var course model.Course
	err := q.First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}
