package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
	"github.com/jobayadurrasid/Smart-Campus/internal/model"
	"github.com/jobayadurrasid/Smart-Campus/internal/repository"
	pkgerrors "github.com/jobayadurrasid/Smart-Campus/pkg/errors"
)

// CourseService 课程与选课业务接口
type CourseService interface {
	CreateCourse(ctx context.Context, req *dto.CreateCourseRequest) (*dto.CourseResponse, error)
	Enroll(ctx context.Context, req *dto.EnrollRequest) (*dto.EnrollmentResponse, error)
	// BulkEnroll 逐个学生选课，单个失败不影响其余学生
	BulkEnroll(ctx context.Context, req *dto.BulkEnrollRequest) (*dto.BulkEnrollResponse, error)
	// CommonCourses 所有给定学生都选修的课程
	CommonCourses(ctx context.Context, studentIDs []string) (*dto.CommonCoursesResponse, error)
}

type courseService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, logger *zap.Logger) CourseService {
	return &courseService{repo: repo, logger: logger}
}

// ────────────────────── CreateCourse ──────────────────────

func (s *courseService) CreateCourse(ctx context.Context, req *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	sem, err := model.ParseSemester(req.Semester)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	deptCode := strings.ToUpper(strings.TrimSpace(req.DepartmentCode))
	name := strings.TrimSpace(req.Name)

	var course *model.Course
	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		dept, err := txRepo.Department.GetByCode(ctx, deptCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDepartmentNotFound
			}
			return persistence("get department", err)
		}

		if req.TeacherID != nil {
			teacher, err := txRepo.Person.GetByID(ctx, *req.TeacherID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrPersonNotFound
				}
				return persistence("get teacher", err)
			}
			if teacher.Role != model.RoleTeacher {
				return ErrNotATeacher
			}
		}

		if txRepo.Locker != nil {
			if err := txRepo.Locker.Lock(ctx, courseIDLockKey(dept.ShortName)); err != nil {
				return persistence("acquire course id lock", err)
			}
		}

		dup, err := txRepo.Course.FindDuplicate(ctx, name, sem, req.TeacherID)
		if err != nil {
			return persistence("find duplicate course", err)
		}
		if dup != nil {
			return ErrDuplicateCourse
		}

		id, err := GenerateCourseID(ctx, txRepo.Course, dept.ShortName)
		if err != nil {
			return err
		}
		c := &model.Course{
			CourseID:       id,
			Name:           name,
			Credits:        req.Credits,
			DepartmentCode: deptCode,
			Semester:       sem,
			TeacherID:      req.TeacherID,
		}
		if err := txRepo.Course.Create(ctx, c); err != nil {
			return persistence("create course", err)
		}
		course = c
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDepartmentNotFound), errors.Is(err, ErrPersonNotFound),
			errors.Is(err, ErrNotATeacher), errors.Is(err, ErrDuplicateCourse),
			errors.Is(err, ErrExhaustedSequence), errors.Is(err, ErrInvalidRequest):
			return nil, err
		}
		s.logger.Error("创建课程失败", zap.String("department", deptCode), zap.Error(err))
		if !errors.Is(err, ErrPersistence) {
			err = persistence("create course", err)
		}
		return nil, err
	}

	s.logger.Info("课程已创建", zap.String("course_id", course.CourseID))
	return toCourseResponse(course), nil
}

// ────────────────────── Enroll ──────────────────────

func (s *courseService) Enroll(ctx context.Context, req *dto.EnrollRequest) (*dto.EnrollmentResponse, error) {
	if err := s.checkCourse(ctx, req.CourseID); err != nil {
		return nil, err
	}
	enrollment, err := s.enrollStudent(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, err
	}
	return &dto.EnrollmentResponse{
		EnrollmentID: enrollment.EnrollmentID,
		StudentID:    enrollment.StudentID,
		CourseID:     enrollment.CourseID,
		EnrolledAt:   enrollment.EnrolledAt.Format(time.RFC3339),
	}, nil
}

// ────────────────────── BulkEnroll ──────────────────────

func (s *courseService) BulkEnroll(ctx context.Context, req *dto.BulkEnrollRequest) (*dto.BulkEnrollResponse, error) {
	ids := dedupe(req.StudentIDs)
	if len(ids) == 0 {
		return nil, invalidf("student_ids must not be empty")
	}
	courseID := strings.TrimSpace(req.CourseID)
	if err := s.checkCourse(ctx, courseID); err != nil {
		return nil, err
	}

	resp := &dto.BulkEnrollResponse{CourseID: courseID, Results: make([]dto.BulkEnrollResult, 0, len(ids))}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result := dto.BulkEnrollResult{StudentID: id}
		enrollment, err := s.enrollStudent(ctx, id, courseID)
		switch {
		case err == nil:
			result.Enrolled = true
			result.EnrollmentID = enrollment.EnrollmentID
			resp.EnrolledCount++
		case errors.Is(err, ErrPersistence):
			// 存储层细节只记日志
			result.Error = ErrPersistence.Error()
			resp.FailedCount++
		default:
			result.Error = err.Error()
			resp.FailedCount++
		}
		resp.Results = append(resp.Results, result)
	}

	s.logger.Info("批量选课完成",
		zap.String("course_id", courseID),
		zap.Int("enrolled", resp.EnrolledCount),
		zap.Int("failed", resp.FailedCount),
	)
	return resp, nil
}

func (s *courseService) checkCourse(ctx context.Context, courseID string) error {
	if _, err := s.repo.Course.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.Error(err))
		return persistence("get course", err)
	}
	return nil
}

// enrollStudent 校验学生身份并写入选课记录，调用方已确认课程存在
func (s *courseService) enrollStudent(ctx context.Context, studentID, courseID string) (*model.Enrollment, error) {
	student, err := s.repo.Person.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		s.logger.Error("查询学生失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, persistence("get student", err)
	}
	if student.Role != model.RoleStudent {
		return nil, ErrNotAStudent
	}

	exists, err := s.repo.Enrollment.Exists(ctx, studentID, courseID)
	if err != nil {
		s.logger.Error("查询选课记录失败", zap.Error(err))
		return nil, persistence("check enrollment", err)
	}
	if exists {
		return nil, ErrAlreadyEnrolled
	}

	enrollment := &model.Enrollment{
		StudentID:  studentID,
		CourseID:   courseID,
		EnrolledAt: time.Now(),
	}
	if err := s.repo.Enrollment.Create(ctx, enrollment); err != nil {
		// 并发重复选课由唯一约束兜底
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrAlreadyEnrolled
		}
		s.logger.Error("创建选课记录失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, persistence("create enrollment", err)
	}
	return enrollment, nil
}

// ────────────────────── CommonCourses ──────────────────────

func (s *courseService) CommonCourses(ctx context.Context, studentIDs []string) (*dto.CommonCoursesResponse, error) {
	ids := dedupe(studentIDs)
	if len(ids) == 0 {
		return nil, invalidf("student_ids must not be empty")
	}
	enrolled, err := s.repo.Enrollment.CourseIDsByStudents(ctx, ids)
	if err != nil {
		s.logger.Error("查询选课记录失败", zap.Error(err))
		return nil, persistence("load enrollments", err)
	}
	common := intersectCourses(ids, enrolled)
	out := make([]string, 0, len(common))
	for c := range common {
		out = append(out, c)
	}
	sort.Strings(out)
	return &dto.CommonCoursesResponse{CourseIDs: out}, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func toCourseResponse(c *model.Course) *dto.CourseResponse {
	return &dto.CourseResponse{
		CourseID:       c.CourseID,
		Name:           c.Name,
		Credits:        c.Credits,
		DepartmentCode: c.DepartmentCode,
		Semester:       string(c.Semester),
		TeacherID:      c.TeacherID,
	}
}
