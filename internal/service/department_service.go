package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
	"github.com/jobayadurrasid/Smart-Campus/internal/model"
	"github.com/jobayadurrasid/Smart-Campus/internal/repository"
	pkgerrors "github.com/jobayadurrasid/Smart-Campus/pkg/errors"
)

// ErrDepartmentExists 院系码已存在
var ErrDepartmentExists = errors.New("department code already exists")

// 院系码与简称会拼进人员 / 课程编号，只允许大写字母和数字
var (
	deptCodePattern  = regexp.MustCompile(`^[A-Z0-9]{3}$`)
	shortNamePattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)
)

// DepartmentService 院系业务接口
type DepartmentService interface {
	Create(ctx context.Context, req *dto.CreateDepartmentRequest) (*dto.DepartmentResponse, error)
	List(ctx context.Context) ([]dto.DepartmentResponse, error)
}

type departmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewDepartmentService 创建 DepartmentService 实例
func NewDepartmentService(repo *repository.Repository, logger *zap.Logger) DepartmentService {
	return &departmentService{repo: repo, logger: logger}
}

func (s *departmentService) Create(ctx context.Context, req *dto.CreateDepartmentRequest) (*dto.DepartmentResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if !deptCodePattern.MatchString(code) {
		return nil, invalidf("department code must be 3 letters or digits, got %q", code)
	}
	short := strings.ToUpper(strings.TrimSpace(req.ShortName))
	if !shortNamePattern.MatchString(short) {
		return nil, invalidf("short name must be 2-10 letters or digits, got %q", short)
	}
	dept := &model.Department{
		Code:      code,
		Name:      strings.TrimSpace(req.Name),
		ShortName: short,
	}
	if err := s.repo.Department.Create(ctx, dept); err != nil {
		if pkgerrors.IsUniqueViolation(err) {
			return nil, ErrDepartmentExists
		}
		s.logger.Error("创建院系失败", zap.String("code", code), zap.Error(err))
		return nil, persistence("create department", err)
	}
	s.logger.Info("院系已创建", zap.String("code", code))
	return toDepartmentResponse(dept), nil
}

func (s *departmentService) List(ctx context.Context) ([]dto.DepartmentResponse, error) {
	depts, err := s.repo.Department.List(ctx)
	if err != nil {
		s.logger.Error("查询院系列表失败", zap.Error(err))
		return nil, persistence("list departments", err)
	}
	out := make([]dto.DepartmentResponse, 0, len(depts))
	for i := range depts {
		out = append(out, *toDepartmentResponse(&depts[i]))
	}
	return out, nil
}

func toDepartmentResponse(d *model.Department) *dto.DepartmentResponse {
	return &dto.DepartmentResponse{Code: d.Code, Name: d.Name, ShortName: d.ShortName}
}
