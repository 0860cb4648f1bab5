package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jobayadurrasid/Smart-Campus/internal/dto"
	"github.com/jobayadurrasid/Smart-Campus/internal/model"
	"github.com/jobayadurrasid/Smart-Campus/internal/repository"
	pkgerrors "github.com/jobayadurrasid/Smart-Campus/pkg/errors"
)

// PersonService 人员登记业务接口
type PersonService interface {
	// Register 生成人员编号并登记；凭据不在本服务管理
	Register(ctx context.Context, req *dto.CreatePersonRequest) (*dto.PersonResponse, error)
	GetByID(ctx context.Context, id string) (*dto.PersonResponse, error)
}

type personService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPersonService 创建 PersonService 实例
func NewPersonService(repo *repository.Repository, logger *zap.Logger) PersonService {
	return &personService{repo: repo, logger: logger}
}

// ────────────────────── Register ──────────────────────

func (s *personService) Register(ctx context.Context, req *dto.CreatePersonRequest) (*dto.PersonResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	dept := strings.ToUpper(strings.TrimSpace(req.DepartmentCode))

	prefix, err := PersonIDPrefix(req.EnrollmentYear, dept, req.Role)
	if err != nil {
		return nil, err
	}

	var enrolledAt *time.Time
	if req.DateOfEnrollment != "" {
		d, err := time.Parse("2006-01-02", req.DateOfEnrollment)
		if err != nil {
			return nil, invalidf("date_of_enrollment must be YYYY-MM-DD")
		}
		enrolledAt = &d
	}

	var person *model.Person
	err = s.repo.RunInTx(ctx, func(txRepo *repository.Repository) error {
		if _, err := txRepo.Department.GetByCode(ctx, dept); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDepartmentNotFound
			}
			return persistence("get department", err)
		}

		existing, err := txRepo.Person.GetByEmail(ctx, email)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return persistence("get person by email", err)
		}
		if existing != nil {
			return ErrEmailExists
		}

		// 同前缀串行生成
		if txRepo.Locker != nil {
			if err := txRepo.Locker.Lock(ctx, personIDLockKey(prefix)); err != nil {
				return persistence("acquire person id lock", err)
			}
		}
		id, err := GeneratePersonID(ctx, txRepo.Person, req.EnrollmentYear, dept, req.Role)
		if err != nil {
			return err
		}

		p := &model.Person{
			PersonID:         id,
			Email:            email,
			FullName:         strings.TrimSpace(req.FullName),
			Role:             req.Role,
			DepartmentCode:   dept,
			DateOfEnrollment: enrolledAt,
		}
		if err := txRepo.Person.Create(ctx, p); err != nil {
			if pkgerrors.IsUniqueViolation(err) {
				return ErrEmailExists
			}
			return persistence("create person", err)
		}
		person = p
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrDepartmentNotFound), errors.Is(err, ErrEmailExists),
			errors.Is(err, ErrExhaustedSequence), errors.Is(err, ErrInvalidRequest):
			return nil, err
		}
		s.logger.Error("登记人员失败", zap.String("prefix", prefix), zap.Error(err))
		if !errors.Is(err, ErrPersistence) {
			err = persistence("register person", err)
		}
		return nil, err
	}

	s.logger.Info("人员已登记", zap.String("person_id", person.PersonID), zap.String("role", person.Role))
	return toPersonResponse(person), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *personService) GetByID(ctx context.Context, id string) (*dto.PersonResponse, error) {
	person, err := s.repo.Person.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPersonNotFound
		}
		s.logger.Error("查询人员失败", zap.String("id", id), zap.Error(err))
		return nil, persistence("get person", err)
	}
	return toPersonResponse(person), nil
}

func toPersonResponse(p *model.Person) *dto.PersonResponse {
	resp := &dto.PersonResponse{
		PersonID:       p.PersonID,
		Email:          p.Email,
		FullName:       p.FullName,
		Role:           p.Role,
		DepartmentCode: p.DepartmentCode,
	}
	if p.Role == model.RoleStudent {
		resp.GroupCode = p.GroupCode()
	}
	if p.DateOfEnrollment != nil {
		d := p.DateOfEnrollment.Format("2006-01-02")
		resp.DateOfEnrollment = &d
	}
	return resp
}
