package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/jobayadurrasid/Smart-Campus/internal/model"
)

// PersonRepository 人员数据访问接口
type PersonRepository interface {
	Create(ctx context.Context, person *model.Person) error
	GetByID(ctx context.Context, id string) (*model.Person, error)
	GetByEmail(ctx context.Context, email string) (*model.Person, error)
	// MaxIDWithPrefix 返回以 prefix 开头的最大编号，不存在时返回 ""
	MaxIDWithPrefix(ctx context.Context, prefix string) (string, error)
	// ListStudentsByGroup 返回编号以 year 开头、属于 dept 的全部学生
	ListStudentsByGroup(ctx context.Context, year, dept string) ([]model.Person, error)
}

// personRepo PersonRepository 的 GORM 实现
type personRepo struct {
	db *gorm.DB
}

// NewPersonRepo 创建 PersonRepository 实例
func NewPersonRepo(db *gorm.DB) PersonRepository {
	return &personRepo{db: db}
}

func (r *personRepo) Create(ctx context.Context, person *model.Person) error {
	return r.db.WithContext(ctx).Create(person).Error
}

func (r *personRepo) GetByID(ctx context.Context, id string) (*model.Person, error) {
	var person model.Person
	err := r.db.WithContext(ctx).
		Where("person_id = ?", id).
		First(&person).Error
	if err != nil {
		return nil, err
	}
	return &person, nil
}

func (r *personRepo) GetByEmail(ctx context.Context, email string) (*model.Person, error) {
	var person model.Person
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		First(&person).Error
	if err != nil {
		return nil, err
	}
	return &person, nil
}

func (r *personRepo) MaxIDWithPrefix(ctx context.Context, prefix string) (string, error) {
	var person model.Person
	err := r.db.WithContext(ctx).
		Select("person_id").
		Where(`person_id LIKE ? ESCAPE '\'`, likePrefix(prefix)).
		Order("person_id DESC").
		First(&person).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return person.PersonID, nil
}

func (r *personRepo) ListStudentsByGroup(ctx context.Context, year, dept string) ([]model.Person, error) {
	var persons []model.Person
	err := r.db.WithContext(ctx).
		Where(`role = ? AND department_code = ? AND person_id LIKE ? ESCAPE '\'`, model.RoleStudent, dept, likePrefix(year)).
		Order("person_id ASC").
		Find(&persons).Error
	return persons, err
}
