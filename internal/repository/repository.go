package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Person        PersonRepository
	Department    DepartmentRepository
	Course        CourseRepository
	Enrollment    EnrollmentRepository
	ScheduleEntry ScheduleEntryRepository

	// Locker 事务级键锁，必须使用与写入同一事务绑定的实例
	Locker KeyLocker
	// Tx 事务执行器；为 nil 时 RunInTx 直接在当前 Repository 上执行
	Tx TxRunner
}

// NewRepository 创建 Repository 聚合，txRetries 为可重试冲突的最大尝试次数
func NewRepository(db *gorm.DB, txRetries int) *Repository {
	repo := newBoundRepository(db)
	repo.Tx = &gormTxRunner{db: db, maxAttempts: txRetries}
	return repo
}

// newBoundRepository 构造绑定到给定连接（或事务）的 Repository
func newBoundRepository(db *gorm.DB) *Repository {
	return &Repository{
		Person:        NewPersonRepo(db),
		Department:    NewDepartmentRepo(db),
		Course:        NewCourseRepo(db),
		Enrollment:    NewEnrollmentRepo(db),
		ScheduleEntry: NewScheduleEntryRepo(db),
		Locker:        NewAdvisoryLocker(db),
	}
}

// RunInTx 在单个可串行化事务中执行 fn；fn 返回错误时整体回滚
func (r *Repository) RunInTx(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.Tx == nil {
		return fn(r)
	}
	return r.Tx.RunInTx(ctx, fn)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix 前缀匹配模式，转义 LIKE 通配符，配合 ESCAPE '\' 使用
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}
