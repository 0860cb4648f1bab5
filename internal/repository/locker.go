package repository

import (
	"context"

	"gorm.io/gorm"
)

// KeyLocker 按字符串键加互斥锁，锁随所在事务结束释放
type KeyLocker interface {
	Lock(ctx context.Context, key string) error
}

// advisoryLocker 基于 PostgreSQL pg_advisory_xact_lock 的实现
type advisoryLocker struct {
	db *gorm.DB
}

// NewAdvisoryLocker 创建事务级咨询锁；db 必须是事务连接，否则锁在语句结束后即失效
func NewAdvisoryLocker(db *gorm.DB) KeyLocker {
	return &advisoryLocker{db: db}
}

func (l *advisoryLocker) Lock(ctx context.Context, key string) error {
	return l.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error
}
