package repository

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	pkgerrors "github.com/jobayadurrasid/Smart-Campus/pkg/errors"
)

// TxRunner 事务执行器
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(txRepo *Repository) error) error
}

// gormTxRunner 基于 GORM 的可串行化事务，序列化失败/死锁时整体重放
type gormTxRunner struct {
	db          *gorm.DB
	maxAttempts int
}

func (t *gormTxRunner) RunInTx(ctx context.Context, fn func(txRepo *Repository) error) error {
	attempts := t.maxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = t.runOnce(ctx, fn)
		if err == nil || !pkgerrors.IsRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", pkgerrors.ErrTxRetriesExhausted, err)
}

func (t *gormTxRunner) runOnce(ctx context.Context, fn func(txRepo *Repository) error) (err error) {
	tx := t.db.WithContext(ctx).Begin(&sql.TxOptions{Isolation: sql.LevelSerializable})
	if tx.Error != nil {
		return tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	// 事务内嵌套调用 RunInTx 直接复用当前事务
	txRepo := newBoundRepository(tx)
	if err := fn(txRepo); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}
