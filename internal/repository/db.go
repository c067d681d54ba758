package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"motionportal/internal/domain"
)

// DBTX общий интерфейс *sqlx.DB и *sqlx.Tx
type DBTX interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// Коды ошибок Postgres
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Transactor выполняет функцию в одной транзакции
type Transactor struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) InTx(ctx context.Context, fn func(q DBTX) error) error {
	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// conn возвращает транзакцию, если она передана, иначе пул
func conn(q DBTX, db *sqlx.DB) DBTX {
	if q != nil {
		return q
	}
	return db
}

// mapError переводит ошибки драйвера в доменные
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError(what)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return domain.ConflictError(fmt.Sprintf("%s already exists", what), err)
		case pgForeignKeyViolation:
			return &domain.Error{
				Kind:    domain.ErrNotFound,
				Message: fmt.Sprintf("%s references a missing record", what),
				Cause:   err,
			}
		}
	}

	return fmt.Errorf("%s: %w", what, err)
}

// mapDeleteError для DELETE: нарушение внешнего ключа значит, что на строку еще ссылаются
func mapDeleteError(err error, what string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgForeignKeyViolation {
		return domain.ConflictError(fmt.Sprintf("%s is still referenced", what), err)
	}
	return mapError(err, what)
}

// expectAffected превращает UPDATE/DELETE без затронутых строк в NotFound
func expectAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return domain.NotFoundError(what)
	}
	return nil
}
