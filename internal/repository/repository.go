// Package repository wraps gorm access for the marketplace tables.
//
// A Repositories bundle is built per call from an explicit handle, either the
// root *gorm.DB or an open transaction. Nothing here commits or rolls back;
// the caller that opened the transaction owns it.
package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const pgUniqueViolation = "23505"

type Repositories struct {
	Users     *UserRepository
	Products  *ProductRepository
	Wishlists *WishlistRepository
	Orders    *OrderRepository
	Shipping  *ShippingRepository
	Exchanges *ExchangeRepository
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:     &UserRepository{db: db},
		Products:  &ProductRepository{db: db},
		Wishlists: &WishlistRepository{db: db},
		Orders:    &OrderRepository{db: db},
		Shipping:  &ShippingRepository{db: db},
		Exchanges: &ExchangeRepository{db: db},
	}
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicateKey reports whether err is a unique-constraint violation.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// insertWithSavepoint runs create inside a named savepoint and rolls back to
// it when create fails, leaving the surrounding transaction usable. The
// statements go through Exec so driver errors reach the caller.
func insertWithSavepoint(db *gorm.DB, name string, create func() error) error {
	if err := db.Exec("SAVEPOINT " + name).Error; err != nil {
		return fmt.Errorf("failed to create savepoint %s: %w", name, err)
	}
	if err := create(); err != nil {
		if rbErr := db.Exec("ROLLBACK TO SAVEPOINT " + name).Error; rbErr != nil {
			return fmt.Errorf("failed to roll back to savepoint %s: %w", name, rbErr)
		}
		return err
	}
	return nil
}
