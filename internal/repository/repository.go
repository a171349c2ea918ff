package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository wraps the gorm handle. Inside Transaction it is bound to the
// open transaction, so every method issued through it shares one unit of work.
type Repository struct {
	db        *gorm.DB
	isolation sql.IsolationLevel
}

// Option configures a Repository.
type Option func(*Repository)

// WithIsolation sets the isolation level used by Transaction.
func WithIsolation(level sql.IsolationLevel) Option {
	return func(r *Repository) {
		r.isolation = level
	}
}

func NewRepository(db *gorm.DB, opts ...Option) *Repository {
	r := &Repository{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// DB exposes the underlying handle for read models that do not fit a method.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Transaction runs fn inside one database transaction. fn must only use the
// repository it is handed; the outer one is not part of the transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	var opts []*sql.TxOptions
	if r.isolation != sql.LevelDefault {
		opts = append(opts, &sql.TxOptions{Isolation: r.isolation})
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, isolation: r.isolation})
	}, opts...)
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}
