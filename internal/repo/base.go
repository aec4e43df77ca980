package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const sqliteDialect = "sqlite"

// Base provides the connection handling shared by domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// ForUpdate returns a query that takes a row lock on the selected rows.
// sqlite has no row locks; its writers already serialise at BEGIN IMMEDIATE.
func (b Base) ForUpdate(ctx context.Context) *gorm.DB {
	q := b.DB(ctx)
	if b.IsSQLite() {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}

// IsSQLite reports whether the connection runs on the sqlite dialector.
func (b Base) IsSQLite() bool {
	return b.db != nil && b.db.Dialector != nil && b.db.Dialector.Name() == sqliteDialect
}
