package postgres

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"
)

// forUpdate pins the query to the primary and takes row locks held until the
// surrounding transaction ends. Dialects without row locks ignore the clause.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(dbresolver.Write, clause.Locking{Strength: "UPDATE"})
}

// onPrimary pins a read to the primary without locking.
func onPrimary(db *gorm.DB) *gorm.DB {
	return db.Clauses(dbresolver.Write)
}
