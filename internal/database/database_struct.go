package database

import "gorm.io/gorm"

// Database archives finished games in Postgres. Live rooms never touch it.
type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}
