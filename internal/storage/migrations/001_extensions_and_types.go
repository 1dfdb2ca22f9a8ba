package migrations

import "gorm.io/gorm"

// migration001Up enables uuid generation and trigram search
func migration001Up(db *gorm.DB) error {
	return execAll(db, []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,
		`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
	})
}

// migration001Down is a no-op: extensions may be shared with other schemas
func migration001Down(db *gorm.DB) error {
	return nil
}
