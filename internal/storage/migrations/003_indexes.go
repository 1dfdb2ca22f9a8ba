package migrations

import "gorm.io/gorm"

var indexes = map[string]string{
	"idx_venues_active_created":      "ON venues(active, created_at DESC, id)",
	"idx_venues_created_by":          "ON venues(created_by)",
	"idx_venues_name_trgm":           "ON venues USING gin (name gin_trgm_ops)",
	"idx_events_active_start":        "ON events(active, start_at, id)",
	"idx_events_venue":               "ON events(venue_id)",
	"idx_events_created_by":          "ON events(created_by)",
	"idx_events_title_trgm":          "ON events USING gin (title gin_trgm_ops)",
	"idx_event_participants_account": "ON event_participants(account_id)",
	"idx_accounts_email":             "ON accounts(email)",
}

// migration003Up creates lookup and search indexes
func migration003Up(db *gorm.DB) error {
	for name, def := range indexes {
		if err := db.Exec("CREATE INDEX IF NOT EXISTS " + name + " " + def).Error; err != nil {
			return err
		}
	}
	return nil
}

// migration003Down drops the indexes created by migration003Up
func migration003Down(db *gorm.DB) error {
	for name := range indexes {
		if err := db.Exec("DROP INDEX IF EXISTS " + name).Error; err != nil {
			return err
		}
	}
	return nil
}
