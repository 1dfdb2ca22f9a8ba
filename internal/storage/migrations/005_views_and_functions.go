package migrations

import "gorm.io/gorm"

// migration005Up creates the occupancy view used by availability filters
func migration005Up(db *gorm.DB) error {
	return db.Exec(`
        CREATE OR REPLACE VIEW event_occupancy AS
        SELECT
            e.id AS event_id,
            e.max_capacity,
            COUNT(ep.account_id) AS enrolled_count,
            e.max_capacity - COUNT(ep.account_id) AS remaining_seats,
            COUNT(ep.account_id) >= e.max_capacity AS is_full
        FROM events e
        LEFT JOIN event_participants ep ON ep.event_id = e.id
        GROUP BY e.id, e.max_capacity
    `).Error
}

// migration005Down drops the occupancy view
func migration005Down(db *gorm.DB) error {
	return db.Exec("DROP VIEW IF EXISTS event_occupancy").Error
}
