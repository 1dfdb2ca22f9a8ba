package migrations

import "gorm.io/gorm"

const (
	sampleVenueID = "7a1c2f10-3b4d-4e5f-8a9b-0c1d2e3f4a50"
	sampleEventID = "8b2d3a21-4c5e-4f60-9bac-1d2e3f4a5b61"
)

// migration006Up inserts a venue and an event for local development
func migration006Up(db *gorm.DB) error {
	venueSQL := `
        INSERT INTO venues (id, name, description, address, latitude, longitude, map_url, active) VALUES
            ('` + sampleVenueID + `',
             'Parque Amarilis',
             'Open green area with a walking circuit and a yoga platform.',
             'Jr. Amarilis 100, Huanuco',
             -9.30, -75.90,
             'https://www.google.com/maps?q=-9.3,-75.9',
             TRUE)
        ON CONFLICT (id) DO NOTHING
    `
	if err := db.Exec(venueSQL).Error; err != nil {
		return err
	}

	eventSQL := `
        INSERT INTO events (id, title, description, start_at, end_at, venue_id, max_capacity, active) VALUES
            ('` + sampleEventID + `',
             'Sunrise mindfulness walk',
             'A guided silent walk around the park followed by a short breathing session.',
             '2027-03-06 11:00:00+00',
             '2027-03-06 12:30:00+00',
             '` + sampleVenueID + `',
             20,
             TRUE)
        ON CONFLICT (id) DO NOTHING
    `
	return db.Exec(eventSQL).Error
}

// migration006Down removes sample data
func migration006Down(db *gorm.DB) error {
	return execAll(db, []string{
		"DELETE FROM events WHERE id = '" + sampleEventID + "'",
		"DELETE FROM venues WHERE id = '" + sampleVenueID + "'",
	})
}
