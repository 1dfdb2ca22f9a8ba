package migrations

import "gorm.io/gorm"

// migration004Up adds range checks, the account foreign keys, the
// updated_at trigger and the enrollment capacity guard
func migration004Up(db *gorm.DB) error {
	constraints := []string{
		`ALTER TABLE venues ADD CONSTRAINT chk_venues_latitude CHECK (latitude BETWEEN -90 AND 90)`,
		`ALTER TABLE venues ADD CONSTRAINT chk_venues_longitude CHECK (longitude BETWEEN -180 AND 180)`,
		`ALTER TABLE events ADD CONSTRAINT chk_events_dates CHECK (end_at > start_at)`,
		`ALTER TABLE events ADD CONSTRAINT chk_events_capacity CHECK (max_capacity >= 1)`,

		`ALTER TABLE venues ADD CONSTRAINT fk_venues_created_by
            FOREIGN KEY (created_by) REFERENCES accounts(id) ON DELETE SET NULL`,
		`ALTER TABLE events ADD CONSTRAINT fk_events_created_by
            FOREIGN KEY (created_by) REFERENCES accounts(id) ON DELETE SET NULL`,
		`ALTER TABLE event_participants ADD CONSTRAINT fk_event_participants_account
            FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE`,
	}
	if err := execAll(db, constraints); err != nil {
		return err
	}

	functions := []string{
		`CREATE OR REPLACE FUNCTION update_updated_at_column()
        RETURNS TRIGGER AS $$
        BEGIN
            NEW.updated_at = CURRENT_TIMESTAMP;
            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql`,

		// The event row lock serialises concurrent inserts for the same event.
		`CREATE OR REPLACE FUNCTION enforce_event_capacity()
        RETURNS TRIGGER AS $$
        DECLARE
            capacity INTEGER;
            enrolled INTEGER;
        BEGIN
            SELECT max_capacity INTO capacity FROM events WHERE id = NEW.event_id FOR UPDATE;

            SELECT COUNT(*) INTO enrolled FROM event_participants WHERE event_id = NEW.event_id;

            IF enrolled >= capacity THEN
                RAISE EXCEPTION 'event % is full (capacity: %)', NEW.event_id, capacity
                    USING ERRCODE = 'check_violation', CONSTRAINT = '` + CapacityConstraint + `';
            END IF;

            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql`,
	}
	if err := execAll(db, functions); err != nil {
		return err
	}

	triggers := []string{
		`CREATE TRIGGER trg_venues_updated_at BEFORE UPDATE ON venues
            FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`,
		`CREATE TRIGGER trg_events_updated_at BEFORE UPDATE ON events
            FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`,
		`CREATE TRIGGER trg_accounts_updated_at BEFORE UPDATE ON accounts
            FOR EACH ROW EXECUTE FUNCTION update_updated_at_column()`,
		`CREATE TRIGGER trg_event_capacity BEFORE INSERT ON event_participants
            FOR EACH ROW EXECUTE FUNCTION enforce_event_capacity()`,
	}
	return execAll(db, triggers)
}

// migration004Down removes everything migration004Up created
func migration004Down(db *gorm.DB) error {
	return execAll(db, []string{
		"DROP TRIGGER IF EXISTS trg_event_capacity ON event_participants",
		"DROP TRIGGER IF EXISTS trg_accounts_updated_at ON accounts",
		"DROP TRIGGER IF EXISTS trg_events_updated_at ON events",
		"DROP TRIGGER IF EXISTS trg_venues_updated_at ON venues",
		"DROP FUNCTION IF EXISTS enforce_event_capacity()",
		"DROP FUNCTION IF EXISTS update_updated_at_column()",
		"ALTER TABLE event_participants DROP CONSTRAINT IF EXISTS fk_event_participants_account",
		"ALTER TABLE events DROP CONSTRAINT IF EXISTS fk_events_created_by",
		"ALTER TABLE venues DROP CONSTRAINT IF EXISTS fk_venues_created_by",
		"ALTER TABLE events DROP CONSTRAINT IF EXISTS chk_events_capacity",
		"ALTER TABLE events DROP CONSTRAINT IF EXISTS chk_events_dates",
		"ALTER TABLE venues DROP CONSTRAINT IF EXISTS chk_venues_longitude",
		"ALTER TABLE venues DROP CONSTRAINT IF EXISTS chk_venues_latitude",
	})
}
