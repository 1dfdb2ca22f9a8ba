package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gravadigital/bienestar-api/internal/domain/event"
	"github.com/gravadigital/bienestar-api/internal/logger"
)

const eventOrder = "start_at ASC, id ASC"

// PostgresEventRepository implements EventRepository using GORM
type PostgresEventRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresEventRepository creates a new PostgreSQL event repository
func NewPostgresEventRepository(db *gorm.DB) *PostgresEventRepository {
	return &PostgresEventRepository{
		db:  db,
		log: logger.Repository("event"),
	}
}

func (r *PostgresEventRepository) Create(ctx context.Context, e *event.Event) error {
	r.log.Debug("Creating event", "title", e.Title, "venue_id", e.VenueID)

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(e).Error; err != nil {
		r.log.Error("Failed to create event", "title", e.Title, "error", err)
		return fmt.Errorf("failed to create event: %w", TranslateError(err))
	}

	r.log.Info("Event created successfully", "id", e.ID, "title", e.Title)
	return nil
}

func (r *PostgresEventRepository) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	var e event.Event
	err := r.withRelations(r.db.WithContext(ctx)).
		Where("id = ? AND active = ?", id, true).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("Event not found", "id", id)
			return nil, ErrNotFound
		}
		r.log.Error("Failed to get event by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get event by ID: %w", err)
	}
	return &e, nil
}

// GetByIDForUpdate reads the event with SELECT ... FOR UPDATE. Preload would
// issue its own unlocked queries, so participants are loaded separately
// after the lock is held.
func (r *PostgresEventRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	db := r.db.WithContext(ctx)

	var e event.Event
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND active = ?", id, true).
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		r.log.Error("Failed to lock event", "id", id, "error", err)
		return nil, fmt.Errorf("failed to lock event: %w", err)
	}

	if err := db.Where("event_id = ?", e.ID).Order("joined_at ASC").Find(&e.Participants).Error; err != nil {
		r.log.Error("Failed to load participants", "event_id", id, "error", err)
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}

	r.log.Debug("Event locked", "id", id, "enrolled", e.EnrolledCount())
	return &e, nil
}

func (r *PostgresEventRepository) List(ctx context.Context, filter EventFilter, params PaginationParams) (Page[*event.Event], error) {
	params = params.Normalize()
	query := strings.TrimSpace(filter.Query)

	scope := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&event.Event{}).Where("active = ?", true)
		if query != "" {
			like := "%" + escapeLike(query) + "%"
			q = q.Where("title ILIKE ? OR description ILIKE ?", like, like)
		}
		if filter.StartsFrom != nil {
			q = q.Where("start_at >= ?", *filter.StartsFrom)
		}
		if filter.AvailableOnly {
			q = q.Where("id IN (SELECT event_id FROM event_occupancy WHERE NOT is_full)")
		}
		if filter.ParticipantID != nil {
			q = q.Where("id IN (SELECT event_id FROM event_participants WHERE account_id = ?)", *filter.ParticipantID)
		}
		return q
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		r.log.Error("Failed to count events", "error", err)
		return Page[*event.Event]{}, fmt.Errorf("failed to count events: %w", err)
	}

	var events []*event.Event
	err := r.withRelations(scope()).
		Order(eventOrder).
		Offset(params.Offset()).
		Limit(params.PageSize).
		Find(&events).Error
	if err != nil {
		r.log.Error("Failed to list events", "error", err)
		return Page[*event.Event]{}, fmt.Errorf("failed to list events: %w", err)
	}

	r.log.Debug("Events listed",
		"query", query,
		"available_only", filter.AvailableOnly,
		"page", params.Page,
		"total", total,
		"returned_count", len(events))
	return NewPage(events, total, params), nil
}

func (r *PostgresEventRepository) Update(ctx context.Context, e *event.Event) error {
	res := r.db.WithContext(ctx).Model(&event.Event{}).Where("id = ?", e.ID).Updates(map[string]any{
		"title":        e.Title,
		"description":  e.Description,
		"start_at":     e.StartAt,
		"end_at":       e.EndAt,
		"venue_id":     e.VenueID,
		"max_capacity": e.MaxCapacity,
		"active":       e.Active,
	})
	if res.Error != nil {
		r.log.Error("Failed to update event", "id", e.ID, "error", res.Error)
		return fmt.Errorf("failed to update event: %w", TranslateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	r.log.Info("Event updated successfully", "id", e.ID)
	return nil
}

func (r *PostgresEventRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&event.Event{}).Where("id = ? AND active = ?", id, true).Update("active", false)
	if res.Error != nil {
		r.log.Error("Failed to deactivate event", "id", id, "error", res.Error)
		return fmt.Errorf("failed to deactivate event: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	r.log.Info("Event deactivated", "id", id)
	return nil
}

func (r *PostgresEventRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&event.Event{}, "id = ?", id)
	if res.Error != nil {
		r.log.Error("Failed to delete event", "id", id, "error", res.Error)
		return fmt.Errorf("failed to delete event: %w", TranslateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	r.log.Info("Event deleted permanently", "id", id)
	return nil
}

// CountByVenue counts every event row referencing the venue, active or not
func (r *PostgresEventRepository) CountByVenue(ctx context.Context, venueID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&event.Event{}).Where("venue_id = ?", venueID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count events by venue: %w", err)
	}
	return count, nil
}

// AddParticipant inserts the enrollment row. Re-adding an enrolled account is a no-op.
func (r *PostgresEventRepository) AddParticipant(ctx context.Context, eventID, accountID uuid.UUID) error {
	p := &event.Participant{EventID: eventID, AccountID: accountID, JoinedAt: time.Now().UTC()}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p).Error
	if err != nil {
		err = TranslateError(err)
		r.log.Error("Failed to add participant", "event_id", eventID, "account_id", accountID, "error", err)
		return fmt.Errorf("failed to add participant: %w", err)
	}

	r.log.Info("Participant added", "event_id", eventID, "account_id", accountID)
	return nil
}

func (r *PostgresEventRepository) RemoveParticipant(ctx context.Context, eventID, accountID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("event_id = ? AND account_id = ?", eventID, accountID).
		Delete(&event.Participant{})
	if res.Error != nil {
		r.log.Error("Failed to remove participant", "event_id", eventID, "account_id", accountID, "error", res.Error)
		return fmt.Errorf("failed to remove participant: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	r.log.Info("Participant removed", "event_id", eventID, "account_id", accountID)
	return nil
}

func (r *PostgresEventRepository) withRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("Venue").Preload("Participants", func(db *gorm.DB) *gorm.DB {
		return db.Order("joined_at ASC")
	})
}
