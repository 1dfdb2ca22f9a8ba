package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gravadigital/bienestar-api/internal/domain/venue"
	"github.com/gravadigital/bienestar-api/internal/logger"
)

const venueOrder = "created_at DESC, id ASC"

// PostgresVenueRepository implements VenueRepository using GORM
type PostgresVenueRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresVenueRepository creates a new PostgreSQL venue repository
func NewPostgresVenueRepository(db *gorm.DB) *PostgresVenueRepository {
	return &PostgresVenueRepository{
		db:  db,
		log: logger.Repository("venue"),
	}
}

func (r *PostgresVenueRepository) Create(ctx context.Context, v *venue.Venue) error {
	r.log.Debug("Creating venue", "name", v.Name)

	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		r.log.Error("Failed to create venue", "name", v.Name, "error", err)
		return fmt.Errorf("failed to create venue: %w", TranslateError(err))
	}

	r.log.Info("Venue created successfully", "id", v.ID, "name", v.Name)
	return nil
}

func (r *PostgresVenueRepository) GetByID(ctx context.Context, id uuid.UUID) (*venue.Venue, error) {
	var v venue.Venue
	err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("Venue not found", "id", id)
			return nil, ErrNotFound
		}
		r.log.Error("Failed to get venue by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get venue by ID: %w", err)
	}
	return &v, nil
}

// GetByIDForUpdate reads the venue with SELECT ... FOR UPDATE
func (r *PostgresVenueRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*venue.Venue, error) {
	var v venue.Venue
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND active = ?", id, true).
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		r.log.Error("Failed to lock venue", "id", id, "error", err)
		return nil, fmt.Errorf("failed to lock venue: %w", err)
	}
	return &v, nil
}

func (r *PostgresVenueRepository) ListActive(ctx context.Context) ([]*venue.Venue, error) {
	var venues []*venue.Venue
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order(venueOrder).Find(&venues).Error; err != nil {
		r.log.Error("Failed to list active venues", "error", err)
		return nil, fmt.Errorf("failed to list active venues: %w", err)
	}

	r.log.Debug("Retrieved active venues", "count", len(venues))
	return venues, nil
}

// List pages through active venues, optionally filtered by a case-insensitive
// substring of name, description or address
func (r *PostgresVenueRepository) List(ctx context.Context, query string, params PaginationParams) (Page[*venue.Venue], error) {
	params = params.Normalize()

	query = strings.TrimSpace(query)
	scope := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&venue.Venue{}).Where("active = ?", true)
		if query != "" {
			like := "%" + escapeLike(query) + "%"
			q = q.Where("name ILIKE ? OR description ILIKE ? OR address ILIKE ?", like, like, like)
		}
		return q
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		r.log.Error("Failed to count venues", "query", query, "error", err)
		return Page[*venue.Venue]{}, fmt.Errorf("failed to count venues: %w", err)
	}

	var venues []*venue.Venue
	if err := scope().Order(venueOrder).Offset(params.Offset()).Limit(params.PageSize).Find(&venues).Error; err != nil {
		r.log.Error("Failed to list venues", "query", query, "error", err)
		return Page[*venue.Venue]{}, fmt.Errorf("failed to list venues: %w", err)
	}

	r.log.Debug("Venues listed", "query", query, "page", params.Page, "total", total, "returned_count", len(venues))
	return NewPage(venues, total, params), nil
}

func (r *PostgresVenueRepository) Update(ctx context.Context, v *venue.Venue) error {
	res := r.db.WithContext(ctx).Model(&venue.Venue{}).Where("id = ?", v.ID).Updates(map[string]any{
		"name":        v.Name,
		"description": v.Description,
		"address":     v.Address,
		"latitude":    v.Latitude,
		"longitude":   v.Longitude,
		"map_url":     v.MapURL,
		"photo_key":   v.PhotoKey,
		"active":      v.Active,
	})
	if res.Error != nil {
		r.log.Error("Failed to update venue", "id", v.ID, "error", res.Error)
		return fmt.Errorf("failed to update venue: %w", TranslateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	r.log.Info("Venue updated successfully", "id", v.ID)
	return nil
}

func (r *PostgresVenueRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&venue.Venue{}).Where("id = ? AND active = ?", id, true).Update("active", false)
	if res.Error != nil {
		r.log.Error("Failed to deactivate venue", "id", id, "error", res.Error)
		return fmt.Errorf("failed to deactivate venue: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	r.log.Info("Venue deactivated", "id", id)
	return nil
}

func (r *PostgresVenueRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&venue.Venue{}, "id = ?", id)
	if res.Error != nil {
		r.log.Error("Failed to delete venue", "id", id, "error", res.Error)
		return fmt.Errorf("failed to delete venue: %w", TranslateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	r.log.Info("Venue deleted permanently", "id", id)
	return nil
}

func (r *PostgresVenueRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&venue.Venue{}).Where("active = ?", true).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count active venues: %w", err)
	}
	return count, nil
}

func (r *PostgresVenueRepository) CountActiveByCreator(ctx context.Context, creatorID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&venue.Venue{}).
		Where("active = ? AND created_by = ?", true, creatorID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count venues by creator: %w", err)
	}
	return count, nil
}

// escapeLike neutralises LIKE wildcards in user input
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
