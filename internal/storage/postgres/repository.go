package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/bienestar-api/internal/domain/account"
	"github.com/gravadigital/bienestar-api/internal/domain/event"
	"github.com/gravadigital/bienestar-api/internal/domain/venue"
)

var (
	// ErrNotFound is returned when a lookup matches no (active) row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned on a unique-constraint violation
	ErrDuplicate = errors.New("duplicate record")
	// ErrReferenced is returned when a row cannot be removed because others point at it
	ErrReferenced = errors.New("record is still referenced")
	// ErrCapacityExceeded is raised by the enrollment capacity guard
	ErrCapacityExceeded = errors.New("event capacity exceeded")
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PaginationParams selects a 1-based page
type PaginationParams struct {
	Page     int
	PageSize int
}

// Normalize clamps the params to sane values
func (p PaginationParams) Normalize() PaginationParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset is the number of rows to skip
func (p PaginationParams) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.PageSize
}

// Page is one page of a listing
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPage wraps items with the counters derived from total and params
func NewPage[T any](items []T, total int64, params PaginationParams) Page[T] {
	params = params.Normalize()
	if items == nil {
		items = make([]T, 0)
	}
	pages := int((total + int64(params.PageSize) - 1) / int64(params.PageSize))
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: pages,
	}
}

// EventFilter narrows event listings. Zero values mean "no restriction".
type EventFilter struct {
	Query         string
	StartsFrom    *time.Time
	AvailableOnly bool
	ParticipantID *uuid.UUID
}

// VenueRepository define los métodos para interactuar con los lugares en la DB.
// Lookups only see active venues; ordering is created_at DESC, id ASC.
type VenueRepository interface {
	Create(ctx context.Context, v *venue.Venue) error
	GetByID(ctx context.Context, id uuid.UUID) (*venue.Venue, error)
	// GetByIDForUpdate locks the venue row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*venue.Venue, error)
	ListActive(ctx context.Context) ([]*venue.Venue, error)
	List(ctx context.Context, query string, params PaginationParams) (Page[*venue.Venue], error)
	Update(ctx context.Context, v *venue.Venue) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	CountActive(ctx context.Context) (int64, error)
	CountActiveByCreator(ctx context.Context, creatorID uuid.UUID) (int64, error)
}

// EventRepository define los metodos para interactuar con los eventos en la DB.
// Lookups only see active events; ordering is start_at ASC, id ASC.
type EventRepository interface {
	Create(ctx context.Context, e *event.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error)
	// GetByIDForUpdate locks the event row until the surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*event.Event, error)
	List(ctx context.Context, filter EventFilter, params PaginationParams) (Page[*event.Event], error)
	Update(ctx context.Context, e *event.Event) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	HardDelete(ctx context.Context, id uuid.UUID) error
	CountByVenue(ctx context.Context, venueID uuid.UUID) (int64, error)
	AddParticipant(ctx context.Context, eventID, accountID uuid.UUID) error
	RemoveParticipant(ctx context.Context, eventID, accountID uuid.UUID) error
}

// AccountRepository define los métodos para interactuar con las cuentas en la DB.
type AccountRepository interface {
	Create(ctx context.Context, a *account.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetByUsername(ctx context.Context, username string) (*account.Account, error)
	List(ctx context.Context, query string, params PaginationParams) (Page[*account.Account], error)
	Update(ctx context.Context, a *account.Account) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetEventParticipants(ctx context.Context, eventID uuid.UUID) ([]*account.Account, error)
}

// RepositoryContainer groups the repositories of one storage backend
type RepositoryContainer interface {
	Venues() VenueRepository
	Events() EventRepository
	Accounts() AccountRepository
	// WithinTransaction runs fn against a container bound to a single
	// transaction; fn's error rolls it back.
	WithinTransaction(ctx context.Context, fn func(tx RepositoryContainer) error) error
	Health() error
	Close() error
}
