package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/bienestar-api/internal/domain/event"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
)

// EventRepository is the in-memory event table together with its
// enrollment rows
type EventRepository struct {
	st *state
}

func (r *EventRepository) Create(ctx context.Context, e *event.Event) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if _, exists := r.st.events[e.ID.String()]; exists {
		return postgres.ErrDuplicate
	}
	if _, ok := r.st.venues[e.VenueID.String()]; !ok {
		return postgres.ErrReferenced
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.UpdatedAt = e.CreatedAt

	cp := *e
	cp.Venue = nil
	cp.Participants = make([]event.Participant, 0)
	r.st.events[e.ID.String()] = &cp
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	e, ok := r.st.events[id.String()]
	if !ok || !e.Active {
		return nil, postgres.ErrNotFound
	}
	return r.hydrate(e), nil
}

// GetByIDForUpdate relies on the transaction mutex held by the caller
func (r *EventRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	return r.GetByID(ctx, id)
}

func (r *EventRepository) List(ctx context.Context, filter postgres.EventFilter, params postgres.PaginationParams) (postgres.Page[*event.Event], error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	query := strings.TrimSpace(filter.Query)
	out := make([]*event.Event, 0)
	for _, e := range r.st.events {
		if !e.Active {
			continue
		}
		if query != "" && !containsFold(query, e.Title, e.Description) {
			continue
		}
		if filter.StartsFrom != nil && e.StartAt.Before(*filter.StartsFrom) {
			continue
		}
		if filter.AvailableOnly && e.IsFull() {
			continue
		}
		if filter.ParticipantID != nil && !e.IsEnrolled(*filter.ParticipantID) {
			continue
		}
		out = append(out, r.hydrate(e))
	}

	slices.SortFunc(out, func(a, b *event.Event) int {
		if c := a.StartAt.Compare(b.StartAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return paginate(out, params), nil
}

func (r *EventRepository) Update(ctx context.Context, e *event.Event) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	stored, ok := r.st.events[e.ID.String()]
	if !ok {
		return postgres.ErrNotFound
	}
	if _, ok := r.st.venues[e.VenueID.String()]; !ok {
		return postgres.ErrReferenced
	}

	stored.Title = e.Title
	stored.Description = e.Description
	stored.StartAt = e.StartAt
	stored.EndAt = e.EndAt
	stored.VenueID = e.VenueID
	stored.MaxCapacity = e.MaxCapacity
	stored.Active = e.Active
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *EventRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	e, ok := r.st.events[id.String()]
	if !ok || !e.Active {
		return postgres.ErrNotFound
	}
	e.Active = false
	e.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *EventRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.events[id.String()]; !ok {
		return postgres.ErrNotFound
	}
	delete(r.st.events, id.String())
	return nil
}

func (r *EventRepository) CountByVenue(ctx context.Context, venueID uuid.UUID) (int64, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	var n int64
	for _, e := range r.st.events {
		if e.VenueID == venueID {
			n++
		}
	}
	return n, nil
}

// AddParticipant mirrors the enrollment trigger: unknown accounts are
// rejected and a full event refuses new rows
func (r *EventRepository) AddParticipant(ctx context.Context, eventID, accountID uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	e, ok := r.st.events[eventID.String()]
	if !ok {
		return postgres.ErrReferenced
	}
	if _, ok := r.st.accounts[accountID.String()]; !ok {
		return postgres.ErrReferenced
	}
	if e.IsEnrolled(accountID) {
		return nil
	}
	if e.IsFull() {
		return postgres.ErrCapacityExceeded
	}
	e.AddParticipant(accountID, time.Now().UTC())
	return nil
}

func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID, accountID uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	e, ok := r.st.events[eventID.String()]
	if !ok || !e.RemoveParticipant(accountID) {
		return postgres.ErrNotFound
	}
	return nil
}

// hydrate copies the event with its venue and participants. Callers hold the lock.
func (r *EventRepository) hydrate(e *event.Event) *event.Event {
	cp := *e
	cp.Participants = slices.Clone(e.Participants)
	if v, ok := r.st.venues[e.VenueID.String()]; ok {
		vc := *v
		cp.Venue = &vc
	}
	return &cp
}
