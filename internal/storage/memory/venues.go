package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/bienestar-api/internal/domain/venue"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
)

// VenueRepository is the in-memory venue table
type VenueRepository struct {
	st *state
}

func (r *VenueRepository) Create(ctx context.Context, v *venue.Venue) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if _, exists := r.st.venues[v.ID.String()]; exists {
		return postgres.ErrDuplicate
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	v.UpdatedAt = v.CreatedAt

	cp := *v
	r.st.venues[v.ID.String()] = &cp
	return nil
}

func (r *VenueRepository) GetByID(ctx context.Context, id uuid.UUID) (*venue.Venue, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	v, ok := r.st.venues[id.String()]
	if !ok || !v.Active {
		return nil, postgres.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// GetByIDForUpdate relies on the transaction mutex held by the caller
func (r *VenueRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*venue.Venue, error) {
	return r.GetByID(ctx, id)
}

func (r *VenueRepository) ListActive(ctx context.Context) ([]*venue.Venue, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	return r.activeSorted(""), nil
}

func (r *VenueRepository) List(ctx context.Context, query string, params postgres.PaginationParams) (postgres.Page[*venue.Venue], error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	all := r.activeSorted(strings.TrimSpace(query))
	return paginate(all, params), nil
}

func (r *VenueRepository) Update(ctx context.Context, v *venue.Venue) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	stored, ok := r.st.venues[v.ID.String()]
	if !ok {
		return postgres.ErrNotFound
	}
	cp := *v
	cp.CreatedAt = stored.CreatedAt
	cp.CreatedBy = stored.CreatedBy
	cp.UpdatedAt = time.Now().UTC()
	r.st.venues[v.ID.String()] = &cp
	return nil
}

func (r *VenueRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	v, ok := r.st.venues[id.String()]
	if !ok || !v.Active {
		return postgres.ErrNotFound
	}
	v.Active = false
	v.UpdatedAt = time.Now().UTC()
	return nil
}

// HardDelete refuses while any event row references the venue
func (r *VenueRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.venues[id.String()]; !ok {
		return postgres.ErrNotFound
	}
	for _, e := range r.st.events {
		if e.VenueID == id {
			return postgres.ErrReferenced
		}
	}
	delete(r.st.venues, id.String())
	return nil
}

func (r *VenueRepository) CountActive(ctx context.Context) (int64, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	var n int64
	for _, v := range r.st.venues {
		if v.Active {
			n++
		}
	}
	return n, nil
}

func (r *VenueRepository) CountActiveByCreator(ctx context.Context, creatorID uuid.UUID) (int64, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	var n int64
	for _, v := range r.st.venues {
		if v.Active && v.CreatedBy != nil && *v.CreatedBy == creatorID {
			n++
		}
	}
	return n, nil
}

// activeSorted returns copies ordered by created_at DESC, id ASC. Callers hold the lock.
func (r *VenueRepository) activeSorted(query string) []*venue.Venue {
	out := make([]*venue.Venue, 0, len(r.st.venues))
	for _, v := range r.st.venues {
		if !v.Active {
			continue
		}
		if query != "" && !containsFold(query, v.Name, v.Description, v.Address) {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}

	slices.SortFunc(out, func(a, b *venue.Venue) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out
}
