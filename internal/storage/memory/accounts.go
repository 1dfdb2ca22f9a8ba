package memory

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gravadigital/bienestar-api/internal/domain/account"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
)

// AccountRepository is the in-memory account table
type AccountRepository struct {
	st *state
}

func (r *AccountRepository) Create(ctx context.Context, a *account.Account) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, existing := range r.st.accounts {
		if existing.Username == a.Username {
			return postgres.ErrDuplicate
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	a.UpdatedAt = a.CreatedAt

	cp := *a
	r.st.accounts[a.ID.String()] = &cp
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	a, ok := r.st.accounts[id.String()]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*account.Account, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	for _, a := range r.st.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (r *AccountRepository) List(ctx context.Context, query string, params postgres.PaginationParams) (postgres.Page[*account.Account], error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	query = strings.TrimSpace(query)
	out := make([]*account.Account, 0, len(r.st.accounts))
	for _, a := range r.st.accounts {
		if query != "" && !containsFold(query, a.Username, a.Email) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}

	slices.SortFunc(out, func(a, b *account.Account) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return paginate(out, params), nil
}

func (r *AccountRepository) Update(ctx context.Context, a *account.Account) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	stored, ok := r.st.accounts[a.ID.String()]
	if !ok {
		return postgres.ErrNotFound
	}
	stored.Email = a.Email
	stored.Bio = a.Bio
	stored.Phone = a.Phone
	stored.IsStaff = a.IsStaff
	stored.IsActive = a.IsActive
	stored.LastLoginAt = a.LastLoginAt
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

// Delete removes the account, its enrollments and its creator references
func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.accounts[id.String()]; !ok {
		return postgres.ErrNotFound
	}
	delete(r.st.accounts, id.String())

	for _, e := range r.st.events {
		e.RemoveParticipant(id)
		if e.CreatedBy != nil && *e.CreatedBy == id {
			e.CreatedBy = nil
		}
	}
	for _, v := range r.st.venues {
		if v.CreatedBy != nil && *v.CreatedBy == id {
			v.CreatedBy = nil
		}
	}
	return nil
}

func (r *AccountRepository) GetEventParticipants(ctx context.Context, eventID uuid.UUID) ([]*account.Account, error) {
	r.st.mu.RLock()
	defer r.st.mu.RUnlock()

	out := make([]*account.Account, 0)
	e, ok := r.st.events[eventID.String()]
	if !ok {
		return out, nil
	}
	for _, p := range e.Participants {
		if a, ok := r.st.accounts[p.AccountID.String()]; ok {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}
