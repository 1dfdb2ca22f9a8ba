package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/bienestar-api/internal/domain/account"
	"github.com/gravadigital/bienestar-api/internal/logger"
)

// PostgresAccountRepository implements AccountRepository using GORM
type PostgresAccountRepository struct {
	db  *gorm.DB
	log *log.Logger
}

// NewPostgresAccountRepository creates a new PostgreSQL account repository
func NewPostgresAccountRepository(db *gorm.DB) *PostgresAccountRepository {
	return &PostgresAccountRepository{
		db:  db,
		log: logger.Repository("account"),
	}
}

func (r *PostgresAccountRepository) Create(ctx context.Context, a *account.Account) error {
	r.log.Debug("Creating account", "username", a.Username)

	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		err = TranslateError(err)
		if errors.Is(err, ErrDuplicate) {
			r.log.Warn("Username already taken", "username", a.Username)
		} else {
			r.log.Error("Failed to create account", "username", a.Username, "error", err)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	r.log.Info("Account created successfully", "id", a.ID, "username", a.Username)
	return nil
}

func (r *PostgresAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var a account.Account
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("Account not found", "id", id)
			return nil, ErrNotFound
		}
		r.log.Error("Failed to get account by ID", "id", id, "error", err)
		return nil, fmt.Errorf("failed to get account by ID: %w", err)
	}
	return &a, nil
}

func (r *PostgresAccountRepository) GetByUsername(ctx context.Context, username string) (*account.Account, error) {
	if username == "" {
		return nil, ErrNotFound
	}

	var a account.Account
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		r.log.Error("Failed to get account by username", "username", username, "error", err)
		return nil, fmt.Errorf("failed to get account by username: %w", err)
	}
	return &a, nil
}

func (r *PostgresAccountRepository) List(ctx context.Context, query string, params PaginationParams) (Page[*account.Account], error) {
	params = params.Normalize()
	query = strings.TrimSpace(query)

	scope := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&account.Account{})
		if query != "" {
			like := "%" + escapeLike(query) + "%"
			q = q.Where("username ILIKE ? OR email ILIKE ?", like, like)
		}
		return q
	}

	var total int64
	if err := scope().Count(&total).Error; err != nil {
		r.log.Error("failed to count accounts", "error", err)
		return Page[*account.Account]{}, fmt.Errorf("failed to count accounts: %w", err)
	}

	var accounts []*account.Account
	if err := scope().Order("created_at DESC, id ASC").Offset(params.Offset()).Limit(params.PageSize).Find(&accounts).Error; err != nil {
		r.log.Error("failed to retrieve paginated accounts", "error", err)
		return Page[*account.Account]{}, fmt.Errorf("failed to retrieve paginated accounts: %w", err)
	}

	r.log.Debug("paginated accounts retrieved successfully",
		"page", params.Page,
		"page_size", params.PageSize,
		"total", total,
		"returned_count", len(accounts))
	return NewPage(accounts, total, params), nil
}

func (r *PostgresAccountRepository) Update(ctx context.Context, a *account.Account) error {
	res := r.db.WithContext(ctx).Model(&account.Account{}).Where("id = ?", a.ID).Updates(map[string]any{
		"email":         a.Email,
		"bio":           a.Bio,
		"phone":         a.Phone,
		"is_staff":      a.IsStaff,
		"is_active":     a.IsActive,
		"last_login_at": a.LastLoginAt,
	})
	if res.Error != nil {
		r.log.Error("Failed to update account", "id", a.ID, "error", res.Error)
		return fmt.Errorf("failed to update account: %w", TranslateError(res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	r.log.Info("Account updated successfully", "id", a.ID)
	return nil
}

// Delete removes the account; enrollments cascade and creator references are nulled
func (r *PostgresAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&account.Account{}, "id = ?", id)
	if res.Error != nil {
		r.log.Error("Failed to delete account", "id", id, "error", res.Error)
		return fmt.Errorf("failed to delete account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	r.log.Info("Account deleted", "id", id)
	return nil
}

func (r *PostgresAccountRepository) GetEventParticipants(ctx context.Context, eventID uuid.UUID) ([]*account.Account, error) {
	var accounts []*account.Account
	err := r.db.WithContext(ctx).
		Joins("JOIN event_participants ep ON ep.account_id = accounts.id").
		Where("ep.event_id = ?", eventID).
		Order("ep.joined_at ASC").
		Find(&accounts).Error
	if err != nil {
		r.log.Error("Failed to get event participants", "event_id", eventID, "error", err)
		return nil, fmt.Errorf("failed to get event participants: %w", err)
	}

	r.log.Debug("Retrieved event participants", "event_id", eventID, "count", len(accounts))
	return accounts, nil
}
