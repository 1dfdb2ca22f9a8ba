package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/bienestar-api/internal/domain/account"
	"github.com/gravadigital/bienestar-api/internal/domain/common"
	"github.com/gravadigital/bienestar-api/internal/identity"
	"github.com/gravadigital/bienestar-api/internal/logger"
	"github.com/gravadigital/bienestar-api/internal/metrics"
	"github.com/gravadigital/bienestar-api/internal/notify"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
	"github.com/gravadigital/bienestar-api/internal/validation"
)

const msgUsernameTaken = "username already taken"

// AccountService maneja la lógica de negocio de cuentas
type AccountService struct {
	store     postgres.RepositoryContainer
	identity  *identity.Store
	notifier  notify.Notifier
	validator validation.AccountValidation
	now       Clock
	log       *log.Logger
}

// NewAccountService crea una nueva instancia del servicio de cuentas
func NewAccountService(store postgres.RepositoryContainer, ids *identity.Store, notifier notify.Notifier) *AccountService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &AccountService{
		store:     store,
		identity:  ids,
		notifier:  notifier,
		validator: validation.AccountValidation{},
		now:       utcNow,
		log:       logger.Service("account"),
	}
}

// RegisterRequest representa una solicitud de registro
type RegisterRequest struct {
	Username        string `json:"username" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	PasswordConfirm string `json:"password_confirm" binding:"required"`
}

// UpdateAccountRequest representa una actualización parcial del perfil
type UpdateAccountRequest struct {
	Email    *string `json:"email"`
	Bio      *string `json:"bio"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"is_active"`
}

// Register crea una cuenta. Checks, in order: username length, email,
// password confirmation, password length, username availability.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (common.Result[*account.Account], error) {
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	// Validaciones
	if err := s.validator.ValidateUsername(username); err != nil {
		metrics.ObserveRegistration("invalid")
		return common.Invalid[*account.Account](err.Error()), nil
	}

	if err := s.validator.ValidateEmail(email); err != nil {
		metrics.ObserveRegistration("invalid")
		return common.Invalid[*account.Account](err.Error()), nil
	}

	if err := s.validator.ValidatePassword(req.Password, req.PasswordConfirm); err != nil {
		metrics.ObserveRegistration("invalid")
		return common.Invalid[*account.Account](err.Error()), nil
	}

	// Verificar que el usuario no existe
	if _, err := s.store.Accounts().GetByUsername(ctx, username); err == nil {
		metrics.ObserveRegistration("conflict")
		return common.Conflict[*account.Account](msgUsernameTaken), nil
	} else if !errors.Is(err, postgres.ErrNotFound) {
		metrics.ObserveRegistration("error")
		return common.Result[*account.Account]{}, fmt.Errorf("failed to check username: %w", err)
	}

	acc, err := s.identity.CreateAccount(ctx, username, email, req.Password)
	if err != nil {
		if errors.Is(err, postgres.ErrDuplicate) {
			metrics.ObserveRegistration("conflict")
			return common.Conflict[*account.Account](msgUsernameTaken), nil
		}
		metrics.ObserveRegistration("error")
		return common.Result[*account.Account]{}, fmt.Errorf("failed to register account: %w", err)
	}

	metrics.ObserveRegistration("success")
	s.notifier.Welcome(ctx, acc)
	return common.Ok(fmt.Sprintf("account %s registered", acc.Username), acc), nil
}

// Authenticate verifica las credenciales y registra el último acceso.
// Inactive accounts are refused with the same message as bad credentials.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (common.Result[*account.Account], error) {
	acc, err := s.identity.Verify(ctx, strings.TrimSpace(username), password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return common.Invalid[*account.Account]("invalid credentials"), nil
		}
		return common.Result[*account.Account]{}, err
	}
	if !acc.IsActive {
		s.log.Info("Login refused for inactive account", "account_id", acc.ID)
		return common.Invalid[*account.Account]("invalid credentials"), nil
	}

	acc.MarkLogin(s.now())
	if err := s.store.Accounts().Update(ctx, acc); err != nil {
		return common.Result[*account.Account]{}, fmt.Errorf("failed to stamp login: %w", err)
	}

	s.log.Info("Account logged in", "account_id", acc.ID)
	return common.Ok("authenticated", acc), nil
}

// GetAccount obtiene una cuenta por su ID
func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (common.Result[*account.Account], error) {
	acc, err := s.store.Accounts().GetByID(ctx, id)
	if err != nil {
		return lookupFailure[*account.Account](err, "account")
	}
	return common.Ok("account found", acc), nil
}

// ListAccounts lista y busca cuentas; solo para staff
func (s *AccountService) ListAccounts(ctx context.Context, actor *common.Actor, query string, params postgres.PaginationParams) (common.Result[postgres.Page[*account.Account]], error) {
	if actor == nil || !actor.IsStaff {
		return common.Forbidden[postgres.Page[*account.Account]]("staff only"), nil
	}

	page, err := s.store.Accounts().List(ctx, strings.TrimSpace(query), params)
	if err != nil {
		return common.Result[postgres.Page[*account.Account]]{}, fmt.Errorf("failed to list accounts: %w", err)
	}
	return common.Ok("accounts found", page), nil
}

// UpdateAccount actualiza el perfil. Accounts edit themselves; staff edit
// anyone and are the only ones allowed to change is_active.
func (s *AccountService) UpdateAccount(ctx context.Context, actor *common.Actor, id uuid.UUID, req UpdateAccountRequest) (common.Result[*account.Account], error) {
	if actor == nil || (actor.ID != id && !actor.IsStaff) {
		return common.Forbidden[*account.Account]("you can only edit your own account"), nil
	}
	if req.IsActive != nil && !actor.IsStaff {
		return common.Forbidden[*account.Account]("only staff can change the account status"), nil
	}

	acc, err := s.store.Accounts().GetByID(ctx, id)
	if err != nil {
		return lookupFailure[*account.Account](err, "account")
	}

	if req.Email != nil {
		if err := s.validator.ValidateEmail(strings.TrimSpace(*req.Email)); err != nil {
			return common.Invalid[*account.Account](err.Error()), nil
		}
		acc.Email = *trimmed(req.Email)
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if err := s.validator.ValidatePhone(phone); err != nil {
			return common.Invalid[*account.Account](err.Error()), nil
		}
		acc.Phone = phone
	}
	if req.Bio != nil {
		acc.Bio = *trimmed(req.Bio)
	}
	if req.IsActive != nil {
		acc.IsActive = *req.IsActive
	}

	if err := s.store.Accounts().Update(ctx, acc); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return common.NotFound[*account.Account]("account not found"), nil
		}
		return common.Result[*account.Account]{}, fmt.Errorf("failed to update account: %w", err)
	}

	s.log.Info("Account updated", "account_id", acc.ID, "by", actor.ID)
	return common.Ok("account updated", acc), nil
}

// DeleteAccount elimina una cuenta y sus inscripciones; solo para staff y
// nunca la propia
func (s *AccountService) DeleteAccount(ctx context.Context, actor *common.Actor, id uuid.UUID) (common.Result[struct{}], error) {
	if actor == nil || !actor.IsStaff {
		return common.Forbidden[struct{}]("staff only"), nil
	}
	if actor.ID == id {
		return common.Forbidden[struct{}]("you cannot delete your own account"), nil
	}

	if err := s.store.Accounts().Delete(ctx, id); err != nil {
		return lookupFailure[struct{}](err, "account")
	}

	s.log.Info("Account deleted", "account_id", id, "by", actor.ID)
	return common.Ok("account deleted", struct{}{}), nil
}
