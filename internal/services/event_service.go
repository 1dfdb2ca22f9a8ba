package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/bienestar-api/internal/domain/account"
	"github.com/gravadigital/bienestar-api/internal/domain/common"
	"github.com/gravadigital/bienestar-api/internal/domain/event"
	"github.com/gravadigital/bienestar-api/internal/logger"
	"github.com/gravadigital/bienestar-api/internal/metrics"
	"github.com/gravadigital/bienestar-api/internal/notify"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
	"github.com/gravadigital/bienestar-api/internal/validation"
)

// ListFilter selects one of the event listings
type ListFilter string

const (
	FilterAll       ListFilter = "all"
	FilterUpcoming  ListFilter = "upcoming"
	FilterAvailable ListFilter = "available"
)

// ParseListFilter maps a query value to a filter, defaulting to FilterAll
func ParseListFilter(value string) ListFilter {
	switch ListFilter(strings.ToLower(strings.TrimSpace(value))) {
	case FilterUpcoming:
		return FilterUpcoming
	case FilterAvailable:
		return FilterAvailable
	default:
		return FilterAll
	}
}

// EventService maneja la lógica de negocio de eventos
type EventService struct {
	store     postgres.RepositoryContainer
	notifier  notify.Notifier
	validator validation.EventValidation
	now       Clock
	log       *log.Logger
}

// NewEventService crea una nueva instancia del servicio de eventos
func NewEventService(store postgres.RepositoryContainer, notifier notify.Notifier) *EventService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &EventService{
		store:     store,
		notifier:  notifier,
		validator: validation.EventValidation{},
		now:       utcNow,
		log:       logger.Service("event"),
	}
}

// CreateEventRequest representa una solicitud para crear un evento
type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description" binding:"required"`
	StartAt     time.Time `json:"start_at" binding:"required"`
	EndAt       time.Time `json:"end_at" binding:"required"`
	VenueID     uuid.UUID `json:"venue_id" binding:"required"`
	MaxCapacity int       `json:"max_capacity"`
}

// UpdateEventRequest representa una actualización parcial de un evento
type UpdateEventRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	StartAt     *time.Time `json:"start_at"`
	EndAt       *time.Time `json:"end_at"`
	VenueID     *uuid.UUID `json:"venue_id"`
	MaxCapacity *int       `json:"max_capacity"`
}

// CreateEvent crea un nuevo evento. Checks run in order and the first
// failure is reported: title, description, start, end, capacity, venue.
func (s *EventService) CreateEvent(ctx context.Context, req CreateEventRequest, actor *common.Actor) (common.Result[*event.Event], error) {
	// Validaciones
	if err := s.validator.ValidateTitle(req.Title); err != nil {
		return common.Invalid[*event.Event](err.Error()), nil
	}

	if err := s.validator.ValidateDescription(req.Description); err != nil {
		return common.Invalid[*event.Event](err.Error()), nil
	}

	if err := s.validator.ValidateStart(req.StartAt, s.now()); err != nil {
		return common.Invalid[*event.Event](err.Error()), nil
	}

	if err := s.validator.ValidateDateRange(req.StartAt, req.EndAt); err != nil {
		return common.Invalid[*event.Event](err.Error()), nil
	}

	if err := s.validator.ValidateCapacity(req.MaxCapacity); err != nil {
		return common.Invalid[*event.Event](err.Error()), nil
	}

	// Verificar que el lugar existe y está activo
	v, err := s.store.Venues().GetByID(ctx, req.VenueID)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return common.NotFound[*event.Event]("the selected venue does not exist"), nil
		}
		return common.Result[*event.Event]{}, fmt.Errorf("failed to load venue: %w", err)
	}

	// Crear evento
	e := event.NewEvent(
		strings.TrimSpace(req.Title),
		strings.TrimSpace(req.Description),
		req.StartAt,
		req.EndAt,
		v.ID,
		req.MaxCapacity,
		actor.ActorRef(),
	)

	if err := s.store.Events().Create(ctx, e); err != nil {
		return common.Result[*event.Event]{}, fmt.Errorf("failed to create event: %w", err)
	}
	e.Venue = v

	s.log.Info("Event created", "event_id", e.ID, "venue_id", v.ID, "capacity", e.MaxCapacity)
	return common.Ok(fmt.Sprintf("event %q created", e.Title), e), nil
}

// GetEvent obtiene un evento activo con su lugar y sus inscritos
func (s *EventService) GetEvent(ctx context.Context, id uuid.UUID) (common.Result[*event.Event], error) {
	e, err := s.store.Events().GetByID(ctx, id)
	if err != nil {
		return lookupFailure[*event.Event](err, "event")
	}
	return common.Ok("event found", e), nil
}

// ListEvents lista eventos activos por fecha de inicio. The query narrows by
// title or description when it has at least MinSearchLength runes.
func (s *EventService) ListEvents(ctx context.Context, filter ListFilter, query string, params postgres.PaginationParams) (postgres.Page[*event.Event], error) {
	f := postgres.EventFilter{Query: strings.TrimSpace(query)}
	if len([]rune(f.Query)) < MinSearchLength {
		f.Query = ""
	}

	switch filter {
	case FilterUpcoming:
		now := s.now()
		f.StartsFrom = &now
	case FilterAvailable:
		f.AvailableOnly = true
	}

	page, err := s.store.Events().List(ctx, f, params)
	if err != nil {
		return postgres.Page[*event.Event]{}, fmt.Errorf("failed to list events: %w", err)
	}
	return page, nil
}

// MyEvents lista los eventos activos donde el actor está inscrito
func (s *EventService) MyEvents(ctx context.Context, actor *common.Actor, params postgres.PaginationParams) (postgres.Page[*event.Event], error) {
	ref := actor.ActorRef()
	if ref == nil {
		return postgres.NewPage[*event.Event](nil, 0, params), nil
	}

	page, err := s.store.Events().List(ctx, postgres.EventFilter{ParticipantID: ref}, params)
	if err != nil {
		return postgres.Page[*event.Event]{}, fmt.Errorf("failed to list enrolled events: %w", err)
	}
	return page, nil
}

// UpdateEvent aplica una actualización parcial. Supplied fields follow the
// creation rules; capacity cannot drop below the current enrollment and the
// merged dates must keep end after start.
func (s *EventService) UpdateEvent(ctx context.Context, id uuid.UUID, req UpdateEventRequest) (common.Result[*event.Event], error) {
	var res common.Result[*event.Event]

	err := s.store.WithinTransaction(ctx, func(tx postgres.RepositoryContainer) error {
		e, err := tx.Events().GetByIDForUpdate(ctx, id)
		if err != nil {
			res, err = lookupFailure[*event.Event](err, "event")
			return err
		}

		if msg := s.validateUpdate(e, req); msg != "" {
			res = common.Invalid[*event.Event](msg)
			return nil
		}

		if req.VenueID != nil && *req.VenueID != e.VenueID {
			v, err := tx.Venues().GetByID(ctx, *req.VenueID)
			if err != nil {
				if errors.Is(err, postgres.ErrNotFound) {
					res = common.NotFound[*event.Event]("the selected venue does not exist")
					return nil
				}
				return fmt.Errorf("failed to load venue: %w", err)
			}
			e.VenueID = v.ID
			e.Venue = v
		}

		if req.Title != nil {
			e.Title = *trimmed(req.Title)
		}
		if req.Description != nil {
			e.Description = *trimmed(req.Description)
		}
		if req.StartAt != nil {
			e.StartAt = *req.StartAt
		}
		if req.EndAt != nil {
			e.EndAt = *req.EndAt
		}
		if req.MaxCapacity != nil {
			e.MaxCapacity = *req.MaxCapacity
		}

		if err := tx.Events().Update(ctx, e); err != nil {
			return fmt.Errorf("failed to update event: %w", err)
		}
		res = common.Ok("event updated", e)
		return nil
	})
	if err != nil {
		return common.Result[*event.Event]{}, err
	}

	if res.Success {
		s.log.Info("Event updated", "event_id", id)
	}
	return res, nil
}

// validateUpdate devuelve el primer mensaje de error, o "" si todo es válido
func (s *EventService) validateUpdate(e *event.Event, req UpdateEventRequest) string {
	if req.Title != nil {
		if err := s.validator.ValidateTitle(*req.Title); err != nil {
			return err.Error()
		}
	}
	if req.Description != nil {
		if err := s.validator.ValidateDescription(*req.Description); err != nil {
			return err.Error()
		}
	}
	if req.StartAt != nil && !req.StartAt.Equal(e.StartAt) {
		if err := s.validator.ValidateStart(*req.StartAt, s.now()); err != nil {
			return err.Error()
		}
	}

	start, end := e.StartAt, e.EndAt
	if req.StartAt != nil {
		start = *req.StartAt
	}
	if req.EndAt != nil {
		end = *req.EndAt
	}
	if err := s.validator.ValidateDateRange(start, end); err != nil {
		return err.Error()
	}

	if req.MaxCapacity != nil {
		if err := s.validator.ValidateCapacity(*req.MaxCapacity); err != nil {
			return err.Error()
		}
		if *req.MaxCapacity < e.EnrolledCount() {
			return fmt.Sprintf("capacity cannot be lower than the %d people already enrolled", e.EnrolledCount())
		}
	}
	return ""
}

// DeleteEvent desactiva el evento, o lo elimina con sus inscripciones si
// permanent es true
func (s *EventService) DeleteEvent(ctx context.Context, id uuid.UUID, permanent bool) (common.Result[struct{}], error) {
	if permanent {
		if err := s.store.Events().HardDelete(ctx, id); err != nil {
			return lookupFailure[struct{}](err, "event")
		}
		s.log.Info("Event deleted permanently", "event_id", id)
		return common.Ok("event deleted permanently", struct{}{}), nil
	}

	if err := s.store.Events().SoftDelete(ctx, id); err != nil {
		return lookupFailure[struct{}](err, "event")
	}
	s.log.Info("Event deactivated", "event_id", id)
	return common.Ok("event deactivated", struct{}{}), nil
}

// Participants lista las cuentas inscritas en un evento activo, por orden de inscripción
func (s *EventService) Participants(ctx context.Context, id uuid.UUID) (common.Result[[]*account.Account], error) {
	if _, err := s.store.Events().GetByID(ctx, id); err != nil {
		return lookupFailure[[]*account.Account](err, "event")
	}

	accounts, err := s.store.Accounts().GetEventParticipants(ctx, id)
	if err != nil {
		return common.Result[[]*account.Account]{}, fmt.Errorf("failed to list participants: %w", err)
	}
	return common.Ok("participants found", accounts), nil
}

// Enroll inscribe una cuenta en un evento. Checks, in order: the account
// exists; the event exists and is active; it is not full; the account is not
// enrolled yet; the event has not started. The event row stays locked from
// the capacity check until the insert commits.
func (s *EventService) Enroll(ctx context.Context, eventID, accountID uuid.UUID) (common.Result[*event.Event], error) {
	var (
		res     common.Result[*event.Event]
		outcome string
		member  *account.Account
	)

	err := s.store.WithinTransaction(ctx, func(tx postgres.RepositoryContainer) error {
		acc, err := tx.Accounts().GetByID(ctx, accountID)
		if err != nil {
			outcome = "not_found"
			res, err = lookupFailure[*event.Event](err, "account")
			return err
		}

		e, err := tx.Events().GetByIDForUpdate(ctx, eventID)
		if err != nil {
			outcome = "not_found"
			res, err = lookupFailure[*event.Event](err, "event")
			return err
		}

		if e.IsFull() {
			outcome = "full"
			res = common.Conflict[*event.Event](fullMessage(e))
			return nil
		}

		if e.IsEnrolled(acc.ID) {
			outcome = "already_enrolled"
			res = common.Conflict[*event.Event]("you are already enrolled in this event")
			return nil
		}

		now := s.now()
		if e.HasStarted(now) {
			outcome = "started"
			res = common.Invalid[*event.Event]("this event has already started")
			return nil
		}

		if err := tx.Events().AddParticipant(ctx, e.ID, acc.ID); err != nil {
			if errors.Is(err, postgres.ErrCapacityExceeded) {
				outcome = "full"
				res = common.Conflict[*event.Event](fullMessage(e))
				return nil
			}
			return fmt.Errorf("failed to enroll account: %w", err)
		}
		e.AddParticipant(acc.ID, now)

		outcome = "success"
		member = acc
		res = common.Ok(fmt.Sprintf("you are enrolled in %q", e.Title), e)
		return nil
	})
	if err != nil {
		metrics.ObserveEnrollment("enroll", "error")
		return common.Result[*event.Event]{}, err
	}
	metrics.ObserveEnrollment("enroll", outcome)

	if res.Success {
		s.log.Info("Account enrolled", "event_id", eventID, "account_id", accountID, "remaining_seats", res.Payload.RemainingSeats())
		s.notifier.Enrolled(ctx, member, res.Payload)
	}
	return res, nil
}

// Unenroll desinscribe una cuenta de un evento activo
func (s *EventService) Unenroll(ctx context.Context, eventID, accountID uuid.UUID) (common.Result[*event.Event], error) {
	var (
		res     common.Result[*event.Event]
		outcome string
	)

	err := s.store.WithinTransaction(ctx, func(tx postgres.RepositoryContainer) error {
		acc, err := tx.Accounts().GetByID(ctx, accountID)
		if err != nil {
			outcome = "not_found"
			res, err = lookupFailure[*event.Event](err, "account")
			return err
		}

		e, err := tx.Events().GetByIDForUpdate(ctx, eventID)
		if err != nil {
			outcome = "not_found"
			res, err = lookupFailure[*event.Event](err, "event")
			return err
		}

		if !e.IsEnrolled(acc.ID) {
			outcome = "not_enrolled"
			res = common.Conflict[*event.Event]("you are not enrolled in this event")
			return nil
		}

		if err := tx.Events().RemoveParticipant(ctx, e.ID, acc.ID); err != nil {
			return fmt.Errorf("failed to unenroll account: %w", err)
		}
		e.RemoveParticipant(acc.ID)

		outcome = "success"
		res = common.Ok("you are no longer enrolled", e)
		return nil
	})
	if err != nil {
		metrics.ObserveEnrollment("unenroll", "error")
		return common.Result[*event.Event]{}, err
	}
	metrics.ObserveEnrollment("unenroll", outcome)

	if res.Success {
		s.log.Info("Account unenrolled", "event_id", eventID, "account_id", accountID)
	}
	return res, nil
}

func fullMessage(e *event.Event) string {
	return fmt.Sprintf("the event is full (capacity: %d)", e.MaxCapacity)
}
