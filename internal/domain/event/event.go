package event

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/gravadigital/bienestar-api/internal/domain/venue"
)

// Event is a scheduled wellness activity held at a venue
type Event struct {
	ID           uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	Title        string        `json:"title" gorm:"size:200;not null"`
	Description  string        `json:"description" gorm:"type:text;not null"`
	StartAt      time.Time     `json:"start_at" gorm:"not null"`
	EndAt        time.Time     `json:"end_at" gorm:"not null"`
	VenueID      uuid.UUID     `json:"venue_id" gorm:"type:uuid;not null"`
	Venue        *venue.Venue  `json:"venue,omitempty" gorm:"foreignKey:VenueID;constraint:OnDelete:RESTRICT"`
	MaxCapacity  int           `json:"max_capacity" gorm:"not null"`
	Active       bool          `json:"active" gorm:"not null;default:true"`
	CreatedBy    *uuid.UUID    `json:"created_by,omitempty" gorm:"type:uuid"`
	CreatedAt    time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
	Participants []Participant `json:"-" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name used by GORM
func (Event) TableName() string {
	return "events"
}

// BeforeCreate sets a UUID before creating the record
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Participant is one row of the enrollment set. The composite primary key
// makes (event, account) unique at the storage layer.
type Participant struct {
	EventID   uuid.UUID `json:"event_id" gorm:"type:uuid;primaryKey"`
	AccountID uuid.UUID `json:"account_id" gorm:"type:uuid;primaryKey"`
	JoinedAt  time.Time `json:"joined_at" gorm:"autoCreateTime"`
}

// TableName overrides the table name used by GORM
func (Participant) TableName() string {
	return "event_participants"
}

// NewEvent creates an active event with an empty enrollment set
func NewEvent(title, description string, startAt, endAt time.Time, venueID uuid.UUID, maxCapacity int, createdBy *uuid.UUID) *Event {
	return &Event{
		ID:           uuid.New(),
		Title:        title,
		Description:  description,
		StartAt:      startAt,
		EndAt:        endAt,
		VenueID:      venueID,
		MaxCapacity:  maxCapacity,
		Active:       true,
		CreatedBy:    createdBy,
		CreatedAt:    time.Now(),
		Participants: make([]Participant, 0),
	}
}

// EnrolledCount is |enrolled|
func (e *Event) EnrolledCount() int {
	return len(e.Participants)
}

// RemainingSeats is MaxCapacity - |enrolled|
func (e *Event) RemainingSeats() int {
	return e.MaxCapacity - e.EnrolledCount()
}

// IsFull reports |enrolled| >= MaxCapacity
func (e *Event) IsFull() bool {
	return e.EnrolledCount() >= e.MaxCapacity
}

// IsEnrolled checks whether the account is in the enrollment set
func (e *Event) IsEnrolled(accountID uuid.UUID) bool {
	return slices.ContainsFunc(e.Participants, func(p Participant) bool {
		return p.AccountID == accountID
	})
}

// HasStarted reports whether the start time is before now
func (e *Event) HasStarted(now time.Time) bool {
	return e.StartAt.Before(now)
}

// AddParticipant adds the account with set semantics; adding twice is a no-op
func (e *Event) AddParticipant(accountID uuid.UUID, joinedAt time.Time) bool {
	if e.IsEnrolled(accountID) {
		return false
	}
	e.Participants = append(e.Participants, Participant{EventID: e.ID, AccountID: accountID, JoinedAt: joinedAt})
	return true
}

// RemoveParticipant removes the account if present
func (e *Event) RemoveParticipant(accountID uuid.UUID) bool {
	before := len(e.Participants)
	e.Participants = slices.DeleteFunc(e.Participants, func(p Participant) bool {
		return p.AccountID == accountID
	})
	return len(e.Participants) != before
}

// ParticipantIDs lists the enrolled account ids
func (e *Event) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(e.Participants))
	for _, p := range e.Participants {
		ids = append(ids, p.AccountID)
	}
	return ids
}

// View is the presentation shape of an event with its derived occupancy
type View struct {
	ID             uuid.UUID    `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	StartAt        time.Time    `json:"start_at"`
	EndAt          time.Time    `json:"end_at"`
	VenueID        uuid.UUID    `json:"venue_id"`
	Venue          *venue.Venue `json:"venue,omitempty"`
	MaxCapacity    int          `json:"max_capacity"`
	EnrolledCount  int          `json:"enrolled_count"`
	RemainingSeats int          `json:"remaining_seats"`
	IsFull         bool         `json:"is_full"`
	Active         bool         `json:"active"`
	CreatedBy      *uuid.UUID   `json:"created_by,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// View renders the event with derived fields
func (e *Event) View() View {
	return View{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		StartAt:        e.StartAt,
		EndAt:          e.EndAt,
		VenueID:        e.VenueID,
		Venue:          e.Venue,
		MaxCapacity:    e.MaxCapacity,
		EnrolledCount:  e.EnrolledCount(),
		RemainingSeats: e.RemainingSeats(),
		IsFull:         e.IsFull(),
		Active:         e.Active,
		CreatedBy:      e.CreatedBy,
		CreatedAt:      e.CreatedAt,
	}
}

// Views renders a slice of events
func Views(events []*Event) []View {
	out := make([]View, 0, len(events))
	for _, e := range events {
		out = append(out, e.View())
	}
	return out
}
