package common

import "github.com/google/uuid"

// Kind classifies a failed business operation
type Kind int

const (
	KindNone Kind = iota
	KindInvalid
	KindNotFound
	KindConflict
	KindForbidden
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Result is the uniform outcome of a business operation. Expected failures
// (validation, missing rows, conflicts) are Results; unexpected store faults
// travel separately as errors.
type Result[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Payload T      `json:"payload,omitempty"`
	Kind    Kind   `json:"-"`
}

// Ok builds a successful result
func Ok[T any](message string, payload T) Result[T] {
	return Result[T]{Success: true, Message: message, Payload: payload}
}

// Fail builds a failed result of the given kind
func Fail[T any](kind Kind, message string) Result[T] {
	return Result[T]{Success: false, Message: message, Kind: kind}
}

// Invalid, NotFound, Conflict and Forbidden are shorthands for Fail
func Invalid[T any](message string) Result[T]   { return Fail[T](KindInvalid, message) }
func NotFound[T any](message string) Result[T]  { return Fail[T](KindNotFound, message) }
func Conflict[T any](message string) Result[T]  { return Fail[T](KindConflict, message) }
func Forbidden[T any](message string) Result[T] { return Fail[T](KindForbidden, message) }

// Actor is the account performing an operation. It is passed explicitly to
// services instead of being read from request state.
type Actor struct {
	ID      uuid.UUID
	IsStaff bool
}

// ActorRef returns a pointer to the actor id, or nil for anonymous callers
func (a *Actor) ActorRef() *uuid.UUID {
	if a == nil || a.ID == uuid.Nil {
		return nil
	}
	id := a.ID
	return &id
}
