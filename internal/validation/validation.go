package validation

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ValidateMinLength valida la longitud mínima de un string, ignorando espacios en los extremos
func ValidateMinLength(value string, minLength int, fieldName string) error {
	if utf8.RuneCountInString(strings.TrimSpace(value)) < minLength {
		return errors.New(fieldName + " must be at least " + strconv.Itoa(minLength) + " characters long")
	}
	return nil
}

// ValidateMaxLength valida la longitud máxima de un string
func ValidateMaxLength(value string, maxLength int, fieldName string) error {
	if utf8.RuneCountInString(value) > maxLength {
		return errors.New(fieldName + " must be at most " + strconv.Itoa(maxLength) + " characters long")
	}
	return nil
}

// ValidateEmail valida formato básico de email
func ValidateEmail(email string) error {
	if !strings.Contains(email, "@") {
		return errors.New("invalid email")
	}
	return nil
}

// ValidateRange checks lo <= value <= hi. NaN never passes.
func ValidateRange(value, lo, hi float64, fieldName string) error {
	if !(value >= lo && value <= hi) {
		return errors.New("invalid " + fieldName + " (" + strconv.FormatFloat(value, 'f', -1, 64) +
			"), must be between " + strconv.FormatFloat(lo, 'f', -1, 64) + " and " + strconv.FormatFloat(hi, 'f', -1, 64))
	}
	return nil
}

// VenueValidation contiene validaciones específicas para lugares
type VenueValidation struct{}

func (v VenueValidation) ValidateName(name string) error {
	return ValidateMinLength(name, 3, "name")
}

func (v VenueValidation) ValidateDescription(description string) error {
	return ValidateMinLength(description, 10, "description")
}

func (v VenueValidation) ValidateAddress(address string) error {
	return ValidateMinLength(address, 5, "address")
}

func (v VenueValidation) ValidateLatitude(lat float64) error {
	return ValidateRange(lat, -90, 90, "latitude")
}

func (v VenueValidation) ValidateLongitude(lon float64) error {
	return ValidateRange(lon, -180, 180, "longitude")
}

// EventValidation contiene validaciones específicas para eventos
type EventValidation struct{}

// ValidateTitle valida el título de un evento
func (v EventValidation) ValidateTitle(title string) error {
	if err := ValidateMinLength(title, 5, "title"); err != nil {
		return err
	}
	return ValidateMaxLength(strings.TrimSpace(title), 200, "title")
}

// ValidateDescription valida la descripción de un evento
func (v EventValidation) ValidateDescription(description string) error {
	return ValidateMinLength(description, 20, "description")
}

// ValidateStart requires the start to be strictly after now
func (v EventValidation) ValidateStart(start, now time.Time) error {
	if !start.After(now) {
		return errors.New("start date must be in the future")
	}
	return nil
}

// ValidateDateRange valida que la fecha de fin sea posterior a la de inicio
func (v EventValidation) ValidateDateRange(start, end time.Time) error {
	if !end.After(start) {
		return errors.New("end date must be after start date")
	}
	return nil
}

// ValidateCapacity valida la capacidad máxima
func (v EventValidation) ValidateCapacity(capacity int) error {
	if capacity < 1 {
		return errors.New("capacity must be at least 1 person")
	}
	return nil
}

// AccountValidation contiene validaciones específicas para cuentas
type AccountValidation struct{}

func (v AccountValidation) ValidateUsername(username string) error {
	if err := ValidateMinLength(username, 3, "username"); err != nil {
		return err
	}
	return ValidateMaxLength(strings.TrimSpace(username), 150, "username")
}

func (v AccountValidation) ValidateEmail(email string) error {
	return ValidateEmail(email)
}

// ValidatePassword checks the confirmation first, then the length
func (v AccountValidation) ValidatePassword(password, confirmation string) error {
	if password != confirmation {
		return errors.New("passwords do not match")
	}
	if utf8.RuneCountInString(password) < 6 {
		return errors.New("password must be at least 6 characters long")
	}
	// bcrypt only hashes the first 72 bytes
	if len(password) > 72 {
		return errors.New("password must be at most 72 bytes")
	}
	return nil
}

func (v AccountValidation) ValidatePhone(phone string) error {
	return ValidateMaxLength(phone, 15, "phone")
}
