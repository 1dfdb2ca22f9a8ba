package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gravadigital/bienestar-api/internal/domain/common"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
)

// Clock returns the current time; services take one so tests can pin "now"
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

// lookupFailure convierte un error de repositorio en un resultado NotFound,
// o devuelve el error si es un fallo inesperado
func lookupFailure[T any](err error, entity string) (common.Result[T], error) {
	if errors.Is(err, postgres.ErrNotFound) {
		return common.NotFound[T](entity + " not found"), nil
	}
	return common.Result[T]{}, fmt.Errorf("failed to load %s: %w", entity, err)
}

// trimmed devuelve el valor sin espacios si fue provisto
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
