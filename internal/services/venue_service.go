package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/bienestar-api/internal/cache"
	"github.com/gravadigital/bienestar-api/internal/domain/common"
	"github.com/gravadigital/bienestar-api/internal/domain/venue"
	"github.com/gravadigital/bienestar-api/internal/geo"
	"github.com/gravadigital/bienestar-api/internal/logger"
	"github.com/gravadigital/bienestar-api/internal/metrics"
	"github.com/gravadigital/bienestar-api/internal/objectstore"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
	"github.com/gravadigital/bienestar-api/internal/validation"
)

// MinSearchLength is the shortest trimmed query that filters listings
const MinSearchLength = 2

// VenueService maneja la lógica de negocio de lugares
type VenueService struct {
	store     postgres.RepositoryContainer
	nearby    cache.NearbyCache
	photos    objectstore.PhotoStore
	validator validation.VenueValidation
	log       *log.Logger
}

// NewVenueService crea una nueva instancia del servicio de lugares
func NewVenueService(store postgres.RepositoryContainer, nearby cache.NearbyCache, photos objectstore.PhotoStore) *VenueService {
	if nearby == nil {
		nearby = cache.Noop{}
	}
	if photos == nil {
		photos = objectstore.Disabled{}
	}
	return &VenueService{
		store:     store,
		nearby:    nearby,
		photos:    photos,
		validator: validation.VenueValidation{},
		log:       logger.Service("venue"),
	}
}

// CreateVenueRequest representa una solicitud para crear un lugar
type CreateVenueRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description" binding:"required"`
	Address     string  `json:"address" binding:"required"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	MapURL      string  `json:"map_url"`
}

// UpdateVenueRequest representa una actualización parcial; los campos nil no se tocan
type UpdateVenueRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Address     *string  `json:"address"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	MapURL      *string  `json:"map_url"`
}

// VenueStats resume los lugares activos
type VenueStats struct {
	TotalVenues  int64 `json:"total_venues"`
	CreatedByYou int64 `json:"created_by_you"`
}

// CreateVenue crea un nuevo lugar
func (s *VenueService) CreateVenue(ctx context.Context, req CreateVenueRequest, actor *common.Actor) (common.Result[*venue.Venue], error) {
	// Validaciones, en orden
	if err := s.validateCreate(req); err != nil {
		return common.Invalid[*venue.Venue](err.Error()), nil
	}

	v := venue.NewVenue(
		strings.TrimSpace(req.Name),
		strings.TrimSpace(req.Description),
		strings.TrimSpace(req.Address),
		req.Latitude,
		req.Longitude,
		strings.TrimSpace(req.MapURL),
		actor.ActorRef(),
	)

	if err := s.store.Venues().Create(ctx, v); err != nil {
		return common.Result[*venue.Venue]{}, fmt.Errorf("failed to create venue: %w", err)
	}
	s.nearby.Invalidate(ctx)

	s.log.Info("Venue created", "venue_id", v.ID, "name", v.Name)
	return common.Ok(fmt.Sprintf("venue %q created", v.Name), v), nil
}

func (s *VenueService) validateCreate(req CreateVenueRequest) error {
	if err := s.validator.ValidateName(req.Name); err != nil {
		return err
	}
	if err := s.validator.ValidateDescription(req.Description); err != nil {
		return err
	}
	if err := s.validator.ValidateAddress(req.Address); err != nil {
		return err
	}
	if err := s.validator.ValidateLatitude(req.Latitude); err != nil {
		return err
	}
	return s.validator.ValidateLongitude(req.Longitude)
}

// GetVenue obtiene un lugar activo por su ID
func (s *VenueService) GetVenue(ctx context.Context, id uuid.UUID) (common.Result[*venue.Venue], error) {
	v, err := s.store.Venues().GetByID(ctx, id)
	if err != nil {
		return lookupFailure[*venue.Venue](err, "venue")
	}
	return common.Ok("venue found", v), nil
}

// ListVenues lista los lugares activos, más recientes primero. Queries
// shorter than MinSearchLength runes list everything.
func (s *VenueService) ListVenues(ctx context.Context, query string, params postgres.PaginationParams) (postgres.Page[*venue.Venue], error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSearchLength {
		query = ""
	}

	page, err := s.store.Venues().List(ctx, query, params)
	if err != nil {
		return postgres.Page[*venue.Venue]{}, fmt.Errorf("failed to list venues: %w", err)
	}
	return page, nil
}

// FindNearby returns the active venues within radiusKm of the point, closest
// first. Out-of-range coordinates yield an empty result.
func (s *VenueService) FindNearby(ctx context.Context, lat, lon, radiusKm float64) ([]geo.Nearby, error) {
	if !venue.ValidLatitude(lat) || !venue.ValidLongitude(lon) {
		return make([]geo.Nearby, 0), nil
	}

	cached, gen, ok := s.nearby.Get(ctx, lat, lon, radiusKm)
	if ok {
		metrics.ObserveNearby(true, len(cached))
		return cached, nil
	}

	venues, err := s.store.Venues().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}

	results := geo.FindNearby(lat, lon, radiusKm, venues)
	s.nearby.Set(ctx, gen, lat, lon, radiusKm, results)
	metrics.ObserveNearby(false, len(results))

	logger.Geo().Debug("Nearby search", "lat", lat, "lon", lon, "radius_km", radiusKm, "scanned", len(venues), "found", len(results))
	return results, nil
}

// UpdateVenue aplica una actualización parcial. Each supplied field passes the
// creation rule. A map link derived from the old coordinate follows the new one.
func (s *VenueService) UpdateVenue(ctx context.Context, id uuid.UUID, req UpdateVenueRequest) (common.Result[*venue.Venue], error) {
	var res common.Result[*venue.Venue]

	err := s.store.WithinTransaction(ctx, func(tx postgres.RepositoryContainer) error {
		v, err := tx.Venues().GetByIDForUpdate(ctx, id)
		if err != nil {
			res, err = lookupFailure[*venue.Venue](err, "venue")
			return err
		}

		if err := s.validateUpdate(req); err != nil {
			res = common.Invalid[*venue.Venue](err.Error())
			return nil
		}

		derived := v.HasDerivedMapURL()

		if req.Name != nil {
			v.Name = *trimmed(req.Name)
		}
		if req.Description != nil {
			v.Description = *trimmed(req.Description)
		}
		if req.Address != nil {
			v.Address = *trimmed(req.Address)
		}
		if req.Latitude != nil {
			v.Latitude = *req.Latitude
		}
		if req.Longitude != nil {
			v.Longitude = *req.Longitude
		}

		switch {
		case req.MapURL != nil && strings.TrimSpace(*req.MapURL) != "":
			v.MapURL = strings.TrimSpace(*req.MapURL)
		case req.MapURL != nil || derived:
			v.MapURL = venue.DeriveMapURL(v.Latitude, v.Longitude)
		}

		if err := tx.Venues().Update(ctx, v); err != nil {
			return fmt.Errorf("failed to update venue: %w", err)
		}
		res = common.Ok("venue updated", v)
		return nil
	})
	if err != nil {
		return common.Result[*venue.Venue]{}, err
	}

	if res.Success {
		s.nearby.Invalidate(ctx)
		s.log.Info("Venue updated", "venue_id", id)
	}
	return res, nil
}

func (s *VenueService) validateUpdate(req UpdateVenueRequest) error {
	if req.Name != nil {
		if err := s.validator.ValidateName(*req.Name); err != nil {
			return err
		}
	}
	if req.Description != nil {
		if err := s.validator.ValidateDescription(*req.Description); err != nil {
			return err
		}
	}
	if req.Address != nil {
		if err := s.validator.ValidateAddress(*req.Address); err != nil {
			return err
		}
	}
	if req.Latitude != nil {
		if err := s.validator.ValidateLatitude(*req.Latitude); err != nil {
			return err
		}
	}
	if req.Longitude != nil {
		if err := s.validator.ValidateLongitude(*req.Longitude); err != nil {
			return err
		}
	}
	return nil
}

// DeleteVenue desactiva el lugar, o lo elimina si permanent es true.
// A permanent delete is refused while events still reference the venue.
func (s *VenueService) DeleteVenue(ctx context.Context, id uuid.UUID, permanent bool) (common.Result[struct{}], error) {
	if !permanent {
		if err := s.store.Venues().SoftDelete(ctx, id); err != nil {
			return lookupFailure[struct{}](err, "venue")
		}
		s.nearby.Invalidate(ctx)
		s.log.Info("Venue deactivated", "venue_id", id)
		return common.Ok("venue deactivated", struct{}{}), nil
	}

	n, err := s.store.Events().CountByVenue(ctx, id)
	if err != nil {
		return common.Result[struct{}]{}, fmt.Errorf("failed to count venue events: %w", err)
	}
	if n > 0 {
		return common.Conflict[struct{}](fmt.Sprintf("venue still hosts %d events, delete them first", n)), nil
	}

	if err := s.store.Venues().HardDelete(ctx, id); err != nil {
		if errors.Is(err, postgres.ErrReferenced) {
			return common.Conflict[struct{}]("venue still hosts events, delete them first"), nil
		}
		return lookupFailure[struct{}](err, "venue")
	}
	s.nearby.Invalidate(ctx)

	s.log.Info("Venue deleted permanently", "venue_id", id)
	return common.Ok("venue deleted permanently", struct{}{}), nil
}

// Stats cuenta los lugares activos y los creados por el actor
func (s *VenueService) Stats(ctx context.Context, actor *common.Actor) (VenueStats, error) {
	total, err := s.store.Venues().CountActive(ctx)
	if err != nil {
		return VenueStats{}, fmt.Errorf("failed to count venues: %w", err)
	}

	stats := VenueStats{TotalVenues: total}
	if ref := actor.ActorRef(); ref != nil {
		mine, err := s.store.Venues().CountActiveByCreator(ctx, *ref)
		if err != nil {
			return VenueStats{}, fmt.Errorf("failed to count venues by creator: %w", err)
		}
		stats.CreatedByYou = mine
	}
	return stats, nil
}

// SetPhoto sube la foto de portada y guarda su clave en el lugar
func (s *VenueService) SetPhoto(ctx context.Context, id uuid.UUID, r io.Reader, size int64, contentType string) (common.Result[*venue.Venue], error) {
	v, err := s.store.Venues().GetByID(ctx, id)
	if err != nil {
		return lookupFailure[*venue.Venue](err, "venue")
	}

	if size > objectstore.MaxPhotoSize {
		return common.Invalid[*venue.Venue]("photo exceeds the 5MB limit"), nil
	}
	key, err := objectstore.PhotoKey(v.ID, contentType)
	if err != nil {
		return common.Invalid[*venue.Venue]("photo must be a JPEG, PNG or WebP image"), nil
	}

	if err := s.photos.Put(ctx, key, r, size, contentType); err != nil {
		return common.Result[*venue.Venue]{}, fmt.Errorf("failed to store photo: %w", err)
	}

	previous := v.PhotoKey
	v.PhotoKey = key
	if err := s.store.Venues().Update(ctx, v); err != nil {
		_ = s.photos.Remove(ctx, key)
		return common.Result[*venue.Venue]{}, fmt.Errorf("failed to save photo key: %w", err)
	}

	if previous != "" {
		if err := s.photos.Remove(ctx, previous); err != nil {
			s.log.Warn("Failed to remove previous photo", "venue_id", v.ID, "key", previous, "error", err)
		}
	}
	s.nearby.Invalidate(ctx)

	s.log.Info("Venue photo updated", "venue_id", v.ID, "key", key)
	return common.Ok("photo uploaded", v), nil
}

// PhotoURL devuelve un enlace temporal a la foto de portada
func (s *VenueService) PhotoURL(ctx context.Context, id uuid.UUID) (common.Result[string], error) {
	v, err := s.store.Venues().GetByID(ctx, id)
	if err != nil {
		return lookupFailure[string](err, "venue")
	}
	if v.PhotoKey == "" {
		return common.NotFound[string]("venue has no photo"), nil
	}

	url, err := s.photos.URL(ctx, v.PhotoKey)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return common.NotFound[string]("venue has no photo"), nil
		}
		return common.Result[string]{}, fmt.Errorf("failed to sign photo url: %w", err)
	}
	return common.Ok("photo found", url), nil
}
