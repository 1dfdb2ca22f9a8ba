package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gravadigital/bienestar-api/internal/middleware/auth"
	"github.com/gravadigital/bienestar-api/internal/objectstore"
	"github.com/gravadigital/bienestar-api/internal/response"
	"github.com/gravadigital/bienestar-api/internal/services"
)

// Defaults of the proximity search when the query omits them
const (
	DefaultLatitude  = -9.3
	DefaultLongitude = -75.9
	DefaultRadiusKm  = 5.0
)

type VenueHandler struct {
	venues *services.VenueService
}

func NewVenueHandler(venues *services.VenueService) *VenueHandler {
	return &VenueHandler{venues: venues}
}

// ListVenues handles GET /api/venues?q=&page=&page_size=
func (h *VenueHandler) ListVenues(c *gin.Context) {
	page, err := h.venues.ListVenues(c.Request.Context(), c.Query("q"), pagination(c))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", page)
}

// NearbyVenues handles GET /api/venues/nearby?lat=&lon=&radius=
func (h *VenueHandler) NearbyVenues(c *gin.Context) {
	lat, okLat := floatQuery(c, "lat", DefaultLatitude)
	lon, okLon := floatQuery(c, "lon", DefaultLongitude)
	radius, okRadius := floatQuery(c, "radius", DefaultRadiusKm)
	if !okLat || !okLon || !okRadius {
		response.BadRequestError(c, "lat, lon and radius must be numbers")
		return
	}

	results, err := h.venues.FindNearby(c.Request.Context(), lat, lon, radius)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", gin.H{
		"latitude":  lat,
		"longitude": lon,
		"radius_km": radius,
		"count":     len(results),
		"results":   results,
	})
}

// VenueStats handles GET /api/venues/stats
func (h *VenueHandler) VenueStats(c *gin.Context) {
	stats, err := h.venues.Stats(c.Request.Context(), auth.Actor(c))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", stats)
}

// GetVenue handles GET /api/venues/:id
func (h *VenueHandler) GetVenue(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.venues.GetVenue(c.Request.Context(), id)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Result(c, http.StatusOK, res, nil)
}

// CreateVenue handles POST /api/venues
func (h *VenueHandler) CreateVenue(c *gin.Context) {
	var req services.CreateVenueRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.venues.CreateVenue(c.Request.Context(), req, auth.Actor(c))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Result(c, http.StatusCreated, res, nil)
}

// UpdateVenue handles PATCH /api/venues/:id
func (h *VenueHandler) UpdateVenue(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateVenueRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.venues.UpdateVenue(c.Request.Context(), id, req)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Result(c, http.StatusOK, res, nil)
}

// DeleteVenue handles DELETE /api/venues/:id (soft delete)
func (h *VenueHandler) DeleteVenue(c *gin.Context) {
	h.deleteVenue(c, false)
}

// DeleteVenuePermanently handles DELETE /api/venues/:id/permanent
func (h *VenueHandler) DeleteVenuePermanently(c *gin.Context) {
	h.deleteVenue(c, true)
}

func (h *VenueHandler) deleteVenue(c *gin.Context, permanent bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.venues.DeleteVenue(c.Request.Context(), id, permanent)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Result(c, http.StatusOK, res, gin.H{"id": id})
}

// UploadPhoto handles PUT /api/venues/:id/photo (multipart field "photo")
func (h *VenueHandler) UploadPhoto(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("photo")
	if err != nil {
		response.BadRequestError(c, "no photo provided")
		return
	}
	defer file.Close()

	if header.Size > objectstore.MaxPhotoSize {
		response.BadRequestError(c, "photo exceeds the 5MB limit")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !objectstore.AllowedContentType(contentType) {
		response.BadRequestError(c, "photo must be a JPEG, PNG or WebP image")
		return
	}

	res, err := h.venues.SetPhoto(c.Request.Context(), id, file, header.Size, contentType)
	if err != nil {
		if errors.Is(err, objectstore.ErrDisabled) {
			response.ErrorResponseWithMessage(c, http.StatusServiceUnavailable, "photo storage is not available")
			return
		}
		response.Fault(c, err)
		return
	}
	response.Result(c, http.StatusOK, res, nil)
}

// GetPhoto handles GET /api/venues/:id/photo by redirecting to a signed URL
func (h *VenueHandler) GetPhoto(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.venues.PhotoURL(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, objectstore.ErrDisabled) {
			response.ErrorResponseWithMessage(c, http.StatusServiceUnavailable, "photo storage is not available")
			return
		}
		response.Fault(c, err)
		return
	}
	if !res.Success {
		response.Result(c, http.StatusOK, res, nil)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, res.Payload)
}
