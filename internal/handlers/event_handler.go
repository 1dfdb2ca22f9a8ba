package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gravadigital/bienestar-api/internal/domain/common"
	"github.com/gravadigital/bienestar-api/internal/domain/event"
	"github.com/gravadigital/bienestar-api/internal/middleware/auth"
	"github.com/gravadigital/bienestar-api/internal/response"
	"github.com/gravadigital/bienestar-api/internal/services"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
)

type EventHandler struct {
	events *services.EventService
}

func NewEventHandler(events *services.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// viewPage renders a page of events with their derived occupancy
func viewPage(page postgres.Page[*event.Event]) postgres.Page[event.View] {
	return postgres.Page[event.View]{
		Items:      event.Views(page.Items),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}
}

// eventResult writes a service result, rendering the event as a View on success
func eventResult(c *gin.Context, okStatus int, res common.Result[*event.Event]) {
	if !res.Success {
		response.Result(c, okStatus, res, nil)
		return
	}
	response.Result(c, okStatus, res, res.Payload.View())
}

// ListEvents handles GET /api/events?q=&filter=all|upcoming|available&page=&page_size=
func (h *EventHandler) ListEvents(c *gin.Context) {
	filter := services.ParseListFilter(c.Query("filter"))

	page, err := h.events.ListEvents(c.Request.Context(), filter, c.Query("q"), pagination(c))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", viewPage(page))
}

// MyEvents handles GET /api/events/mine
func (h *EventHandler) MyEvents(c *gin.Context) {
	page, err := h.events.MyEvents(c.Request.Context(), auth.Actor(c), pagination(c))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.SuccessResponse(c, http.StatusOK, "", viewPage(page))
}

// GetEvent handles GET /api/events/:id
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.events.GetEvent(c.Request.Context(), id)
	if err != nil {
		response.Fault(c, err)
		return
	}
	if !res.Success {
		response.Result(c, http.StatusOK, res, nil)
		return
	}

	actor := auth.Actor(c)
	response.SuccessResponse(c, http.StatusOK, res.Message, gin.H{
		"event":    res.Payload.View(),
		"enrolled": actor != nil && res.Payload.IsEnrolled(actor.ID),
	})
}

// GetParticipants handles GET /api/events/:id/participants
func (h *EventHandler) GetParticipants(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.events.Participants(c.Request.Context(), id)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Result(c, http.StatusOK, res, nil)
}

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req services.CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.events.CreateEvent(c.Request.Context(), req, auth.Actor(c))
	if err != nil {
		response.Fault(c, err)
		return
	}
	eventResult(c, http.StatusCreated, res)
}

// UpdateEvent handles PATCH /api/events/:id
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateEventRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.events.UpdateEvent(c.Request.Context(), id, req)
	if err != nil {
		response.Fault(c, err)
		return
	}
	eventResult(c, http.StatusOK, res)
}

// DeleteEvent handles DELETE /api/events/:id (soft delete)
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	h.deleteEvent(c, false)
}

// DeleteEventPermanently handles DELETE /api/events/:id/permanent
func (h *EventHandler) DeleteEventPermanently(c *gin.Context) {
	h.deleteEvent(c, true)
}

func (h *EventHandler) deleteEvent(c *gin.Context, permanent bool) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.events.DeleteEvent(c.Request.Context(), id, permanent)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Result(c, http.StatusOK, res, gin.H{"id": id})
}

// Enroll handles POST /api/events/:id/enrollment
func (h *EventHandler) Enroll(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor := auth.Actor(c)
	if actor == nil {
		response.UnauthorizedError(c, "authentication required")
		return
	}

	res, err := h.events.Enroll(c.Request.Context(), id, actor.ID)
	if err != nil {
		response.Fault(c, err)
		return
	}
	eventResult(c, http.StatusOK, res)
}

// Unenroll handles DELETE /api/events/:id/enrollment
func (h *EventHandler) Unenroll(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor := auth.Actor(c)
	if actor == nil {
		response.UnauthorizedError(c, "authentication required")
		return
	}

	res, err := h.events.Unenroll(c.Request.Context(), id, actor.ID)
	if err != nil {
		response.Fault(c, err)
		return
	}
	eventResult(c, http.StatusOK, res)
}
