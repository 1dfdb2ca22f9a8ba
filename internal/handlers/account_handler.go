package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gravadigital/bienestar-api/internal/middleware/auth"
	"github.com/gravadigital/bienestar-api/internal/response"
	"github.com/gravadigital/bienestar-api/internal/services"
)

type AccountHandler struct {
	accounts *services.AccountService
}

func NewAccountHandler(accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Me handles GET /api/accounts/me
func (h *AccountHandler) Me(c *gin.Context) {
	actor := auth.Actor(c)
	if actor == nil {
		response.UnauthorizedError(c, "authentication required")
		return
	}

	res, err := h.accounts.GetAccount(c.Request.Context(), actor.ID)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Result(c, http.StatusOK, res, nil)
}

// UpdateMe handles PATCH /api/accounts/me
func (h *AccountHandler) UpdateMe(c *gin.Context) {
	actor := auth.Actor(c)
	if actor == nil {
		response.UnauthorizedError(c, "authentication required")
		return
	}

	var req services.UpdateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.accounts.UpdateAccount(c.Request.Context(), actor, actor.ID, req)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Result(c, http.StatusOK, res, nil)
}

// ListAccounts handles GET /api/accounts?q=&page=&page_size= (staff)
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	res, err := h.accounts.ListAccounts(c.Request.Context(), auth.Actor(c), c.Query("q"), pagination(c))
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Result(c, http.StatusOK, res, nil)
}

// GetAccount handles GET /api/accounts/:id (staff)
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.accounts.GetAccount(c.Request.Context(), id)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Result(c, http.StatusOK, res, nil)
}

// UpdateAccount handles PATCH /api/accounts/:id (staff)
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.accounts.UpdateAccount(c.Request.Context(), auth.Actor(c), id, req)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Result(c, http.StatusOK, res, nil)
}

// DeleteAccount handles DELETE /api/accounts/:id (staff)
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	res, err := h.accounts.DeleteAccount(c.Request.Context(), auth.Actor(c), id)
	if err != nil {
		response.Fault(c, err)
		return
	}
	response.Result(c, http.StatusOK, res, gin.H{"id": id})
}
