package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	tokens "github.com/gravadigital/bienestar-api/internal/auth"
	"github.com/gravadigital/bienestar-api/internal/domain/account"
	"github.com/gravadigital/bienestar-api/internal/response"
	"github.com/gravadigital/bienestar-api/internal/services"
)

type AuthHandler struct {
	accounts *services.AccountService
	tokens   *tokens.TokenManager
}

func NewAuthHandler(accounts *services.AccountService, tm *tokens.TokenManager) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tm}
}

// LoginRequest representa las credenciales de acceso
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register handles POST /api/auth/register. The new account is signed in
// right away.
func (h *AuthHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.accounts.Register(c.Request.Context(), req)
	if err != nil {
		response.Fault(c, err)
		return
	}
	if !res.Success {
		response.Result(c, http.StatusCreated, res, nil)
		return
	}

	h.issue(c, http.StatusCreated, res.Message, res.Payload)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Fault(c, err)
		return
	}
	if !res.Success {
		response.UnauthorizedError(c, res.Message)
		return
	}

	h.issue(c, http.StatusOK, "login successful", res.Payload)
}

func (h *AuthHandler) issue(c *gin.Context, status int, message string, acc *account.Account) {
	token, err := h.tokens.Generate(acc)
	if err != nil {
		response.Fault(c, err)
		return
	}

	response.SuccessResponse(c, status, message, gin.H{
		"token":      token,
		"token_type": "Bearer",
		"expires_in": int(h.tokens.TTL().Seconds()),
		"account":    acc,
	})
}
