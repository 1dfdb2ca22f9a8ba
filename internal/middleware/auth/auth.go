// Package auth authenticates API requests with bearer tokens and exposes the
// acting account to handlers
package auth

import (
	"github.com/gin-gonic/gin"

	tokens "github.com/gravadigital/bienestar-api/internal/auth"
	"github.com/gravadigital/bienestar-api/internal/domain/common"
	"github.com/gravadigital/bienestar-api/internal/logger"
	"github.com/gravadigital/bienestar-api/internal/response"
)

const keyActor = "actor"

// RequireToken rejects requests without a valid bearer token and stores the
// actor for the handlers
func RequireToken(tm *tokens.TokenManager) gin.HandlerFunc {
	log := logger.WithContext("component", "middleware", "middleware", "auth")

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.UnauthorizedError(c, "missing authorization header")
			c.Abort()
			return
		}

		raw, err := tokens.ExtractToken(header)
		if err != nil {
			response.UnauthorizedError(c, "invalid authorization header")
			c.Abort()
			return
		}

		claims, err := tm.Parse(raw)
		if err != nil {
			log.Debug("Rejected token", "path", c.Request.URL.Path, "error", err)
			response.UnauthorizedError(c, "invalid or expired token")
			c.Abort()
			return
		}

		actor, err := claims.Actor()
		if err != nil {
			response.UnauthorizedError(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(keyActor, actor)
		c.Next()
	}
}

// RequireStaff must run after RequireToken
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor(c)
		if actor == nil || !actor.IsStaff {
			response.ForbiddenError(c, "staff only")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Actor returns the authenticated actor, or nil
func Actor(c *gin.Context) *common.Actor {
	if v, ok := c.Get(keyActor); ok {
		if actor, ok := v.(*common.Actor); ok {
			return actor
		}
	}
	return nil
}

// SetActor stores an actor on the context, used by tests of downstream handlers
func SetActor(c *gin.Context, actor *common.Actor) {
	c.Set(keyActor, actor)
}
