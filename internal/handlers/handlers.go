package handlers

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gravadigital/bienestar-api/internal/response"
	"github.com/gravadigital/bienestar-api/internal/storage/postgres"
)

// paramID parses a UUID path parameter, answering 400 when it is malformed
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequestError(c, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads ?page= and ?page_size=; bad values fall back to defaults
func pagination(c *gin.Context) postgres.PaginationParams {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	return postgres.PaginationParams{Page: page, PageSize: size}.Normalize()
}

// floatQuery reads a float query parameter with a default. The second
// return is false when the value is present but not a number.
func floatQuery(c *gin.Context, name string, def float64) (float64, bool) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// bindJSON binds the body and answers 400 on failure
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.BadRequestError(c, "invalid request payload: "+err.Error())
		return false
	}
	return true
}
