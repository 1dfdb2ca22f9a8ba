package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gravadigital/bienestar-api/internal/domain/common"
	"github.com/gravadigital/bienestar-api/internal/logger"
)

// Response representa la estructura estándar de respuesta de la API
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ErrorResponse representa una respuesta de error
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    int    `json:"code"`
}

// SuccessResponse envía una respuesta exitosa
func SuccessResponse(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponseWithMessage envía una respuesta de error con mensaje personalizado
func ErrorResponseWithMessage(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{
		Success: false,
		Error:   message,
		Code:    status,
	})
}

// StatusFor mapea el tipo de fallo de un resultado a un código HTTP
func StatusFor(kind common.Kind) int {
	switch kind {
	case common.KindInvalid:
		return http.StatusBadRequest
	case common.KindNotFound:
		return http.StatusNotFound
	case common.KindConflict:
		return http.StatusConflict
	case common.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// Result envía un resultado de servicio. Successful results use okStatus and
// carry data (the payload when data is nil); failures use StatusFor.
func Result[T any](c *gin.Context, okStatus int, res common.Result[T], data any) {
	if !res.Success {
		ErrorResponseWithMessage(c, StatusFor(res.Kind), res.Message)
		return
	}
	if data == nil {
		data = res.Payload
	}
	SuccessResponse(c, okStatus, res.Message, data)
}

// Fault registra un error inesperado y responde 500 sin exponer detalles
func Fault(c *gin.Context, err error) {
	logger.HTTP().Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	InternalServerError(c, "internal server error")
}

// BadRequestError envía un error 400
func BadRequestError(c *gin.Context, message string) {
	ErrorResponseWithMessage(c, http.StatusBadRequest, message)
}

// NotFoundError envía un error 404
func NotFoundError(c *gin.Context, message string) {
	ErrorResponseWithMessage(c, http.StatusNotFound, message)
}

// InternalServerError envía un error 500
func InternalServerError(c *gin.Context, message string) {
	ErrorResponseWithMessage(c, http.StatusInternalServerError, message)
}

// UnauthorizedError envía un error 401
func UnauthorizedError(c *gin.Context, message string) {
	ErrorResponseWithMessage(c, http.StatusUnauthorized, message)
}

// ForbiddenError envía un error 403
func ForbiddenError(c *gin.Context, message string) {
	ErrorResponseWithMessage(c, http.StatusForbidden, message)
}

// TooManyRequestsError envía un error 429
func TooManyRequestsError(c *gin.Context, message string) {
	ErrorResponseWithMessage(c, http.StatusTooManyRequests, message)
}
