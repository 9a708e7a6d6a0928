// en pkg/utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Códigos de error propios de la API (los de paginación vienen del motor).
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeInternal   = "INTERNAL_ERROR"
)

// ErrorResponse define la estructura estándar para las respuestas de error.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendError envía una respuesta de error con un formato estandarizado.
func SendError(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{
		"error": ErrorResponse{
			Code:    code,
			Message: message,
		},
	})
}

// --- Helpers específicos para errores comunes ---

func SendBadRequest(c *gin.Context, code, message string) {
	SendError(c, http.StatusBadRequest, code, message)
}

func SendNotFound(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, CodeNotFound, message)
}

func SendInternalServerError(c *gin.Context, message string) {
	SendError(c, http.StatusInternalServerError, CodeInternal, message)
}
