package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Pagination metadata returned with filtered list responses.
type Pagination struct {
	Total       int  `json:"total"`
	CurrentPage int  `json:"current_page"`
	TotalPage   int  `json:"total_page"`
	Size        int  `json:"size"`
	HasNextPage bool `json:"has_next_page"`
}

// OK sends a 200 response.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, errMsg string) {
	abortError(c, http.StatusBadRequest, errMsg, "")
}

// Unauthorized sends a 401 error response.
func Unauthorized(c *gin.Context) {
	abortError(c, http.StatusUnauthorized, "Unauthorized", "")
}

// Forbidden sends a 403 error response.
func Forbidden(c *gin.Context, errMsg string) {
	abortError(c, http.StatusForbidden, errMsg, "")
}

// NotFound sends a 404 error response.
func NotFound(c *gin.Context, errMsg string) {
	abortError(c, http.StatusNotFound, errMsg, "")
}

// Conflict sends a 409 error response.
func Conflict(c *gin.Context, errMsg string) {
	abortError(c, http.StatusConflict, errMsg, "")
}

// MethodNotAllowed sends a 405 error response.
func MethodNotAllowed(c *gin.Context) {
	abortError(c, http.StatusMethodNotAllowed, "Method not allowed", "")
}

// InternalError sends a 500 error response with a short error label and the
// underlying detail in message.
func InternalError(c *gin.Context, errMsg string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	abortError(c, http.StatusInternalServerError, errMsg, detail)
}

func abortError(c *gin.Context, status int, errMsg, message string) {
	body := gin.H{"error": errMsg}
	if message != "" {
		body["message"] = message
	}
	c.AbortWithStatusJSON(status, body)
}
