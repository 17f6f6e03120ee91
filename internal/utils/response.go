package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"photoadmit/internal/config"
)

// Pagination mirrors the §6 list-response pagination block.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// NewPagination computes the pagination block for a page/limit/total
// triple.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

// ErrorResponse is the §6/§7 error envelope: {error: true, message, stack?}.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// APIError carries an HTTP status alongside a user-facing message,
// matching the taxonomy of §7: the error handler picks a status from
// StatusCode (default 500) and a message from Message (default
// "Server Error").
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError builds an APIError.
func NewAPIError(statusCode int, message string, err error) *APIError {
	return &APIError{StatusCode: statusCode, Message: message, Err: err}
}

// NotFound builds the §7 "not-found" taxonomy error.
func NotFound(message string) *APIError {
	return &APIError{StatusCode: http.StatusNotFound, Message: message}
}

// InvalidRequest builds the §7 "invalid-request" taxonomy error.
func InvalidRequest(message string) *APIError {
	return &APIError{StatusCode: http.StatusBadRequest, Message: message}
}

// Unavailable builds the §7 "unavailable" taxonomy error.
func Unavailable(message string) *APIError {
	return &APIError{StatusCode: http.StatusServiceUnavailable, Message: message}
}

// SendError writes the taxonomy-mapped error envelope for err. Non-APIError
// values default to 500/"Server Error" per §7's error-handler-layer
// description. The error is attached to the gin context for the access
// log, and only when config.IsDevelopment() is its text (not a stack
// trace) returned in the body's stack field.
func SendError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Server Error"

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
		message = apiErr.Message
	}

	resp := ErrorResponse{Error: true, Message: message}
	if config.IsDevelopment() && err != nil {
		resp.Stack = err.Error()
	}

	c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}
