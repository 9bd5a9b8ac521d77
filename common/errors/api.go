// Package errors defines the API error taxonomy and its translation to
// HTTP responses.
package errors

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Kind tags an APIError with its failure category.
type Kind int

const (
	// KindValidation marks malformed or insufficient request parameters.
	KindValidation Kind = iota
	// KindUnauthorized marks a missing or invalid credential.
	KindUnauthorized
	// KindNotFound marks an entity the upstream reports as nonexistent.
	KindNotFound
	// KindUpstream marks any other upstream failure: non-2xx status,
	// timeout, network error or malformed response.
	KindUpstream
)

// APIError is the tagged error type handlers translate upstream and
// validation failures into. UpstreamStatus preserves the upstream HTTP
// status when the failure originated there, zero otherwise.
type APIError struct {
	Kind           Kind
	Detail         string
	UpstreamStatus int
	Err            error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *APIError) Unwrap() error { return e.Err }

// HTTPStatus maps the error kind to its response status. The switch is
// exhaustive over Kind.
func (e *APIError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Validation creates a client-error for bad request parameters.
func Validation(detail string) *APIError {
	return &APIError{Kind: KindValidation, Detail: detail}
}

// Unauthorized creates a credential failure error.
func Unauthorized(detail string) *APIError {
	return &APIError{Kind: KindUnauthorized, Detail: detail}
}

// NotFound creates an error for an entity the upstream does not know.
func NotFound(detail string) *APIError {
	return &APIError{Kind: KindNotFound, Detail: detail, UpstreamStatus: http.StatusNotFound}
}

// Upstream wraps any other upstream failure, preserving the upstream
// status code when one was received.
func Upstream(detail string, upstreamStatus int, err error) *APIError {
	return &APIError{Kind: KindUpstream, Detail: detail, UpstreamStatus: upstreamStatus, Err: err}
}

// HandleError writes the JSON error response for err. Errors that are not
// APIErrors are not exposed beyond a generic message.
func HandleError(c *gin.Context, err error) {
	if apiErr, ok := err.(*APIError); ok {
		c.JSON(apiErr.HTTPStatus(), gin.H{"error": apiErr.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
