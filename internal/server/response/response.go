// Package response writes the API's JSON envelope. Every response is
// {"data": ..., "error": ...} with exactly one of the two set.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/agentstation/sheetreview/pkg/errors"
	"github.com/agentstation/sheetreview/pkg/session"
)

// Response is the envelope of every API response.
type Response struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
}

// Error describes a failed request. Notice is set on edit conflicts so the
// caller can show the remote row next to its draft.
type Error struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details string          `json:"details,omitempty"`
	Notice  *session.Notice `json:"notice,omitempty"`
}

// Success creates a successful response with data.
func Success(data any) Response {
	return Response{Data: data}
}

// Fail creates an error response.
func Fail(code, message, details string) Response {
	return Response{Error: &Error{Code: code, Message: message, Details: details}}
}

// JSON writes resp with the given status code.
func JSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// OK writes a 200 response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, Success(data))
}

// Created writes a 201 response.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, Success(data))
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusBadRequest, Fail("BAD_REQUEST", message, details))
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, message, details string) {
	JSON(w, http.StatusNotFound, Fail("NOT_FOUND", message, details))
}

// MethodNotAllowed writes a 405 error response.
func MethodNotAllowed(w http.ResponseWriter, method string) {
	JSON(w, http.StatusMethodNotAllowed, Fail(
		"METHOD_NOT_ALLOWED",
		"Method not allowed",
		"Method "+method+" is not supported for this endpoint",
	))
}

// InternalError writes a 500 response without exposing err.
func InternalError(w http.ResponseWriter, _ error) {
	JSON(w, http.StatusInternalServerError, Fail(
		"INTERNAL_ERROR",
		"Internal server error",
		"An unexpected error occurred",
	))
}

// ServiceUnavailable writes a 503 error response.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	JSON(w, http.StatusServiceUnavailable, Fail(
		"SERVICE_UNAVAILABLE",
		"Service unavailable",
		message,
	))
}

// Status returns the HTTP status and error code for err.
func Status(err error) (int, string) {
	switch {
	case errors.IsValidationError(err):
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.IsUnauthenticated(err):
		return http.StatusUnauthorized, "UNAUTHENTICATED"
	case errors.IsConflict(err):
		return http.StatusConflict, "CONFLICT"
	case errors.IsStateError(err):
		return http.StatusConflict, "INVALID_STATE"
	case errors.IsNotFound(err):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.IsRateLimited(err):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.IsTransient(err), errors.Is(err, errors.ErrUnavailable), errors.IsTimeout(err):
		return http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// ErrorFromType writes the response for a typed error. Unknown errors
// become a 500 whose message is not exposed.
func ErrorFromType(w http.ResponseWriter, err error) {
	status, code := Status(err)
	if status == http.StatusInternalServerError {
		InternalError(w, err)
		return
	}

	resp := Fail(code, err.Error(), "")
	var conflict *errors.ConflictError
	if errors.As(err, &conflict) {
		if n, ok := conflict.Notice.(session.Notice); ok {
			resp.Error.Notice = &n
		}
	}
	JSON(w, status, resp)
}
