package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/zoolo/internal/auth"
	"github.com/abrezinsky/zoolo/internal/errors"
	"github.com/abrezinsky/zoolo/internal/models"
)

// Error codes for standardized API error responses
const (
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeConflict       = "CONFLICT"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeWindowClosed   = "WINDOW_CLOSED"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
)

// APIError represents an error with an HTTP status code and error code
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}

// NewAPIError creates a new API error with custom message and code
func NewAPIError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

// BadRequest creates a 400 error with custom message
func BadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Code: ErrCodeBadRequest, Message: message}
}

// Unauthorized creates a 401 error with custom message
func Unauthorized(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Code: ErrCodeUnauthorized, Message: message}
}

// NotFound creates a 404 error with custom message
func NotFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: message}
}

// Conflict creates a 409 error with custom message
func Conflict(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Code: ErrCodeConflict, Message: message}
}

// InternalError creates a 500 error. The cause is logged by respondError,
// never sent to the client.
func InternalError() *APIError {
	return &APIError{Status: http.StatusInternalServerError, Code: ErrCodeInternalServer, Message: "Internal server error"}
}

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondOK writes a 200 OK JSON response
func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, data)
}

// respondCreated writes a 201 Created JSON response
func respondCreated(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusCreated, data)
}

// respondSuccess writes a 200 OK with a message
func respondSuccess(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, map[string]string{"message": message})
}

// respondError writes an error response
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr, ok := err.(*APIError)
	if !ok {
		apiErr = ToAPIError(err)
	}
	if apiErr.Status == http.StatusInternalServerError {
		h.Log.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	respondJSON(w, apiErr.Status, apiErr)
}

// decodeJSON decodes JSON from request body into the target
func decodeJSON(r *http.Request, target interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if err == io.EOF {
			return BadRequest("Request body is empty")
		}
		return BadRequest("Invalid JSON: " + err.Error())
	}
	return nil
}

// parseIDParam extracts and parses an integer URL parameter
func parseIDParam(r *http.Request, name string) (int64, error) {
	param := chi.URLParam(r, name)
	if param == "" {
		return 0, BadRequest("Missing " + name + " parameter")
	}
	id, err := strconv.ParseInt(param, 10, 64)
	if err != nil || id <= 0 {
		return 0, BadRequest("Invalid " + name + " parameter")
	}
	return id, nil
}

// parseIntQuery reads an optional integer query parameter
func parseIntQuery(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, BadRequest("Invalid " + name + " parameter")
	}
	return n, nil
}

// actor returns the caller attached by the auth middleware
func actor(r *http.Request) models.Actor {
	a, _ := auth.ActorFrom(r.Context())
	return a
}

// ToAPIError converts service errors to appropriate API errors
func ToAPIError(err error) *APIError {
	var appErr *errors.Error
	if !stderrors.As(err, &appErr) {
		return InternalError()
	}
	switch appErr.Kind {
	case errors.ErrValidation:
		return &APIError{Status: http.StatusBadRequest, Code: ErrCodeValidation, Message: appErr.Error()}
	case errors.ErrWindowClosed:
		return &APIError{Status: http.StatusConflict, Code: ErrCodeWindowClosed, Message: appErr.Error()}
	case errors.ErrUnauthorized:
		return &APIError{Status: http.StatusForbidden, Code: ErrCodeForbidden, Message: appErr.Error()}
	case errors.ErrConflict:
		return Conflict(appErr.Error())
	case errors.ErrNotFound:
		return NotFound(appErr.Error())
	default:
		return InternalError()
	}
}
