package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hairizuanbinnoorazman/pageagent/agent"
	"github.com/hairizuanbinnoorazman/pageagent/apitoken"
	"github.com/hairizuanbinnoorazman/pageagent/automation"
	"github.com/hairizuanbinnoorazman/pageagent/browser"
	"github.com/hairizuanbinnoorazman/pageagent/chat"
	"github.com/hairizuanbinnoorazman/pageagent/conversation"
	"github.com/hairizuanbinnoorazman/pageagent/logger"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100

	// maxBodyBytes bounds JSON request bodies.
	maxBodyBytes = 10 << 20
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// DataResponse wraps a successful payload.
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// SuccessResponse represents a success response with a message.
type SuccessResponse struct {
	Message string `json:"message"`
}

// PaginatedResponse is returned by every list endpoint.
type PaginatedResponse struct {
	Items  interface{} `json:"items"`
	Total  int         `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// NewPaginatedResponse creates a new paginated response.
func NewPaginatedResponse(items interface{}, total, limit, offset int) PaginatedResponse {
	return PaginatedResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// respondData writes payload wrapped in a DataResponse.
func respondData(w http.ResponseWriter, status int, payload interface{}) {
	respondJSON(w, status, DataResponse{Success: true, Data: payload})
}

// respondServiceError maps a domain error to a status code. Messages of
// client errors are passed through; anything else is logged and answered
// with fallback.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string, log logger.Logger) {
	status := statusFor(err)
	if status < http.StatusInternalServerError {
		respondError(w, status, err.Error())
		return
	}
	log.Error(r.Context(), fallback, map[string]interface{}{
		"error": err.Error(),
		"path":  r.URL.Path,
	})
	respondError(w, status, fallback)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, automation.ErrInvalidURL),
		errors.Is(err, automation.ErrUnsupportedAction),
		errors.Is(err, automation.ErrMissingParameter),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrMissingSession),
		errors.Is(err, chat.ErrMissingQuestion),
		errors.Is(err, agent.ErrInvalidAgentName),
		errors.Is(err, agent.ErrInvalidWidgetCode),
		errors.Is(err, agent.ErrInvalidResponseStyle),
		errors.Is(err, apitoken.ErrInvalidTokenName),
		errors.Is(err, apitoken.ErrInvalidScope):
		return http.StatusBadRequest
	case errors.Is(err, agent.ErrAgentNotFound),
		errors.Is(err, automation.ErrScreenshotNotFound),
		errors.Is(err, conversation.ErrConversationNotFound),
		errors.Is(err, apitoken.ErrTokenNotFound):
		return http.StatusNotFound
	case errors.Is(err, agent.ErrDuplicateWidgetCode),
		errors.Is(err, apitoken.ErrMaxTokensReached):
		return http.StatusConflict
	case errors.Is(err, browser.ErrLaunchFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, browser.ErrNavigationFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondSuccess writes a success response with the given message.
func respondSuccess(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, SuccessResponse{Message: message})
}

// parseJSON parses JSON from the request body into the given destination.
func parseJSON(r *http.Request, dest interface{}, log logger.Logger) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dest); err != nil {
		log.Error(r.Context(), "failed to parse JSON", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// parseUUID parses a UUID from the request path parameters.
func parseUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	vars := mux.Vars(r)
	uuidStr := vars[paramName]
	return uuid.Parse(uuidStr)
}

// parseUUIDOrRespond parses a UUID from path parameters and responds with an error if invalid.
// Returns the UUID and true if successful, or uuid.Nil and false if parsing failed (error response already sent).
func parseUUIDOrRespond(w http.ResponseWriter, r *http.Request, paramName, entityName string) (uuid.UUID, bool) {
	id, err := parseUUID(r, paramName)
	if err != nil {
		respondError(w, http.StatusBadRequest,
			fmt.Sprintf("invalid %s ID: must be a valid UUID", entityName))
		return uuid.Nil, false
	}
	return id, true
}

// parsePagination reads limit and offset query parameters.
func parsePagination(r *http.Request) (limit, offset int) {
	limit = defaultPageLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
