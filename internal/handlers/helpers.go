package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/tento/internal/models"
)

// RequireMethod validates the HTTP method and writes 405 otherwise.
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// errorBody is the wire shape of every error response.
type errorBody struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// WriteError maps an error to its status code and structured payload.
// Schema violations from the validator return 422; classified service
// errors use their own mapping; anything else is a 500.
func WriteError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		_ = WriteJSON(w, http.StatusUnprocessableEntity, errorBody{
			Kind:   "validation_error",
			Detail: validationErrs.Error(),
		})
		return
	}

	var serviceErr *models.ServiceError
	if errors.As(err, &serviceErr) {
		_ = WriteJSON(w, serviceErr.HTTPStatus(), errorBody{
			Kind:   string(serviceErr.Kind),
			Detail: serviceErr.Detail,
		})
		return
	}

	_ = WriteJSON(w, http.StatusInternalServerError, errorBody{
		Kind:   string(models.KindOf(err)),
		Detail: err.Error(),
	})
}

// DecodeJSON parses a request body into dst, rejecting malformed JSON.
func DecodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.NewInvalidInput("invalid request body: %v", err)
	}
	return nil
}

// GetPaginationParams extracts limit/offset query parameters. Zero
// limit means caller default; negatives are clamped.
func GetPaginationParams(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			offset = parsed
		}
	}
	return limit, offset
}
