// backend/internal/response/response.go
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"lesson-system/internal/apierr"
	"lesson-system/pkg/logger"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func OK(w http.ResponseWriter, payload interface{}) {
	JSON(w, http.StatusOK, payload)
}

// Error writes err as an error envelope. Anything that is not an
// *apierr.Error is reported as a 500 with a generic message.
func Error(w http.ResponseWriter, log *logger.Logger, err error) {
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		apiErr = apierr.New(http.StatusInternalServerError, apierr.CodeInternal, errors.New("internal server error"))
	}
	status := apiErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed", "status", status, "error", err)
	}
	JSON(w, status, ErrorEnvelope{
		Error: APIError{
			Message: apiErr.Error(),
			Code:    apiErr.Code,
		},
	})
}
