package communication

import (
	"encoding/json"
	"net/http"

	"github.com/opsboard/opsboard-backend/pkg/logger"
	"github.com/pkg/errors"
)

const (
	// CodeValidation marks a request with a bad field
	CodeValidation = "validation_failed"
	// CodeConflict marks an overlapping booking
	CodeConflict = "schedule_conflict"
	// CodeNotFound marks a missing resource
	CodeNotFound = "not_found"
	// CodeAlreadyResolved marks an operation on an already resolved resource
	CodeAlreadyResolved = "already_resolved"
	// CodeInternal marks everything else
	CodeInternal = "internal"
)

// ResponseManager handles errors that have to be returned to the user
type ResponseManager struct {
	Logger logger.Interface
}

// RespondWithError takes several arguments to return an error to the user and logs the error as well
func (r *ResponseManager) RespondWithError(writer http.ResponseWriter, status int, message string, err error) {
	r.respondWithError(writer, status, CodeForStatus(status), message, err, nil)
}

// RespondWithDomainError picks the status from the kind of err and falls back to a 500
func (r *ResponseManager) RespondWithDomainError(writer http.ResponseWriter, message string, err error) {
	var validationError *ValidationError
	var conflictError *ConflictError
	var notFoundError *NotFoundError
	var stateError *StateError

	switch {
	case errors.As(err, &validationError):
		r.respondWithError(writer, http.StatusBadRequest, CodeValidation, validationError.Error(), err,
			map[string]interface{}{"field": validationError.Field})
	case errors.As(err, &conflictError):
		r.respondWithError(writer, http.StatusConflict, CodeConflict, conflictError.Error(), err,
			map[string]interface{}{
				"scheduleId": conflictError.ScheduleID,
				"taskId":     conflictError.TaskID,
				"slotId":     conflictError.SlotID,
			})
	case errors.As(err, &notFoundError):
		r.respondWithError(writer, http.StatusNotFound, CodeNotFound, notFoundError.Error(), err,
			map[string]interface{}{"resource": notFoundError.Resource, "id": notFoundError.ID})
	case errors.As(err, &stateError):
		r.respondWithError(writer, http.StatusConflict, CodeAlreadyResolved, stateError.Error(), err, nil)
	default:
		r.respondWithError(writer, http.StatusInternalServerError, CodeInternal, message, err, nil)
	}
}

func (r *ResponseManager) respondWithError(writer http.ResponseWriter, status int, code string, message string,
	err error, details map[string]interface{}) {
	if status >= 500 {
		r.Logger.Error(message, err)
	}

	errorBody := map[string]interface{}{
		"message": message,
		"code":    code,
	}

	for key, value := range details {
		errorBody[key] = value
	}

	var response = map[string]interface{}{
		"status": status,
		"error":  errorBody,
	}

	if err != nil && status < 500 {
		response["err"] = err.Error()
	}

	binary, err := json.Marshal(response)
	if err != nil {
		r.Logger.Error("Problem while marshalling error response", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}

	writer.WriteHeader(status)
	_, err = writer.Write(binary)
	if err != nil {
		r.Logger.Error("Problem writing error response", err)
	}
}

// CodeForStatus maps an HTTP status to an error code
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusConflict:
		return CodeConflict
	case http.StatusNotFound:
		return CodeNotFound
	default:
		return CodeInternal
	}
}

// Respond takes an object and turns it into json and responds with it and a 200 HTTP status
func (r *ResponseManager) Respond(writer http.ResponseWriter, i interface{}) {
	r.RespondWithStatus(writer, i, http.StatusOK)
}

// RespondWithStatus responds with a specific status code
func (r *ResponseManager) RespondWithStatus(writer http.ResponseWriter, i interface{}, status int) {
	binary, err := json.Marshal(i)
	if err != nil {
		r.RespondWithError(writer, http.StatusInternalServerError,
			"Problem while marshalling response into json", err)
		return
	}

	writer.WriteHeader(status)
	_, err = writer.Write(binary)
	if err != nil {
		r.Logger.Error("Problem writing response", err)
		return
	}
}

// RespondWithNoContent sends a no content status code
func (r *ResponseManager) RespondWithNoContent(writer http.ResponseWriter) {
	writer.WriteHeader(http.StatusNoContent)
}
