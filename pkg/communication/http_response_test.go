package communication

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/opsboard/opsboard-backend/pkg/logger"
	"github.com/pkg/errors"
)

func TestResponseManager_RespondWithDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", NewValidationError("durationMinutes", "must be positive"), http.StatusBadRequest, CodeValidation},
		{"conflict", &ConflictError{TaskID: "t", SlotID: "s", ScheduleID: "e"}, http.StatusConflict, CodeConflict},
		{"wrapped conflict", errors.Wrap(&ConflictError{TaskID: "t"}, "approve"), http.StatusConflict, CodeConflict},
		{"not found", &NotFoundError{Resource: "task", ID: "x"}, http.StatusNotFound, CodeNotFound},
		{"state", &StateError{Message: "already approved"}, http.StatusConflict, CodeAlreadyResolved},
		{"internal", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	manager := ResponseManager{Logger: logger.Logger{}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			manager.RespondWithDomainError(recorder, "failed", tt.err)

			if recorder.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", recorder.Code, tt.wantStatus)
			}

			body := struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}{}
			err := json.Unmarshal(recorder.Body.Bytes(), &body)
			if err != nil {
				t.Fatal(err)
			}

			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", body.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestResponseManager_ConflictDetails(t *testing.T) {
	manager := ResponseManager{Logger: logger.Logger{}}
	recorder := httptest.NewRecorder()

	manager.RespondWithDomainError(recorder, "failed", &ConflictError{ScheduleID: "e1", TaskID: "t1", SlotID: "s1"})

	body := struct {
		Error map[string]interface{} `json:"error"`
	}{}
	err := json.Unmarshal(recorder.Body.Bytes(), &body)
	if err != nil {
		t.Fatal(err)
	}

	if body.Error["taskId"] != "t1" || body.Error["slotId"] != "s1" || body.Error["scheduleId"] != "e1" {
		t.Errorf("conflict details missing: %v", body.Error)
	}
}
