package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/opsboard/opsboard-backend/pkg/communication"
	"github.com/opsboard/opsboard-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newTestRouter() (*mux.Router, *SchedulingService) {
	service, taskRepository, _ := newTestService()
	handler := Handler{
		Service:         service,
		TaskRepository:  taskRepository,
		Logger:          logger.Logger{},
		ResponseManager: &communication.ResponseManager{Logger: logger.Logger{}},
	}

	router := mux.NewRouter()
	router.HandleFunc("/v1/tasks", handler.TaskAdd).Methods(http.MethodPost)
	router.HandleFunc("/v1/tasks", handler.GetAllTasks).Methods(http.MethodGet)
	router.HandleFunc("/v1/tasks/{taskID}", handler.TaskGet).Methods(http.MethodGet)
	router.HandleFunc("/v1/tasks/{taskID}", handler.TaskDelete).Methods(http.MethodDelete)
	router.HandleFunc("/v1/tasks/{taskID}/slots/{slotID}", handler.SlotUpdate).Methods(http.MethodPatch)
	router.HandleFunc("/v1/tasks/{taskID}/schedule/sync", handler.ScheduleSync).Methods(http.MethodPost)
	router.HandleFunc("/v1/tasks/{taskID}/slots/{slotID}/extensions", handler.ExtensionAdd).Methods(http.MethodPost)
	router.HandleFunc("/v1/tasks/{taskID}/slots/{slotID}/extensions/{requestID}", handler.ExtensionRespond).Methods(http.MethodPut)

	return router, service
}

func serve(router *mux.Router, method string, target string, body string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	var response struct {
		Error struct {
			Code  string `json:"code"`
			Field string `json:"field"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	return response.Error.Code
}

func TestHandler_TaskAdd(t *testing.T) {
	router, _ := newTestRouter()
	assigner := primitive.NewObjectID().Hex()
	receiver := primitive.NewObjectID().Hex()

	body := `{"assignerId":"` + assigner + `","receiverId":"` + receiver + `","name":"Restock shelves",
		"slots":[{"date":"2021-03-01","start":"10:00","end":"11:00"}]}`

	recorder := serve(router, http.MethodPost, "/v1/tasks", body)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	task := Task{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &task))
	assert.False(t, task.ID.IsZero())
	assert.Equal(t, 60, task.Slots[0].DurationMinutes)
	assert.Equal(t, "10:00", task.Slots[0].Start.String())

	recorder = serve(router, http.MethodPost, "/v1/tasks", body)
	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Equal(t, communication.CodeConflict, errorCode(t, recorder))

	recorder = serve(router, http.MethodGet, "/v1/tasks/"+task.ID.Hex(), "")
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = serve(router, http.MethodGet, "/v1/tasks?personId="+receiver, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	var list struct {
		Results []Task                 `json:"results"`
		Paging  map[string]interface{} `json:"paging"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &list))
	assert.Len(t, list.Results, 1)
	assert.Equal(t, float64(1), list.Paging["results"])
}

func TestHandler_TaskAdd_Invalid(t *testing.T) {
	router, _ := newTestRouter()

	var invalidTests = []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing name", `{"assignerId":"` + primitive.NewObjectID().Hex() + `"}`},
		{"missing assigner", `{"name":"Restock shelves"}`},
		{"bad marker", `{"assignerId":"` + primitive.NewObjectID().Hex() + `","name":"x","slots":[{"date":"2021-03-01","start":"25:00","end":"26:00"}]}`},
		{"end before start", `{"assignerId":"` + primitive.NewObjectID().Hex() + `","name":"x","slots":[{"date":"2021-03-01","start":"11:00","end":"10:00"}]}`},
	}

	for _, tt := range invalidTests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := serve(router, http.MethodPost, "/v1/tasks", tt.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code, recorder.Body.String())
		})
	}
}

func TestHandler_Extensions(t *testing.T) {
	router, service := newTestRouter()

	task, err := service.CreateTask(context.Background(), newTask(primitive.NewObjectID(), slotAt(t, "10:00", "11:00")))
	require.NoError(t, err)
	slotPath := "/v1/tasks/" + task.ID.Hex() + "/slots/" + task.Slots[0].ID.Hex()

	recorder := serve(router, http.MethodPost, slotPath+"/extensions",
		`{"requesterId":"`+task.ReceiverID.Hex()+`","minutes":"30","reason":"late delivery"}`)
	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())

	var created struct {
		Request ExtensionRequest `json:"request"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
	assert.Equal(t, 30, created.Request.Minutes)

	recorder = serve(router, http.MethodPost, slotPath+"/extensions",
		`{"requesterId":"`+task.ReceiverID.Hex()+`","minutes":0}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	respondPath := slotPath + "/extensions/" + created.Request.ID.Hex()
	respondBody := `{"responderId":"` + task.AssignerID.Hex() + `","status":"approved"}`

	recorder = serve(router, http.MethodPut, respondPath, respondBody)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	result := ExtensionResult{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	assert.Equal(t, 30, result.AdjustmentMinutes)
	assert.Equal(t, "11:30", result.Task.Slots[0].End.String())

	recorder = serve(router, http.MethodPut, respondPath, respondBody)
	assert.Equal(t, http.StatusConflict, recorder.Code)
	assert.Equal(t, communication.CodeAlreadyResolved, errorCode(t, recorder))
}

func TestHandler_SlotUpdateSyncAndDelete(t *testing.T) {
	router, service := newTestRouter()

	task, err := service.CreateTask(context.Background(), newTask(primitive.NewObjectID(), slotAt(t, "10:00", "11:00")))
	require.NoError(t, err)
	taskPath := "/v1/tasks/" + task.ID.Hex()

	recorder := serve(router, http.MethodPatch, taskPath+"/slots/"+task.Slots[0].ID.Hex(), `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	updated := Task{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &updated))
	assert.Equal(t, 60, updated.TimeTracking.TotalWorkedMinutes)

	recorder = serve(router, http.MethodPatch, taskPath+"/slots/"+task.Slots[0].ID.Hex(), `{}`)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = serve(router, http.MethodPost, taskPath+"/schedule/sync", "")
	assert.Equal(t, http.StatusOK, recorder.Code)

	recorder = serve(router, http.MethodDelete, taskPath, "")
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder = serve(router, http.MethodDelete, "/v1/tasks/"+primitive.NewObjectID().Hex(), "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, communication.CodeNotFound, errorCode(t, recorder))
}

func TestHandler_GetAllTasks_BadQuery(t *testing.T) {
	router, _ := newTestRouter()
	person := primitive.NewObjectID().Hex()

	for _, query := range []string{
		"",
		"?personId=nope",
		"?personId=" + person + "&pageSize=26",
		"?personId=" + person + "&page=x",
		"?personId=" + person + "&status=finished",
	} {
		recorder := serve(router, http.MethodGet, "/v1/tasks"+query, "")
		assert.Equal(t, http.StatusBadRequest, recorder.Code, query)
	}
}
