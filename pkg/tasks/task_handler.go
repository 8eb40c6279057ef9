package tasks

import (
	"encoding/json"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/opsboard/opsboard-backend/pkg/communication"
	"github.com/opsboard/opsboard-backend/pkg/logger"
	"github.com/pkg/errors"
)

// Handler handles all task related API calls
type Handler struct {
	Service         *SchedulingService
	TaskRepository  TaskRepositoryInterface
	Logger          logger.Interface
	ResponseManager *communication.ResponseManager
}

// TaskAdd is the route for adding a task with its slots
func (handler *Handler) TaskAdd(writer http.ResponseWriter, request *http.Request) {
	task := Task{}

	err := json.NewDecoder(request.Body).Decode(&task)
	if err != nil {
		handler.respondWithDecodeError(writer, err)
		return
	}

	err = validateStruct(&task)
	if err != nil {
		handler.ResponseManager.RespondWithDomainError(writer, "Invalid task", err)
		return
	}

	created, err := handler.Service.CreateTask(request.Context(), &task)
	if err != nil {
		handler.ResponseManager.RespondWithDomainError(writer, "Could not schedule task", err)
		return
	}

	handler.ResponseManager.RespondWithStatus(writer, created, http.StatusCreated)
}

// TaskGet is the route for getting a task
func (handler *Handler) TaskGet(writer http.ResponseWriter, request *http.Request) {
	taskID := mux.Vars(request)["taskID"]

	task, err := handler.Service.GetTask(request.Context(), taskID)
	if err != nil {
		handler.ResponseManager.RespondWithDomainError(writer, "Couldn't find task", err)
		return
	}

	handler.ResponseManager.Respond(writer, task)
}

// GetAllTasks is the route for all tasks a person assigned or received
func (handler *Handler) GetAllTasks(writer http.ResponseWriter, request *http.Request) {
	var page = 0
	var pageSize = 10
	var err error

	personID := request.URL.Query().Get("personId")
	queryPage := request.URL.Query().Get("page")
	queryPageSize := request.URL.Query().Get("pageSize")
	queryStatus := request.URL.Query().Get("status")
	includeDeletedQuery := request.URL.Query().Get("includeDeleted")

	if _, err = parseID("personId", personID); err != nil {
		handler.ResponseManager.RespondWithDomainError(writer, "Bad query parameter personId", err)
		return
	}

	includeDeleted := false
	if includeDeletedQuery != "" {
		includeDeleted, err = strconv.ParseBool(includeDeletedQuery)
		if err != nil {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Bad value for includeDeleted", err)
			return
		}
	}

	if queryPage != "" {
		page, err = strconv.Atoi(queryPage)
		if err != nil || page < 0 {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Bad query parameter page", err)
			return
		}
	}

	if queryPageSize != "" {
		pageSize, err = strconv.Atoi(queryPageSize)
		if err != nil || pageSize < 1 {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Bad query parameter pageSize", err)
			return
		}

		if pageSize > 25 {
			handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest,
				"Page size can't be more than 25", nil)
			return
		}
	}

	var filters []Filter
	if queryStatus != "" {
		switch queryStatus {
		case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled:
			filters = append(filters, StatusFilter(queryStatus))
		default:
			handler.ResponseManager.RespondWithDomainError(writer, "Bad query parameter status",
				communication.NewValidationError("status", "%q is not a task status", queryStatus))
			return
		}
	}

	tasks, count, err := handler.TaskRepository.FindAll(request.Context(), personID, page, pageSize, filters, includeDeleted)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Problem in query", err)
		return
	}

	pages := float64(count) / float64(pageSize)

	var response = map[string]interface{}{
		"results": tasks,
		"paging": map[string]interface{}{
			"page":     page,
			"pageSize": pageSize,
			"results":  count,
			"pages":    math.Ceil(pages),
		},
	}

	handler.ResponseManager.Respond(writer, response)
}

// TaskDelete is the route for archiving a task
func (handler *Handler) TaskDelete(writer http.ResponseWriter, request *http.Request) {
	taskID := mux.Vars(request)["taskID"]

	_, err := handler.Service.ArchiveTask(request.Context(), taskID)
	if err != nil {
		handler.ResponseManager.RespondWithDomainError(writer, "Could not archive task", err)
		return
	}

	handler.ResponseManager.RespondWithNoContent(writer)
}

type slotUpdate struct {
	Status string `json:"status" validate:"required"`
}

// SlotUpdate is the route for changing the status of a slot
func (handler *Handler) SlotUpdate(writer http.ResponseWriter, request *http.Request) {
	taskID := mux.Vars(request)["taskID"]
	slotID := mux.Vars(request)["slotID"]

	update := slotUpdate{}
	err := json.NewDecoder(request.Body).Decode(&update)
	if err != nil {
		handler.respondWithDecodeError(writer, err)
		return
	}

	err = validateStruct(&update)
	if err != nil {
		handler.ResponseManager.RespondWithDomainError(writer, "Invalid slot update", err)
		return
	}

	task, err := handler.Service.UpdateSlotStatus(request.Context(), taskID, slotID, update.Status)
	if err != nil {
		handler.ResponseManager.RespondWithDomainError(writer, "Could not update slot", err)
		return
	}

	handler.ResponseManager.Respond(writer, task)
}

// ScheduleSync is the route for rebuilding the schedule entries of a task
func (handler *Handler) ScheduleSync(writer http.ResponseWriter, request *http.Request) {
	taskID := mux.Vars(request)["taskID"]

	task, err := handler.Service.Resync(request.Context(), taskID)
	if err != nil {
		handler.ResponseManager.RespondWithDomainError(writer, "Could not synchronize schedule", err)
		return
	}

	handler.ResponseManager.Respond(writer, task)
}

// ExtensionAdd is the route for requesting more time in a slot
func (handler *Handler) ExtensionAdd(writer http.ResponseWriter, request *http.Request) {
	taskID := mux.Vars(request)["taskID"]
	slotID := mux.Vars(request)["slotID"]

	input := ExtensionInput{}
	err := json.NewDecoder(request.Body).Decode(&input)
	if err != nil {
		handler.respondWithDecodeError(writer, err)
		return
	}

	task, extensionRequest, err := handler.Service.RequestExtension(request.Context(), taskID, slotID, input)
	if err != nil {
		handler.ResponseManager.RespondWithDomainError(writer, "Could not request extension", err)
		return
	}

	handler.ResponseManager.RespondWithStatus(writer, map[string]interface{}{
		"task":    task,
		"request": extensionRequest,
	}, http.StatusCreated)
}

// ExtensionRespond is the route for approving or rejecting an extension request
func (handler *Handler) ExtensionRespond(writer http.ResponseWriter, request *http.Request) {
	taskID := mux.Vars(request)["taskID"]
	slotID := mux.Vars(request)["slotID"]
	requestID := mux.Vars(request)["requestID"]

	response := ExtensionResponse{}
	err := json.NewDecoder(request.Body).Decode(&response)
	if err != nil {
		handler.respondWithDecodeError(writer, err)
		return
	}

	result, err := handler.Service.RespondToExtension(request.Context(), taskID, slotID, requestID, response)
	if err != nil {
		handler.ResponseManager.RespondWithDomainError(writer, "Could not respond to extension", err)
		return
	}

	handler.ResponseManager.Respond(writer, result)
}

func (handler *Handler) respondWithDecodeError(writer http.ResponseWriter, err error) {
	var validationError *communication.ValidationError
	if errors.As(err, &validationError) {
		handler.ResponseManager.RespondWithDomainError(writer, "Wrong format", err)
		return
	}

	handler.ResponseManager.RespondWithError(writer, http.StatusBadRequest, "Wrong format", err)
}

var validate = newValidator()

// newValidator reports fields by their json names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct reports the first failing field as a ValidationError
func validateStruct(i interface{}) error {
	err := validate.Struct(i)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		e := validationErrors[0]
		return communication.NewValidationError(e.Field(), "failed on the %s rule", e.Tag())
	}

	return err
}
