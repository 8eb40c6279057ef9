package schedule

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/opsboard/opsboard-backend/pkg/communication"
	"github.com/opsboard/opsboard-backend/pkg/date"
	"github.com/opsboard/opsboard-backend/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxBookingRange is the longest range GetBookings answers
const MaxBookingRange = 31 * 24 * time.Hour

// Handler handles all schedule related API calls
type Handler struct {
	AvailabilityEngine *AvailabilityEngine
	Repository         RepositoryInterface
	Logger             logger.Interface
	ResponseManager    *communication.ResponseManager
}

// GetAvailability is the route for free time suggestions of a person
func (handler *Handler) GetAvailability(writer http.ResponseWriter, request *http.Request) {
	personID, err := primitive.ObjectIDFromHex(mux.Vars(request)["personID"])
	if err != nil {
		handler.ResponseManager.RespondWithDomainError(writer, "Bad person id",
			communication.NewValidationError("personId", "is not a valid id"))
		return
	}

	query := AvailabilityQuery{
		PersonID:        personID,
		DurationMinutes: DefaultDurationMinutes,
	}

	queryDate := request.URL.Query().Get("date")
	if queryDate != "" {
		query.From, err = handler.parseTime(queryDate)
		if err != nil {
			handler.ResponseManager.RespondWithDomainError(writer, "Bad date",
				communication.NewValidationError("date", "%v", err))
			return
		}
	}

	integerParameters := []struct {
		name   string
		target *int
	}{
		{"durationMinutes", &query.DurationMinutes},
		{"maxSuggestions", &query.MaxSuggestions},
		{"lookaheadDays", &query.LookaheadDays},
	}

	for _, parameter := range integerParameters {
		value := request.URL.Query().Get(parameter.name)
		if value == "" {
			continue
		}

		*parameter.target, err = strconv.Atoi(value)
		if err != nil {
			handler.ResponseManager.RespondWithDomainError(writer, "Bad query parameter",
				communication.NewValidationError(parameter.name, "must be an integer"))
			return
		}
	}

	availability, err := handler.AvailabilityEngine.Suggest(request.Context(), query)
	if err != nil {
		handler.ResponseManager.RespondWithDomainError(writer, "Problem computing availability", err)
		return
	}

	handler.ResponseManager.Respond(writer, availability)
}

// GetBookings is the route for all bookings of a person in a range
func (handler *Handler) GetBookings(writer http.ResponseWriter, request *http.Request) {
	personID, err := primitive.ObjectIDFromHex(mux.Vars(request)["personID"])
	if err != nil {
		handler.ResponseManager.RespondWithDomainError(writer, "Bad person id",
			communication.NewValidationError("personId", "is not a valid id"))
		return
	}

	from := date.StartOfDay(now(), handler.AvailabilityEngine.location())
	to := from.AddDate(0, 0, 1)

	queryFrom := request.URL.Query().Get("from")
	queryTo := request.URL.Query().Get("to")

	if queryFrom != "" {
		from, err = handler.parseTime(queryFrom)
		if err != nil {
			handler.ResponseManager.RespondWithDomainError(writer, "Bad from",
				communication.NewValidationError("from", "%v", err))
			return
		}
		to = from.AddDate(0, 0, 1)
	}

	if queryTo != "" {
		to, err = handler.parseTime(queryTo)
		if err != nil {
			handler.ResponseManager.RespondWithDomainError(writer, "Bad to",
				communication.NewValidationError("to", "%v", err))
			return
		}
	}

	if !to.After(from) {
		handler.ResponseManager.RespondWithDomainError(writer, "Bad range",
			communication.NewValidationError("to", "must be after from"))
		return
	}

	if to.Sub(from) > MaxBookingRange {
		handler.ResponseManager.RespondWithDomainError(writer, "Bad range",
			communication.NewValidationError("to", "range can't be longer than 31 days"))
		return
	}

	entries, err := handler.Repository.FindByPersonBetween(request.Context(), personID, from, to)
	if err != nil {
		handler.ResponseManager.RespondWithError(writer, http.StatusInternalServerError, "Problem in query", err)
		return
	}

	handler.ResponseManager.Respond(writer, map[string]interface{}{
		"personId": personID,
		"from":     from,
		"to":       to,
		"results":  entries,
	})
}

// parseTime accepts a timestamp or a bare day, which is taken as midnight in the engine's location
func (handler *Handler) parseTime(value string) (time.Time, error) {
	instant, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return instant, nil
	}

	day, err := time.Parse(date.DayLayout, value)
	if err != nil {
		return time.Time{}, err
	}

	year, month, dayOfMonth := day.Date()
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, handler.AvailabilityEngine.location()), nil
}
