package schedule

import (
	"context"
	"time"

	"github.com/opsboard/opsboard-backend/pkg/communication"
	"github.com/opsboard/opsboard-backend/pkg/date"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// now is the current time and is globally available to override it in tests
var now = time.Now

const (
	// DefaultDurationMinutes is the suggestion length when the caller does not ask for one
	DefaultDurationMinutes = 30
	// DefaultMaxSuggestions is used when the caller does not limit suggestions
	DefaultMaxSuggestions = 5
	// MaxSuggestionsCap is the hard limit of suggestions over the whole window
	MaxSuggestionsCap = 10
	// DefaultLookaheadDays is used when the caller does not specify a window
	DefaultLookaheadDays = 3
	// LookaheadDaysCap is the hard limit of days that are scanned
	LookaheadDaysCap = 7
)

// AvailabilityQuery describes what free time is looked for
type AvailabilityQuery struct {
	PersonID        primitive.ObjectID
	From            time.Time
	DurationMinutes int
	MaxSuggestions  int
	LookaheadDays   int
}

// Suggestion is a bookable interval of exactly the requested duration
type Suggestion struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes int       `json:"durationMinutes"`
}

// Availability is the answer to an AvailabilityQuery
type Availability struct {
	PersonID        primitive.ObjectID `json:"personId"`
	From            time.Time          `json:"from"`
	To              time.Time          `json:"to"`
	DurationMinutes int                `json:"durationMinutes"`
	Bookings        []Entry            `json:"bookings"`
	Suggestions     []Suggestion       `json:"suggestions"`
}

// AvailabilityEngine scans a person's bookings for free time
type AvailabilityEngine struct {
	Repository RepositoryInterface
	Location   *time.Location
}

func (e *AvailabilityEngine) location() *time.Location {
	if e.Location == nil {
		return time.UTC
	}
	return e.Location
}

// Suggest looks for free intervals of query.DurationMinutes, day by day, starting at the beginning
// of the day of query.From. Time before now is never suggested.
func (e *AvailabilityEngine) Suggest(ctx context.Context, query AvailabilityQuery) (*Availability, error) {
	if query.PersonID.IsZero() {
		return nil, communication.NewValidationError("personId", "is required")
	}

	if query.DurationMinutes <= 0 {
		return nil, communication.NewValidationError("durationMinutes", "must be a positive number of minutes")
	}

	maxSuggestions := query.MaxSuggestions
	if maxSuggestions <= 0 {
		maxSuggestions = DefaultMaxSuggestions
	}
	if maxSuggestions > MaxSuggestionsCap {
		maxSuggestions = MaxSuggestionsCap
	}

	lookaheadDays := query.LookaheadDays
	if lookaheadDays <= 0 {
		lookaheadDays = DefaultLookaheadDays
	}
	if lookaheadDays > LookaheadDaysCap {
		lookaheadDays = LookaheadDaysCap
	}

	currentTime := now()
	from := query.From
	if from.IsZero() {
		from = currentTime
	}

	location := e.location()
	windowStart := date.StartOfDay(from, location)
	windowEnd := windowStart.AddDate(0, 0, lookaheadDays)
	duration := time.Duration(query.DurationMinutes) * time.Minute

	bookings, err := e.Repository.FindByPersonBetween(ctx, query.PersonID, windowStart, windowEnd)
	if err != nil {
		return nil, errors.Wrap(err, "could not load bookings")
	}

	earliest := ceilToMinute(currentTime)
	suggestions := []Suggestion{}

	for day := 0; day < lookaheadDays && len(suggestions) < maxSuggestions; day++ {
		dayStart := windowStart.AddDate(0, 0, day)
		dayEnd := dayStart.AddDate(0, 0, 1)
		if !dayEnd.After(earliest) {
			continue
		}

		cursor := date.MaxTime(dayStart, earliest)
		dayTimespan := date.Timespan{Start: dayStart, End: dayEnd}

		for _, booking := range bookings {
			if !dayTimespan.IntersectsWith(booking.Timespan()) {
				continue
			}

			if booking.Start.Sub(cursor) >= duration {
				suggestions = append(suggestions, newSuggestion(cursor, duration))
				if len(suggestions) >= maxSuggestions {
					break
				}
			}

			cursor = date.MaxTime(cursor, booking.End)
		}

		if len(suggestions) < maxSuggestions && dayEnd.Sub(cursor) >= duration {
			suggestions = append(suggestions, newSuggestion(cursor, duration))
		}
	}

	return &Availability{
		PersonID:        query.PersonID,
		From:            windowStart,
		To:              windowEnd,
		DurationMinutes: query.DurationMinutes,
		Bookings:        bookings,
		Suggestions:     suggestions,
	}, nil
}

func newSuggestion(start time.Time, duration time.Duration) Suggestion {
	return Suggestion{
		Start:           start,
		End:             start.Add(duration),
		DurationMinutes: int(duration / time.Minute),
	}
}

func ceilToMinute(t time.Time) time.Time {
	truncated := t.Truncate(time.Minute)
	if truncated.Equal(t) {
		return t
	}
	return truncated.Add(time.Minute)
}
