package tasks

import (
	"time"

	"github.com/opsboard/opsboard-backend/pkg/communication"
	"github.com/opsboard/opsboard-backend/pkg/date"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// SlotStatusScheduled is a slot in the future
	SlotStatusScheduled = "scheduled"
	// SlotStatusActive is a slot that is being worked in
	SlotStatusActive = "active"
	// SlotStatusCompleted is a slot that was worked in
	SlotStatusCompleted = "completed"
	// SlotStatusExpired is a slot that passed without being worked in
	SlotStatusExpired = "expired"
	// SlotStatusCancelled is a slot that will not happen
	SlotStatusCancelled = "cancelled"
)

// IsSlotStatus checks if status is one of the slot statuses
func IsSlotStatus(status string) bool {
	switch status {
	case SlotStatusScheduled, SlotStatusActive, SlotStatusCompleted, SlotStatusExpired, SlotStatusCancelled:
		return true
	}
	return false
}

// Slot is a block of time in which the receiver works on the task this model is embedded in
type Slot struct {
	ID                primitive.ObjectID `json:"id" bson:"_id"`
	Date              string             `json:"date,omitempty" bson:"date,omitempty"`
	Start             date.Marker        `json:"start" bson:"start"`
	End               date.Marker        `json:"end" bson:"end"`
	DurationMinutes   int                `json:"durationMinutes" bson:"durationMinutes" validate:"min=0"`
	Status            string             `json:"status" bson:"status" validate:"omitempty,oneof=scheduled active completed expired cancelled"`
	ExtensionMinutes  int                `json:"extensionMinutes" bson:"extensionMinutes"`
	ExtensionRequests ExtensionRequests  `json:"extensionRequests" bson:"extensionRequests"`
}

// Day returns the slot's calendar day, or the zero time if none is set
func (s *Slot) Day() (time.Time, error) {
	if s.Date == "" {
		return time.Time{}, nil
	}

	day, err := date.ParseDay(s.Date)
	if err != nil {
		return time.Time{}, communication.NewValidationError("date", "%v", err)
	}

	return day, nil
}

// Interval resolves the start and end markers into an absolute Timespan
func (s *Slot) Interval(location *time.Location) (date.Timespan, error) {
	day, err := s.Day()
	if err != nil {
		return date.Timespan{}, err
	}

	start, err := s.Start.Resolve(day, location)
	if err != nil {
		return date.Timespan{}, markerError("start", err)
	}

	end, err := s.End.Resolve(day, location)
	if err != nil {
		return date.Timespan{}, markerError("end", err)
	}

	span := date.Timespan{Start: start, End: end}
	if !span.IsStartBeforeEnd() {
		return date.Timespan{}, communication.NewValidationError("end", "must be after start")
	}

	return span, nil
}

// Shift moves the markers forward by d. Only the end moves when onlyEnd is set.
func (s *Slot) Shift(d time.Duration, onlyEnd bool, location *time.Location) error {
	day, err := s.Day()
	if err != nil {
		return err
	}

	if !onlyEnd {
		s.Start, err = s.Start.Shift(d, day, location)
		if err != nil {
			return markerError("start", err)
		}
	}

	s.End, err = s.End.Shift(d, day, location)
	if err != nil {
		return markerError("end", err)
	}

	return nil
}

func markerError(field string, err error) error {
	switch {
	case errors.Is(err, date.ErrMissingDay):
		return communication.NewValidationError("date", "is required for %s given as time of day", field)
	case errors.Is(err, date.ErrEmptyMarker):
		return communication.NewValidationError(field, "is required")
	case errors.Is(err, date.ErrLeavesDay):
		return communication.NewValidationError(field, "would move past the slot's day")
	default:
		return communication.NewValidationError(field, "%v", err)
	}
}

// Slots is a slice of slots in task order
type Slots []Slot

// FindByID finds a slot by its ID and returns its index, -1 if there is none
func (s Slots) FindByID(id primitive.ObjectID) (int, *Slot) {
	for i, slot := range s {
		if slot.ID == id {
			return i, &s[i]
		}
	}

	return -1, nil
}

// ExtensionRequest is a proposal to lengthen one slot
type ExtensionRequest struct {
	ID          primitive.ObjectID `json:"id" bson:"_id"`
	RequesterID primitive.ObjectID `json:"requesterId" bson:"requesterId"`
	Minutes     int                `json:"minutes" bson:"minutes"`
	Reason      string             `json:"reason" bson:"reason"`
	Status      string             `json:"status" bson:"status"`
	ResponderID primitive.ObjectID `json:"responderId,omitempty" bson:"responderId,omitempty"`
	RespondedAt *time.Time         `json:"respondedAt,omitempty" bson:"respondedAt,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}

const (
	// ExtensionPending is an extension request waiting for a response
	ExtensionPending = "pending"
	// ExtensionApproved is an applied extension request
	ExtensionApproved = "approved"
	// ExtensionRejected is a declined extension request
	ExtensionRejected = "rejected"
)

// IsResolved checks if somebody already responded to the request
func (e *ExtensionRequest) IsResolved() bool {
	return e.Status != ExtensionPending
}

// ExtensionRequests is a slice of extension requests
type ExtensionRequests []ExtensionRequest

// FindByID finds an extension request by its ID
func (e ExtensionRequests) FindByID(id primitive.ObjectID) (int, *ExtensionRequest) {
	for i, request := range e {
		if request.ID == id {
			return i, &e[i]
		}
	}

	return -1, nil
}
