package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/opsboard/opsboard-backend/pkg/communication"
	"github.com/opsboard/opsboard-backend/pkg/locking"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxExtensionMinutes is the largest extension a single request can ask for
const MaxExtensionMinutes = 24 * 60

// Minutes is a number of minutes that is accepted as JSON number or numeric string
type Minutes int

// UnmarshalJSON accepts 15, 15.0 and "15"
func (m *Minutes) UnmarshalJSON(data []byte) error {
	text := string(bytes.TrimSpace(data))
	if text == "null" {
		*m = 0
		return nil
	}

	if strings.HasPrefix(text, `"`) {
		err := json.Unmarshal(data, &text)
		if err != nil {
			return err
		}
		text = strings.TrimSpace(text)
	}

	value, err := strconv.ParseFloat(text, 64)
	if err != nil || value != math.Trunc(value) {
		return communication.NewValidationError("minutes", "%q is not a whole number of minutes", text)
	}
	if math.Abs(value) > MaxExtensionMinutes {
		return communication.NewValidationError("minutes", "must not exceed %d minutes", MaxExtensionMinutes)
	}

	*m = Minutes(value)
	return nil
}

// ExtensionInput is the payload of an extension request
type ExtensionInput struct {
	RequesterID primitive.ObjectID `json:"requesterId"`
	Minutes     Minutes            `json:"minutes"`
	Reason      string             `json:"reason"`
}

// ExtensionResponse is the payload of a response to an extension request
type ExtensionResponse struct {
	ResponderID primitive.ObjectID `json:"responderId"`
	Status      string             `json:"status"`
}

// ExtensionResult is the task after a response and the minutes it was extended by
type ExtensionResult struct {
	Task              *Task `json:"task"`
	AdjustmentMinutes int   `json:"adjustmentMinutes"`
}

// RequestExtension files a pending extension request on a slot, nothing is rescheduled until it is approved
func (s *SchedulingService) RequestExtension(ctx context.Context, taskID string, slotID string, input ExtensionInput) (*Task, *ExtensionRequest, error) {
	taskObjectID, err := parseID("taskId", taskID)
	if err != nil {
		return nil, nil, err
	}
	slotObjectID, err := parseID("slotId", slotID)
	if err != nil {
		return nil, nil, err
	}
	if input.RequesterID.IsZero() {
		return nil, nil, communication.NewValidationError("requesterId", "is required")
	}
	if input.Minutes <= 0 {
		return nil, nil, communication.NewValidationError("minutes", "must be a positive number of minutes")
	}
	if input.Minutes > MaxExtensionMinutes {
		return nil, nil, communication.NewValidationError("minutes", "must not exceed %d minutes", MaxExtensionMinutes)
	}

	var task *Task
	var request ExtensionRequest
	err = s.withLocks(ctx, []string{locking.TaskKey(taskObjectID)}, func() error {
		task, err = s.findActiveTask(ctx, taskID)
		if err != nil {
			return err
		}

		_, slot := task.Slots.FindByID(slotObjectID)
		if slot == nil {
			return &communication.NotFoundError{Resource: "slot", ID: slotID}
		}

		request = ExtensionRequest{
			ID:          primitive.NewObjectID(),
			RequesterID: input.RequesterID,
			Minutes:     int(input.Minutes),
			Reason:      input.Reason,
			Status:      ExtensionPending,
			CreatedAt:   now(),
		}
		slot.ExtensionRequests = append(slot.ExtensionRequests, request)

		err = s.TaskRepository.Update(ctx, task)
		if err != nil {
			return errors.Wrap(err, "could not persist extension request")
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	event := NewEvent(EventExtensionRequested, task)
	event.SlotID = &slotObjectID
	event.RequestID = &request.ID
	s.Publish(event)

	return task, &request, nil
}

// RespondToExtension approves or rejects a pending extension request. An approval shifts the slot's end
// and every later slot of the task, and is refused with a conflict if any shifted slot collides with
// another booking of the receiver. The request stays pending in that case.
func (s *SchedulingService) RespondToExtension(ctx context.Context, taskID string, slotID string, requestID string,
	response ExtensionResponse) (*ExtensionResult, error) {
	taskObjectID, err := parseID("taskId", taskID)
	if err != nil {
		return nil, err
	}
	slotObjectID, err := parseID("slotId", slotID)
	if err != nil {
		return nil, err
	}
	requestObjectID, err := parseID("requestId", requestID)
	if err != nil {
		return nil, err
	}
	if response.ResponderID.IsZero() {
		return nil, communication.NewValidationError("responderId", "is required")
	}
	if response.Status != ExtensionApproved && response.Status != ExtensionRejected {
		return nil, communication.NewValidationError("status", "must be %s or %s", ExtensionApproved, ExtensionRejected)
	}

	var result *ExtensionResult
	err = s.withLocks(ctx, []string{locking.TaskKey(taskObjectID)}, func() error {
		task, err := s.findActiveTask(ctx, taskID)
		if err != nil {
			return err
		}

		slotIndex, slot := task.Slots.FindByID(slotObjectID)
		if slot == nil {
			return &communication.NotFoundError{Resource: "slot", ID: slotID}
		}

		_, request := slot.ExtensionRequests.FindByID(requestObjectID)
		if request == nil {
			return &communication.NotFoundError{Resource: "extension request", ID: requestID}
		}

		if request.IsResolved() {
			return &communication.StateError{Message: "extension request was already " + request.Status}
		}

		if response.Status == ExtensionRejected {
			markResolved(request, response)

			err = s.TaskRepository.Update(ctx, task)
			if err != nil {
				return errors.Wrap(err, "could not persist response")
			}

			result = &ExtensionResult{Task: task}
			return nil
		}

		var keys []string
		if task.HasReceiver() {
			keys = append(keys, locking.PersonKey(task.ReceiverID))
		}

		return s.withLocks(ctx, keys, func() error {
			proposal, err := s.proposeExtension(task, slotIndex, request.Minutes)
			if err != nil {
				return err
			}

			err = s.validateProposal(ctx, proposal, slotIndex)
			if err != nil {
				return err
			}

			s.commit(task, proposal, slotIndex, requestObjectID, response)

			err = s.TaskRepository.Update(ctx, task)
			if err != nil {
				return errors.Wrap(err, "could not persist extension")
			}

			err = s.Synchronizer.Sync(ctx, task)
			if err != nil {
				return err
			}

			result = &ExtensionResult{Task: task, AdjustmentMinutes: request.Minutes}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	eventType := EventExtensionRejected
	if response.Status == ExtensionApproved {
		eventType = EventExtensionApproved
	}

	event := NewEvent(eventType, result.Task)
	event.SlotID = &slotObjectID
	event.RequestID = &requestObjectID
	event.AdjustmentMinutes = result.AdjustmentMinutes
	s.Publish(event)

	return result, nil
}

// proposeExtension returns a copy of task with the slot at slotIndex extended by minutes and every
// later slot moved by the same amount
func (s *SchedulingService) proposeExtension(task *Task, slotIndex int, minutes int) (*Task, error) {
	if minutes <= 0 || minutes > MaxExtensionMinutes {
		return nil, communication.NewValidationError("minutes", "must be between 1 and %d minutes", MaxExtensionMinutes)
	}

	proposal := task.Copy()
	shift := time.Duration(minutes) * time.Minute

	target := &proposal.Slots[slotIndex]
	target.DurationMinutes += minutes
	target.ExtensionMinutes += minutes

	err := target.Shift(shift, true, s.location())
	if err != nil {
		return nil, err
	}

	for i := slotIndex + 1; i < len(proposal.Slots); i++ {
		err = proposal.Slots[i].Shift(shift, false, s.location())
		if err != nil {
			return nil, err
		}
	}

	return proposal, nil
}

// validateProposal checks every slot from slotIndex onward against the receiver's other bookings and
// the proposal's slots against each other
func (s *SchedulingService) validateProposal(ctx context.Context, proposal *Task, slotIndex int) error {
	spans, err := s.resolveSlots(proposal.Slots, slotIndex)
	if err != nil {
		return err
	}

	for i := 0; i < slotIndex; i++ {
		span, err := proposal.Slots[i].Interval(s.location())
		if err == nil {
			spans[i] = span
		}
	}

	err = checkSelfOverlap(proposal, spans)
	if err != nil {
		return err
	}

	if !proposal.HasReceiver() {
		return nil
	}

	for i := slotIndex; i < len(proposal.Slots); i++ {
		err = s.checkConflict(ctx, proposal.ReceiverID, spans[i], &proposal.ID, proposal.Slots[i])
		if err != nil {
			return err
		}
	}

	return nil
}

// commit applies a validated proposal to task and resolves the request as approved
func (s *SchedulingService) commit(task *Task, proposal *Task, slotIndex int, requestID primitive.ObjectID,
	response ExtensionResponse) {
	for i := slotIndex; i < len(task.Slots); i++ {
		requests := task.Slots[i].ExtensionRequests
		task.Slots[i] = proposal.Slots[i]
		task.Slots[i].ExtensionRequests = requests
	}

	_, request := task.Slots[slotIndex].ExtensionRequests.FindByID(requestID)
	markResolved(request, response)

	task.TimeTracking.Recompute(task.Slots)
}

func markResolved(request *ExtensionRequest, response ExtensionResponse) {
	respondedAt := now()
	request.Status = response.Status
	request.ResponderID = response.ResponderID
	request.RespondedAt = &respondedAt
}
