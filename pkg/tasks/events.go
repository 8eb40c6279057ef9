package tasks

import (
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType names what happened to a task
type EventType string

const (
	// EventTaskScheduled is published after a task and its slots were booked
	EventTaskScheduled EventType = "task.scheduled"
	// EventTaskArchived is published after a task was archived
	EventTaskArchived EventType = "task.archived"
	// EventSlotUpdated is published after a slot changed its status
	EventSlotUpdated EventType = "slot.updated"
	// EventExtensionRequested is published after an extension request was filed
	EventExtensionRequested EventType = "extension.requested"
	// EventExtensionApproved is published after an extension was applied
	EventExtensionApproved EventType = "extension.approved"
	// EventExtensionRejected is published after an extension was declined
	EventExtensionRejected EventType = "extension.rejected"
)

// Event is a domain event about a task
type Event struct {
	Type              EventType            `json:"type"`
	TaskID            primitive.ObjectID   `json:"taskId"`
	PersonIDs         []primitive.ObjectID `json:"personIds"`
	SlotID            *primitive.ObjectID  `json:"slotId,omitempty"`
	RequestID         *primitive.ObjectID  `json:"requestId,omitempty"`
	AdjustmentMinutes int                  `json:"adjustmentMinutes,omitempty"`
	Task              *Task                `json:"task"`
	OccurredAt        time.Time            `json:"occurredAt"`
}

// NewEvent builds an Event carrying a snapshot of task
func NewEvent(eventType EventType, task *Task) *Event {
	return &Event{
		Type:       eventType,
		TaskID:     task.ID,
		PersonIDs:  task.PersonIDs(),
		Task:       task.Copy(),
		OccurredAt: time.Now(),
	}
}

// ConcernsPerson checks if personID is the assigner or receiver of the event's task
func (e *Event) ConcernsPerson(personID primitive.ObjectID) bool {
	for _, id := range e.PersonIDs {
		if id == personID {
			return true
		}
	}
	return false
}

// EventObserver is an Observer
type EventObserver interface {
	OnNotify(event *Event)
}

// EventObservable is an Observable
type EventObservable interface {
	Subscribe(o EventObserver)
	Unsubscribe(o EventObserver)
	Publish(event *Event)
}

// EventPublisher delivers events to its subscribers asynchronously
type EventPublisher struct {
	mutex       sync.RWMutex
	subscribers []EventObserver
}

// Subscribe is useful for listening to task changes
func (p *EventPublisher) Subscribe(o EventObserver) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.subscribers = append(p.subscribers, o)
}

// Unsubscribe unsubscribes from a subscription
func (p *EventPublisher) Unsubscribe(o EventObserver) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for i, subscriber := range p.subscribers {
		if subscriber == o {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			return
		}
	}
}

// Publish publishes an event to all subscribers
func (p *EventPublisher) Publish(event *Event) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	for _, subscriber := range p.subscribers {
		go subscriber.OnNotify(event)
	}
}
