package notifications

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opsboard/opsboard-backend/pkg/communication"
	"github.com/opsboard/opsboard-backend/pkg/logger"
	"github.com/opsboard/opsboard-backend/pkg/tasks"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/net/websocket"
	"golang.org/x/sync/errgroup"
)

const writeTimeout = 5 * time.Second

// Hub streams task events over websockets to the persons they concern
type Hub struct {
	Logger          logger.Interface
	ResponseManager *communication.ResponseManager

	mutex       sync.RWMutex
	subscribers map[primitive.ObjectID]map[string]*subscriber
}

type subscriber struct {
	id      string
	mutex   sync.Mutex
	conn    *websocket.Conn
	encoder *json.Encoder
}

func (s *subscriber) send(event *tasks.Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err != nil {
		return err
	}

	return s.encoder.Encode(event)
}

// NewHub builds a Hub without subscribers
func NewHub(logger logger.Interface, responseManager *communication.ResponseManager) *Hub {
	return &Hub{
		Logger:          logger,
		ResponseManager: responseManager,
		subscribers:     make(map[primitive.ObjectID]map[string]*subscriber),
	}
}

// ServeHTTP upgrades the request to a websocket that receives the events of the person in the query
func (h *Hub) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	personID, err := primitive.ObjectIDFromHex(request.URL.Query().Get("personId"))
	if err != nil {
		h.ResponseManager.RespondWithDomainError(writer, "Bad person id",
			communication.NewValidationError("personId", "is not a valid id"))
		return
	}

	websocket.Handler(func(conn *websocket.Conn) {
		h.serve(personID, conn)
	}).ServeHTTP(writer, request)
}

func (h *Hub) serve(personID primitive.ObjectID, conn *websocket.Conn) {
	s := &subscriber{id: uuid.NewString(), conn: conn, encoder: json.NewEncoder(conn)}
	h.add(personID, s)

	defer func() {
		h.remove(personID, s.id)
		_ = conn.Close()
	}()

	// clients only listen, anything they send is dropped until they hang up
	for {
		var message []byte
		err := websocket.Message.Receive(conn, &message)
		if err != nil {
			return
		}
	}
}

func (h *Hub) add(personID primitive.ObjectID, s *subscriber) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.subscribers[personID] == nil {
		h.subscribers[personID] = make(map[string]*subscriber)
	}
	h.subscribers[personID][s.id] = s
}

func (h *Hub) remove(personID primitive.ObjectID, id string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	delete(h.subscribers[personID], id)
	if len(h.subscribers[personID]) == 0 {
		delete(h.subscribers, personID)
	}
}

// Subscribers counts the open connections of a person
func (h *Hub) Subscribers(personID primitive.ObjectID) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.subscribers[personID])
}

// OnNotify writes the event to every connection of the persons it concerns
func (h *Hub) OnNotify(event *tasks.Event) {
	h.mutex.RLock()
	var targets []*subscriber
	for _, personID := range event.PersonIDs {
		for _, s := range h.subscribers[personID] {
			targets = append(targets, s)
		}
	}
	h.mutex.RUnlock()

	group := errgroup.Group{}
	for _, s := range targets {
		s := s
		group.Go(func() error {
			err := s.send(event)
			if err != nil {
				_ = s.conn.Close()
				return errors.Wrapf(err, "could not write to subscriber %s", s.id)
			}
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		h.Logger.Error("Could not deliver event", err)
	}
}
