package notifications

import (
	"context"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/opsboard/opsboard-backend/pkg/logger"
	"github.com/opsboard/opsboard-backend/pkg/tasks"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"google.golang.org/api/option"
)

const sendTimeout = 10 * time.Second

// MessagingClient sends a single message, *messaging.Client implements it
type MessagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// NotificationController can send Messages to Google Cloud Messaging
type NotificationController struct {
	Logger logger.Interface
	Client MessagingClient
}

// NewNotificationController construct a NotificationController
func NewNotificationController(ctx context.Context, logger logger.Interface, projectID string, apiKey string) (*NotificationController, error) {
	opt := option.WithAPIKey(apiKey)
	config := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, config, opt)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize firebase")
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not initialize firebase messaging")
	}

	return &NotificationController{
		Logger: logger,
		Client: client,
	}, nil
}

// Topic is the messaging topic the devices of a person subscribe to
func Topic(personID primitive.ObjectID) string {
	return "person-" + personID.Hex()
}

// OnNotify sends a data message about the event to every person it concerns
func (n *NotificationController) OnNotify(event *tasks.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	for _, personID := range event.PersonIDs {
		message := &messaging.Message{
			Data: map[string]string{
				"collapse_key": "sync",
				"type":         string(event.Type),
				"taskId":       event.TaskID.Hex(),
			},
			Topic: Topic(personID),
		}

		_, err := n.Client.Send(ctx, message)
		if err != nil {
			n.Logger.Error("Could not send messaging request", err)
		}
	}
}
