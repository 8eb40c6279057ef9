package logger

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/logging"
)

// LogID is the log name entries are written to in Cloud Logging
const LogID = "opsboard-backend"

// GoogleCloudLogger writes structured entries to Google Cloud Logging
type GoogleCloudLogger struct {
	client *logging.Client
	logger *logging.Logger
}

// NewGoogleCloudLogger connects to Cloud Logging for the given project
func NewGoogleCloudLogger(ctx context.Context, projectID string) (*GoogleCloudLogger, error) {
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		return nil, err
	}

	return &GoogleCloudLogger{
		client: client,
		logger: client.Logger(LogID),
	}, nil
}

// Error logs with severity Error
func (l *GoogleCloudLogger) Error(message string, err error) {
	l.logger.Log(logging.Entry{
		Severity: logging.Error,
		Payload: map[string]string{
			"message": message,
			"error":   fmt.Sprintf("%v", err),
		},
	})
}

// Info logs with severity Info
func (l *GoogleCloudLogger) Info(message string) {
	l.logger.Log(logging.Entry{Severity: logging.Info, Payload: message})
}

// Debug logs with severity Debug
func (l *GoogleCloudLogger) Debug(message string) {
	l.logger.Log(logging.Entry{Severity: logging.Debug, Payload: message})
}

// Fatal logs synchronously with severity Critical and exits
func (l *GoogleCloudLogger) Fatal(err error) {
	_ = l.logger.LogSync(context.Background(), logging.Entry{
		Severity: logging.Critical,
		Payload:  fmt.Sprintf("%v", err),
	})
	_ = l.client.Close()
	os.Exit(1)
}

// Close flushes buffered entries
func (l *GoogleCloudLogger) Close() error {
	return l.client.Close()
}
