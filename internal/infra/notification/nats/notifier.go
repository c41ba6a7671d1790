// Package nats publishes notifications to a NATS JetStream subject.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gabapcia/depositwatch/internal/deposittrack"
	"github.com/gabapcia/depositwatch/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// StreamName is the JetStream stream holding notifications.
	StreamName = "DEPOSIT_NOTIFICATIONS"

	// StreamRetention bounds how long notifications are kept.
	StreamRetention = 30 * 24 * time.Hour
)

// Notification is the published payload.
type Notification struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

type publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Notifier is a deposittrack.Notifier backed by JetStream.
type Notifier struct {
	nc      *nats.Conn
	js      publisher
	subject string
	now     func() time.Time
}

var _ deposittrack.Notifier = (*Notifier)(nil)

// NewNotifier connects to natsURL and makes sure a stream captures subject.
func NewNotifier(ctx context.Context, natsURL, subject string) (*Notifier, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("depositwatch-notifier"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := ensureStream(ctx, js, subject); err != nil {
		nc.Close()
		return nil, err
	}

	logger.Info(ctx, "NATS notifier initialized", "stream", StreamName, "subject", subject)

	n := newNotifier(js, subject)
	n.nc = nc
	return n, nil
}

func newNotifier(js publisher, subject string) *Notifier {
	return &Notifier{
		js:      js,
		subject: subject,
		now:     time.Now,
	}
}

func ensureStream(ctx context.Context, js jetstream.JetStream, subject string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "Deposit notifications",
		Subjects:    []string{subject},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      StreamRetention,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", StreamName, err)
	}
	return nil
}

// Notify implements deposittrack.Notifier. Each message carries a fresh id used by
// JetStream for deduplication.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	notification := Notification{
		ID:      uuid.NewString(),
		Message: message,
		SentAt:  n.now().UTC(),
	}

	data, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if _, err := n.js.Publish(ctx, n.subject, data, jetstream.WithMsgID(notification.ID)); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	logger.Debug(ctx, "published notification", "subject", n.subject, "id", notification.ID)
	return nil
}

// Close drops the NATS connection.
func (n *Notifier) Close() error {
	if n.nc != nil {
		n.nc.Close()
	}
	return nil
}
