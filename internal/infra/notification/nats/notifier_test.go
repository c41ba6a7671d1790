package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	args := m.Called(ctx, subject, payload, opts)
	ack, _ := args.Get(0).(*jetstream.PubAck)
	return ack, args.Error(1)
}

func TestNotifier_Notify(t *testing.T) {
	t.Run("should publish the message as JSON", func(t *testing.T) {
		js := new(publisherMock)
		n := newNotifier(js, "deposits.notifications")
		n.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

		var published Notification
		js.On("Publish", mock.Anything, "deposits.notifications", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				require.NoError(t, json.Unmarshal(args.Get(2).([]byte), &published))
				assert.Len(t, args.Get(3), 1)
			}).
			Return(&jetstream.PubAck{Stream: StreamName, Sequence: 1}, nil).Once()

		err := n.Notify(t.Context(), "Deposit processed: 0x01")

		require.NoError(t, err)
		assert.Equal(t, "Deposit processed: 0x01", published.Message)
		assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), published.SentAt)
		assert.NotEmpty(t, published.ID)
		js.AssertExpectations(t)
	})

	t.Run("should return publish failures", func(t *testing.T) {
		js := new(publisherMock)
		n := newNotifier(js, "deposits.notifications")

		expected := errors.New("no responders")
		js.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, expected).Once()

		err := n.Notify(t.Context(), "hi")

		assert.ErrorIs(t, err, expected)
	})
}

func TestNotifier_Close(t *testing.T) {
	t.Run("should tolerate a notifier without a connection", func(t *testing.T) {
		assert.NoError(t, newNotifier(new(publisherMock), "s").Close())
	})
}
