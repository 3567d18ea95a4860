package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// MockKafkaWriter implements KafkaWriter for testing
type MockKafkaWriter struct {
	mock.Mock
}

func (m *MockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockKafkaWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func leaveEvent(t *testing.T) Event {
	event, err := NewEvent(LeaveRequested, "acme", "E1", map[string]int{"days": 2})
	require.NoError(t, err)
	return event
}

func TestNewEvent(t *testing.T) {
	event, err := NewEvent(EmailRequested, "acme", "E1", Email{To: "boss@acme.test", Subject: "Hi"})
	require.NoError(t, err)

	assert.Equal(t, "acme/E1", event.Key())
	assert.False(t, event.OccurredAt.IsZero())

	var email Email
	require.NoError(t, json.Unmarshal(event.Payload, &email))
	assert.Equal(t, "boss@acme.test", email.To)
}

func TestNewProducerWithoutBrokers(t *testing.T) {
	_, err := NewProducer(nil, zaptest.NewLogger(t), "topic")
	assert.Error(t, err)
}

func TestProducer_Produce(t *testing.T) {
	t.Run("successful produce", func(t *testing.T) {
		producer := newProducer(new(MockKafkaWriter), zaptest.NewLogger(t), 10)

		assert.NoError(t, producer.Produce(leaveEvent(t)))
		assert.Equal(t, 1, len(producer.events))
	})

	t.Run("dropped event when queue full", func(t *testing.T) {
		core, recorded := observer.New(zap.WarnLevel)
		producer := newProducer(new(MockKafkaWriter), zap.New(core), 1)

		require.NoError(t, producer.Produce(leaveEvent(t)))
		assert.ErrorIs(t, producer.Produce(leaveEvent(t)), ErrQueueFull)

		assert.Equal(t, 1, recorded.FilterMessage("Kafka producer queue full, dropping event").Len())
	})
}

func TestProducer_SendEvent(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	event := leaveEvent(t)

	t.Run("successful send", func(t *testing.T) {
		producer := newProducer(mockWriter, zaptest.NewLogger(t), 1)
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)

		producer.sendEvent(context.Background(), event)

		value, _ := json.Marshal(event)
		mockWriter.AssertCalled(t, "WriteMessages", mock.Anything, []kafka.Message{
			{Key: []byte("acme/E1"), Value: value},
		})
	})

	t.Run("serialization error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer := newProducer(mockWriter, zap.New(core), 1)

		oldMarshal := jsonMarshal
		jsonMarshal = func(_ interface{}) ([]byte, error) {
			return nil, errors.New("mock marshal error")
		}
		defer func() { jsonMarshal = oldMarshal }()

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to serialize event").Len())
		assert.Equal(t, 1, recorded.FilterField(zap.String("key", "acme/E1")).Len())
	})

	t.Run("write error", func(t *testing.T) {
		core, recorded := observer.New(zap.ErrorLevel)
		producer := newProducer(mockWriter, zap.New(core), 1)
		mockWriter.ExpectedCalls = nil
		mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("kafka error"))

		producer.sendEvent(context.Background(), event)

		assert.Equal(t, 1, recorded.FilterMessage("Failed to produce event").Len())
	})
}

func TestProducer_CloseDrainsQueue(t *testing.T) {
	mockWriter := new(MockKafkaWriter)
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil)
	mockWriter.On("Close").Return(nil)

	producer := newProducer(mockWriter, zaptest.NewLogger(t), 10)
	require.NoError(t, producer.Produce(leaveEvent(t)))
	require.NoError(t, producer.Produce(leaveEvent(t)))

	go producer.eventLoop()
	producer.Close()

	mockWriter.AssertNumberOfCalls(t, "WriteMessages", 2)
	mockWriter.AssertCalled(t, "Close")
}

func TestProducer_EventLoop(t *testing.T) {
	written := make(chan struct{}, 1)
	mockWriter := new(MockKafkaWriter)
	mockWriter.On("WriteMessages", mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		written <- struct{}{}
	})
	mockWriter.On("Close").Return(nil)

	producer := newProducer(mockWriter, zaptest.NewLogger(t), 1)
	go producer.eventLoop()
	defer producer.Close()

	producer.events <- leaveEvent(t)

	select {
	case <-written:
	case <-time.After(time.Second):
		t.Fatal("event was not written")
	}
}
