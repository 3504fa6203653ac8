package eventsvc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/darasa-lms/darasa/core"
)

type writerMock struct {
	mock.Mock
}

func (m *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *writerMock) Close() error { return m.Called().Error(0) }

func TestKafkaPublisher_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("writes one message per event", func(t *testing.T) {
		w := new(writerMock)
		var sent []kafka.Message
		w.On("WriteMessages", ctx, mock.Anything).Run(func(args mock.Arguments) {
			sent = args.Get(1).([]kafka.Message)
		}).Return(nil)

		pub := &KafkaPublisher{writer: w}
		err := pub.Publish(ctx,
			core.NewEvent(core.EventEnrollmentCreated, "enr-1", map[string]interface{}{"course_id": "c1"}),
			core.NewEvent(core.EventQuizGraded, "sub-1", nil),
		)
		require.NoError(t, err)
		w.AssertExpectations(t)

		require.Len(t, sent, 2)
		assert.Equal(t, "enr-1", string(sent[0].Key))
		assert.Equal(t, core.EventEnrollmentCreated, string(sent[0].Headers[0].Value))

		var evt map[string]interface{}
		require.NoError(t, json.Unmarshal(sent[0].Value, &evt))
		assert.Equal(t, core.EventEnrollmentCreated, evt["name"])
	})

	t.Run("wraps writer errors", func(t *testing.T) {
		w := new(writerMock)
		w.On("WriteMessages", ctx, mock.Anything).Return(errors.New("broker down"))

		pub := &KafkaPublisher{writer: w}
		err := pub.Publish(ctx, core.NewEvent(core.EventQuizGraded, "sub-1", nil))
		assert.EqualError(t, err, "writing events: broker down")
	})

	t.Run("no events is a noop", func(t *testing.T) {
		w := new(writerMock)
		pub := &KafkaPublisher{writer: w}
		assert.NoError(t, pub.Publish(ctx))
		w.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
	})
}

func TestMemoryPublisher_Events(t *testing.T) {
	pub := NewMemoryPublisher()
	_ = pub.Publish(context.Background(),
		core.NewEvent(core.EventQuizGraded, "a", nil),
		core.NewEvent(core.EventReviewModerated, "b", nil),
		core.NewEvent(core.EventQuizGraded, "c", nil),
	)

	assert.Len(t, pub.Events(), 3)
	assert.Len(t, pub.Events(core.EventQuizGraded), 2)
	pub.Reset()
	assert.Empty(t, pub.Events())
}
