package broker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"deal-feed-service/internal/models"
	"deal-feed-service/internal/util"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHandleMessage_RoutesUpdateRequests(t *testing.T) {
	h := NewEventHandler()

	var got *models.FeedUpdateRequestedEvent
	h.OnFeedUpdateRequested(func(ctx context.Context, e *models.FeedUpdateRequestedEvent) error {
		got = e
		return nil
	})

	value, err := json.Marshal(models.FeedUpdateRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeFeedUpdateRequested,
			Timestamp: time.Now(),
		},
		RequestedBy: "ops",
	})
	require.NoError(t, err)

	require.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: value}))
	require.NotNil(t, got)
	assert.Equal(t, "evt-1", got.EventID)
	assert.Equal(t, "ops", got.RequestedBy)
}

func TestHandleMessage_IgnoresOtherEvents(t *testing.T) {
	h := NewEventHandler()
	called := false
	h.OnFeedUpdateRequested(func(context.Context, *models.FeedUpdateRequestedEvent) error {
		called = true
		return nil
	})

	value := []byte(`{"event_id":"x","event_type":"DEAL_UPSERTED"}`)

	assert.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Value: value}))
	assert.False(t, called)
}

func TestHandleMessage_RejectsGarbage(t *testing.T) {
	assert.Error(t, NewEventHandler().HandleMessage(context.Background(), kafka.Message{Value: []byte("{")}))
}

func TestHandleMessage_LogsUnhandledTypesThroughZap(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	util.SetLogger(zap.New(core))
	defer util.SetLogger(nil)

	value, err := json.Marshal(models.BaseEvent{EventID: "evt-9", EventType: "SOMETHING_ELSE"})
	require.NoError(t, err)

	require.NoError(t, NewEventHandler().HandleMessage(context.Background(), kafka.Message{Value: value}))

	unhandled := logs.FilterMessage("Unhandled event type").All()
	require.Len(t, unhandled, 1)
	assert.Equal(t, "SOMETHING_ELSE", unhandled[0].ContextMap()["event_type"])
	assert.Equal(t, 1, logs.FilterMessage("Handling event").Len())
}
