package worker

import (
	"context"
	"testing"

	"deal-feed-service/internal/models"
	"deal-feed-service/internal/service"

	"github.com/stretchr/testify/assert"
)

type stubTrigger struct {
	calls   int
	outcome service.TriggerOutcome
}

func (s *stubTrigger) TriggerAsync() service.TriggerOutcome {
	s.calls++
	return s.outcome
}

func TestHandleUpdateRequested(t *testing.T) {
	trigger := &stubTrigger{outcome: service.OutcomeSkippedTooSoon}
	w := NewTriggerWorker(nil, trigger)

	err := w.HandleUpdateRequested(context.Background(), &models.FeedUpdateRequestedEvent{
		BaseEvent:   models.BaseEvent{EventID: "evt-1", EventType: models.EventTypeFeedUpdateRequested},
		RequestedBy: "ops",
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, trigger.calls)
}
