package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"deal-feed-service/internal/models"
	"deal-feed-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events to its producer's topic.
// Deal and run events go to the deals topic, commands to the command topic.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishDeals publishes one DealUpserted event per product, keyed by awin id
func (ep *EventPublisher) PublishDeals(ctx context.Context, events []*models.DealUpsertedEvent) error {
	msgs := make([]Message, 0, len(events))
	for _, e := range events {
		msgs = append(msgs, Message{Key: fmt.Sprintf("deal-%d", e.AwinID), Event: e})
	}
	return ep.producer.PublishEvents(ctx, msgs...)
}

// PublishRunCompleted publishes FeedRunCompleted event
func (ep *EventPublisher) PublishRunCompleted(ctx context.Context, event *models.FeedRunCompletedEvent) error {
	return ep.producer.PublishEvent(ctx, "feed-run", event)
}

// PublishUpdateRequested publishes FeedUpdateRequested event
func (ep *EventPublisher) PublishUpdateRequested(ctx context.Context, event *models.FeedUpdateRequestedEvent) error {
	return ep.producer.PublishEvent(ctx, "feed-command", event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onFeedUpdateRequested func(context.Context, *models.FeedUpdateRequestedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnFeedUpdateRequested registers a handler for FeedUpdateRequested events
func (eh *EventHandler) OnFeedUpdateRequested(handler func(context.Context, *models.FeedUpdateRequestedEvent) error) {
	eh.onFeedUpdateRequested = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	logger := util.GetLogger()
	logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeFeedUpdateRequested:
		if eh.onFeedUpdateRequested != nil {
			var event models.FeedUpdateRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal FeedUpdateRequested event: %w", err)
			}
			return eh.onFeedUpdateRequested(ctx, &event)
		}

	default:
		logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	}

	return nil
}
