package worker

import (
	"context"

	"deal-feed-service/internal/broker"
	"deal-feed-service/internal/models"
	"deal-feed-service/internal/service"
	"deal-feed-service/internal/util"

	"go.uber.org/zap"
)

// Trigger starts a feed run if the scheduler guards allow it
type Trigger interface {
	TriggerAsync() service.TriggerOutcome
}

// TriggerWorker turns feed command events into scheduler triggers
type TriggerWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	trigger      Trigger
	logger       *zap.Logger
}

// NewTriggerWorker creates a new trigger worker
func NewTriggerWorker(consumer *broker.Consumer, trigger Trigger) *TriggerWorker {
	w := &TriggerWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		trigger:      trigger,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnFeedUpdateRequested(w.HandleUpdateRequested)
	return w
}

// Start starts the worker
func (w *TriggerWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting feed trigger worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *TriggerWorker) Stop() error {
	w.logger.Info("Stopping feed trigger worker")
	return w.consumer.Close()
}

// HandleUpdateRequested triggers a feed run. Skipped triggers are not errors,
// so the message is committed either way.
func (w *TriggerWorker) HandleUpdateRequested(ctx context.Context, event *models.FeedUpdateRequestedEvent) error {
	outcome := w.trigger.TriggerAsync()
	w.logger.Info("Feed update requested",
		zap.String("event_id", event.EventID),
		zap.String("requested_by", event.RequestedBy),
		zap.String("outcome", string(outcome)))
	return nil
}
