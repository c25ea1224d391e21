package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"atlas-backend/application/ports"

	"go.uber.org/zap"
)

// OutboxProcessor drains pending events from the event store and hands
// them to the event publisher. Publishing is at-least-once; consumers
// must tolerate duplicates.
type OutboxProcessor struct {
	eventStore     *EventStore
	eventPublisher ports.EventPublisher
	lock           *DistributedLock
	instanceID     string
	logger         *zap.Logger

	batchSize          int32
	processingInterval time.Duration
	maxRetries         int

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewOutboxProcessor creates a new outbox processor. The distributed lock
// keeps multiple instances from draining the outbox concurrently; pass
// nil to run unlocked (single-instance deployments, tests).
func NewOutboxProcessor(
	eventStore *EventStore,
	eventPublisher ports.EventPublisher,
	lock *DistributedLock,
	instanceID string,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		eventStore:         eventStore,
		eventPublisher:     eventPublisher,
		lock:               lock,
		instanceID:         instanceID,
		logger:             logger,
		batchSize:          50,
		processingInterval: 5 * time.Second,
		maxRetries:         3,
		stopChan:           make(chan struct{}),
		stoppedChan:        make(chan struct{}),
	}
}

// Start begins the background processing of outbox events
func (op *OutboxProcessor) Start(ctx context.Context) {
	op.logger.Info("Starting outbox processor",
		zap.Int32("batchSize", op.batchSize),
		zap.Duration("interval", op.processingInterval),
	)
	go op.processLoop(ctx)
}

// Stop gracefully stops the outbox processor
func (op *OutboxProcessor) Stop() {
	close(op.stopChan)
	<-op.stoppedChan
	op.logger.Info("Outbox processor stopped")
}

func (op *OutboxProcessor) processLoop(ctx context.Context) {
	defer close(op.stoppedChan)

	ticker := time.NewTicker(op.processingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-op.stopChan:
			return
		case <-ticker.C:
			if err := op.processBatch(ctx); err != nil {
				op.logger.Error("Error processing outbox batch", zap.Error(err))
			}
		}
	}
}

func (op *OutboxProcessor) processBatch(ctx context.Context) error {
	if op.lock != nil {
		held, err := op.lock.AcquireLock(ctx, "outbox-processor", op.instanceID, op.processingInterval*2)
		if err != nil {
			if errors.Is(err, ErrLockHeld) {
				// Another instance has this tick.
				return nil
			}
			return err
		}
		defer func() {
			if err := held.Release(ctx); err != nil {
				op.logger.Warn("Failed to release outbox lock", zap.Error(err))
			}
		}()
	}

	pending, err := op.eventStore.GetPendingEvents(ctx, op.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	successCount := 0
	for _, record := range pending {
		if err := op.processEvent(ctx, record); err != nil {
			op.logger.Error("Failed to process event",
				zap.String("eventID", record.EventID),
				zap.String("eventType", record.EventType),
				zap.Error(err),
			)
		} else {
			successCount++
		}
	}

	op.logger.Debug("Outbox batch processed",
		zap.Int("total", len(pending)),
		zap.Int("published", successCount),
	)

	return nil
}

func (op *OutboxProcessor) processEvent(ctx context.Context, record *EventRecord) error {
	event, err := op.eventStore.recordToEvent(*record)
	if err != nil {
		return op.markEventFailed(ctx, record, fmt.Sprintf("failed to convert to domain event: %v", err))
	}

	if err := op.eventPublisher.Publish(ctx, event); err != nil {
		return op.markEventFailed(ctx, record, fmt.Sprintf("publish failed: %v", err))
	}

	return op.eventStore.MarkEventAsPublished(ctx, record.PK, record.SK)
}

func (op *OutboxProcessor) markEventFailed(ctx context.Context, record *EventRecord, errorMsg string) error {
	attempts := record.PublishAttempts + 1

	if err := op.eventStore.MarkEventAsFailed(ctx, record.PK, record.SK, errorMsg, attempts); err != nil {
		return err
	}

	if attempts >= op.maxRetries {
		op.logger.Warn("Event permanently failed after max retries",
			zap.String("eventID", record.EventID),
			zap.String("eventType", record.EventType),
			zap.Int("attempts", attempts),
			zap.String("error", errorMsg),
		)
	}

	return fmt.Errorf("event processing failed: %s", errorMsg)
}
