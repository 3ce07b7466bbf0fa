package application

import (
	"context"
	"encoding/json"
	"time"

	"clipledger/contexts/finance-core/earnings-reconciliation/ports"
	"clipledger/internal/shared/events"
)

const SourceService = "earnings-reconciliation"

// AppendEvent writes one event to the outbox. A nil outbox is a no-op so use
// cases can run without event plumbing in tests and the CLI.
func AppendEvent(
	ctx context.Context,
	outbox ports.OutboxWriter,
	idGen ports.IDGenerator,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data map[string]any,
) error {
	if outbox == nil || idGen == nil {
		return nil
	}
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return outbox.AppendOutbox(ctx, events.Envelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    SourceService,
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		Data:             payload,
	})
}
