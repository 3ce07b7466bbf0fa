package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	application "clipledger/contexts/finance-core/earnings-reconciliation/application"
	"clipledger/contexts/finance-core/earnings-reconciliation/ports"
)

const defaultRelayBatch = 100

// OutboxRelay ships ledger events (campaign.spend_synced, campaign.completed,
// payments.marked_paid and the like) from the outbox to the bus. Consumers
// replay a campaign's spend or a user's payments in partition order, so once
// a row fails to publish every later row with the same partition key waits
// for the next cycle. Other partitions keep flowing.
type OutboxRelay struct {
	Outbox      ports.OutboxRepository
	Publisher   ports.EventPublisher
	Clock       ports.Clock
	BatchSize   int
	TopicPrefix string
	Disabled    bool
	Logger      *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	if r.Disabled {
		return nil
	}
	limit := r.BatchSize
	if limit <= 0 {
		limit = defaultRelayBatch
	}

	rows, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("ledger event backlog unreadable",
			"event", "ledger_events_list_failed",
			"module", "finance-core/earnings-reconciliation",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	var failures []error
	blocked := make(map[string]struct{})
	shipped := make(map[string]int)
	for _, row := range rows {
		if _, held := blocked[row.PartitionKey]; held {
			continue
		}
		event, topic, err := r.decode(row)
		if err != nil {
			// A corrupt row would stall its partition forever, so it is
			// skipped and left pending for an operator.
			logger.Error("ledger event payload corrupt",
				"event", "ledger_event_decode_failed",
				"module", "finance-core/earnings-reconciliation",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"partition_key", row.PartitionKey,
				"error", err.Error(),
			)
			continue
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			blocked[row.PartitionKey] = struct{}{}
			failures = append(failures, err)
			logger.Error("ledger event not delivered, holding its partition",
				"event", "ledger_event_publish_failed",
				"module", "finance-core/earnings-reconciliation",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"partition_key", row.PartitionKey,
				"topic", topic,
				"error", err.Error(),
			)
			continue
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, r.now()); err != nil {
			// Delivered but unmarked: the row goes out again next cycle and
			// consumers dedupe on event_id.
			blocked[row.PartitionKey] = struct{}{}
			failures = append(failures, err)
			continue
		}
		shipped[event.EventType]++
	}

	for eventType, count := range shipped {
		logger.Info("ledger events delivered",
			"event", "ledger_events_delivered",
			"module", "finance-core/earnings-reconciliation",
			"layer", "worker",
			"event_type", eventType,
			"count", count,
		)
	}
	if len(blocked) > 0 {
		logger.Warn("ledger partitions held for retry",
			"event", "ledger_partitions_held",
			"module", "finance-core/earnings-reconciliation",
			"layer", "worker",
			"partitions", len(blocked),
		)
	}
	return errors.Join(failures...)
}

func (r OutboxRelay) decode(row ports.OutboxMessage) (ports.EventEnvelope, string, error) {
	var event ports.EventEnvelope
	if err := json.Unmarshal(row.Payload, &event); err != nil {
		return ports.EventEnvelope{}, "", err
	}
	if event.EventType == "" {
		event.EventType = row.EventType
	}
	return event, r.TopicPrefix + event.EventType, nil
}

func (r OutboxRelay) now() time.Time {
	if r.Clock != nil {
		return r.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
