package enums

import "slices"

// OutboxAggregateType is the owning aggregate of an outbox row.
type OutboxAggregateType string

const AggregateSignboard OutboxAggregateType = "signboard"

var aggregateTypes = []OutboxAggregateType{AggregateSignboard}

func (a OutboxAggregateType) IsValid() bool {
	return slices.Contains(aggregateTypes, a)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseEnum(aggregateTypes, value, "aggregate type")
}

// OutboxEventType is the domain event carried in an outbox row and in the
// event_type attribute of the published message.
type OutboxEventType string

const (
	EventSignboardQuantityChanged OutboxEventType = "signboard_quantity_changed"
	EventSignboardDeleted         OutboxEventType = "signboard_deleted"
)

var outboxEventTypes = []OutboxEventType{
	EventSignboardQuantityChanged,
	EventSignboardDeleted,
}

func (e OutboxEventType) IsValid() bool {
	return slices.Contains(outboxEventTypes, e)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseEnum(outboxEventTypes, value, "event type")
}

// OutboxDLQErrorReason says why a row was moved to outbox_dlq.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

func (r OutboxDLQErrorReason) IsValid() bool {
	return r == OutboxDLQReasonMaxAttempts || r == OutboxDLQReasonNonRetryable
}
