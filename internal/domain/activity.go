package domain

import (
	"encoding/json"
	"time"
)

// Activity is an append-only record of a group change. Unpublished
// entries double as an outbox for downstream consumers.
type Activity struct {
	ID                string
	GroupID           string
	ActorMembershipID string // empty when the actor's membership was removed
	EventType         EventType
	SubjectID         string
	Metadata          JSON
	CreatedAt         time.Time
	PublishedAt       *time.Time
}

// JSON is free-form activity metadata.
type JSON map[string]any

// EventType names a group change.
type EventType string

const (
	EventGroupCreated          EventType = "group.created"
	EventGroupRenamed          EventType = "group.renamed"
	EventMemberAdded           EventType = "member.added"
	EventMemberRoleChanged     EventType = "member.role_changed"
	EventMemberRemoved         EventType = "member.removed"
	EventExpenseCreated        EventType = "expense.created"
	EventExpenseUpdated        EventType = "expense.updated"
	EventSettlementBatchCreate EventType = "settlement_batch.created"
	EventSettlementBatchVoided EventType = "settlement_batch.voided"
	EventSettlementPaid        EventType = "settlement.paid"
)

// MarshalState converts a value to activity metadata.
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}
