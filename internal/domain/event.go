package domain

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of domain event.
type EventType string

const (
	EventNodeCreated             EventType = "NODE_CREATED"
	EventNodeUpdated             EventType = "NODE_UPDATED"
	EventNodeDeleted             EventType = "NODE_DELETED"
	EventNodeChildrenRegenerated EventType = "NODE_CHILDREN_REGENERATED"
)

// AllNodeEvents lists every event a tree mutation can produce.
var AllNodeEvents = []EventType{
	EventNodeCreated,
	EventNodeUpdated,
	EventNodeDeleted,
	EventNodeChildrenRegenerated,
}

// AggregateNode is the aggregate type of node events.
const AggregateNode = "node"

// DomainEvent is an immutable record of a committed tree mutation.
type DomainEvent struct {
	EventID       string    `json:"event_id"`
	EventType     EventType `json:"event_type"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   string    `json:"aggregate_id"`
	Payload       []byte    `json:"payload"`
	CreatedAt     time.Time `json:"created_at"`
}

// NodePayload describes the node touched by a create, update or delete.
type NodePayload struct {
	NodeID   int64  `json:"node_id"`
	Name     string `json:"name,omitempty"`
	ParentID *int64 `json:"parent_id,omitempty"`
	// Removed is the number of nodes a delete took with it, the node included.
	Removed int64 `json:"removed,omitempty"`
}

// ChildrenRegeneratedPayload describes a sub-node regeneration.
type ChildrenRegeneratedPayload struct {
	ParentID int64   `json:"parent_id"`
	Count    int     `json:"count"`
	ChildIDs []int64 `json:"child_ids"`
}

// NewNodeEvent builds a node event with a time-ordered id.
func NewNodeEvent(eventType EventType, nodeID int64, payload any) (*DomainEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return &DomainEvent{
		EventID:       id.String(),
		EventType:     eventType,
		AggregateType: AggregateNode,
		AggregateID:   strconv.FormatInt(nodeID, 10),
		Payload:       data,
		CreatedAt:     time.Now().UTC(),
	}, nil
}
