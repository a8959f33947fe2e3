package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Submission is one transaction accepted by the node on behalf of an operator.
type Submission struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	Op        string
	Account   string
	TxHash    string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Confirmation is one admitted contract event.
type Confirmation struct {
	TxHash      string
	Kind        string
	BlockNumber int64
	SessionID   uuid.UUID
	Description *string
	ReceivedAt  time.Time
}
