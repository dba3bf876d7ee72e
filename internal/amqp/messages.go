package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChangeOp names the expense mutation that triggered a message.
type ChangeOp string

const (
	OpCreated ChangeOp = "created"
	OpUpdated ChangeOp = "updated"
	OpDeleted ChangeOp = "deleted"
)

var ErrInvalidMessage = errors.New("invalid expense changed message")

// ExpenseChangedMessage tells alert workers that a family's spend may have moved.
// It carries identifiers only; the worker re-reads current state from storage.
type ExpenseChangedMessage struct {
	ID        uuid.UUID `json:"id"`
	FamilyID  string    `json:"family_id"`
	ExpenseID int64     `json:"expense_id"`
	Op        ChangeOp  `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseChangedMessage creates a message with a fresh id
func NewExpenseChangedMessage(familyID string, expenseID int64, op ChangeOp) *ExpenseChangedMessage {
	return &ExpenseChangedMessage{
		ID:        uuid.New(),
		FamilyID:  familyID,
		ExpenseID: expenseID,
		Op:        op,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseChangedMessage) Validate() error {
	if m.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	if m.FamilyID == "" {
		return fmt.Errorf("%w: missing family_id", ErrInvalidMessage)
	}
	switch m.Op {
	case OpCreated, OpUpdated, OpDeleted:
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidMessage, m.Op)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseChangedMessageFromJSON decodes and validates a message body
func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
