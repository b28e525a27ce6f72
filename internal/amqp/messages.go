package amqp

import (
	"encoding/json"
	"time"

	"expensetracker/internal/core"
)

// ExpenseEvent announces a completed write to the expense list. It carries no
// expense data; consumers fetch what they need from the API.
type ExpenseEvent struct {
	Kind      string    `json:"kind"`
	ExpenseID int64     `json:"expense_id"`
	Username  string    `json:"username,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseEvent converts a controller mutation into a broker message.
func NewExpenseEvent(ev core.MutationEvent, username string) *ExpenseEvent {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &ExpenseEvent{
		Kind:      string(ev.Kind),
		ExpenseID: ev.ExpenseID,
		Username:  username,
		Timestamp: ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON parses a message body.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
