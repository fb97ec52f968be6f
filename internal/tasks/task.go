// Package tasks holds the task model, the store adapter over the hosted data
// table and the in-memory task list view.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"
)

// Status labels.
const (
	StatusCompleted = "Completed"
	StatusPending   = "Pending"
)

// ID is a task identifier assigned by the data table.
// It decodes from either a JSON string (uuid keys) or a JSON number (serial keys).
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid task id: %s", b)
	}
	*id = ID(n.String())
	return nil
}

// Task is one row of the todos table.
type Task struct {
	ID        ID        `json:"id"`
	OwnerID   string    `json:"user_id"`
	Title     string    `json:"title"`
	Completed bool      `json:"is_completed"`
	CreatedAt time.Time `json:"created_at"`

	// Position is only written when list order is persisted.
	Position *int `json:"position,omitempty"`
}

// Status returns the label shown for t.
func Status(t Task) string {
	if t.Completed {
		return StatusCompleted
	}
	return StatusPending
}

// newTask is the row written by Create.
type newTask struct {
	Title     string `json:"title"`
	OwnerID   string `json:"user_id"`
	Completed bool   `json:"is_completed"`
}
