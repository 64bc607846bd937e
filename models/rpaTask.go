package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Task lifecycle reported by carrier RPA bots:
//
//	queued ──► accepted ──► running ──► completed
//	   │           │            │
//	   └───────────┴────────────┴─────► failed
//
// Strictly forward-moving; failed is terminal from any state.
type TaskStatus string

const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusAccepted  TaskStatus = "accepted"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

var taskStatusRank = map[TaskStatus]int{
	TaskStatusQueued:    0,
	TaskStatusAccepted:  1,
	TaskStatusRunning:   2,
	TaskStatusCompleted: 3,
	TaskStatusFailed:    3,
}

// ParseTaskStatus converts a raw string to a TaskStatus, returning an error
// for unknown values.
func ParseTaskStatus(s string) (TaskStatus, error) {
	st := TaskStatus(s)
	switch st {
	case TaskStatusQueued, TaskStatusAccepted, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown rpa task status %q", s)
}

func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// IsTransitionAllowed returns true when moving from -> to is permitted.
// Failure is reachable from every non-terminal state; everything else only
// moves forward. Skipping intermediate states is allowed because the
// authoritative poll may observe a bot that already finished.
func IsTransitionAllowed(from, to TaskStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == TaskStatusFailed {
		return true
	}
	return taskStatusRank[to] > taskStatusRank[from]
}

// RpaTaskStatus tracks one (submission, carrier) automation run. Records are
// created at dispatch and only ever updated in place, never deleted.
type RpaTaskStatus struct {
	TaskId       string                 `json:"task_id"`
	Carrier      string                 `json:"carrier"`
	Status       TaskStatus             `json:"status"`
	SubmittedAt  *time.Time             `json:"submitted_at,omitempty"`
	AcceptedAt   *time.Time             `json:"accepted_at,omitempty"`
	RunningAt    *time.Time             `json:"running_at,omitempty"`
	CompletedAt  *time.Time             `json:"completed_at,omitempty"`
	Result       map[string]interface{} `json:"result,omitempty"`
	Error        string                 `json:"error,omitempty"`
	ErrorDetails string                 `json:"error_details,omitempty"`
}

// NewRpaTask creates a task record at dispatch time.
func NewRpaTask(carrier string, taskId string, status TaskStatus, submittedAt time.Time) *RpaTaskStatus {
	t := &RpaTaskStatus{
		TaskId:      taskId,
		Carrier:     carrier,
		Status:      TaskStatusQueued,
		SubmittedAt: &submittedAt,
	}
	if status == TaskStatusAccepted {
		// Remote bot acked synchronously.
		t.Status = TaskStatusAccepted
		t.AcceptedAt = &submittedAt
	}
	return t
}

// Advance moves the task to the target status, stamping the matching
// timestamp exactly once. Backward or repeated transitions are rejected so
// timestamps stay monotonically non-decreasing.
func (t *RpaTaskStatus) Advance(to TaskStatus, at time.Time) error {
	if !IsTransitionAllowed(t.Status, to) {
		return fmt.Errorf("invalid rpa task transition %s -> %s", t.Status, to)
	}
	switch to {
	case TaskStatusAccepted:
		if t.AcceptedAt == nil {
			t.AcceptedAt = &at
		}
	case TaskStatusRunning:
		if t.RunningAt == nil {
			t.RunningAt = &at
		}
	case TaskStatusCompleted, TaskStatusFailed:
		if t.CompletedAt == nil {
			t.CompletedAt = &at
		}
	}
	t.Status = to
	return nil
}

// Complete marks success with the carrier-specific result payload.
func (t *RpaTaskStatus) Complete(result map[string]interface{}, at time.Time) error {
	if err := t.Advance(TaskStatusCompleted, at); err != nil {
		return err
	}
	t.Result = result
	return nil
}

// Fail marks terminal failure with an operator-facing message.
func (t *RpaTaskStatus) Fail(errMsg string, details string, at time.Time) error {
	if err := t.Advance(TaskStatusFailed, at); err != nil {
		return err
	}
	t.Error = errMsg
	t.ErrorDetails = details
	return nil
}

// RpaTaskMap is the per-submission task map keyed by carrier code.
type RpaTaskMap map[string]*RpaTaskStatus

func DecodeRpaTasks(raw []byte) RpaTaskMap {
	if len(raw) == 0 {
		return RpaTaskMap{}
	}
	var m RpaTaskMap
	if err := json.Unmarshal(raw, &m); err != nil {
		return RpaTaskMap{}
	}
	if m == nil {
		m = RpaTaskMap{}
	}
	return m
}

func EncodeRpaTasks(m RpaTaskMap) []byte {
	if m == nil {
		m = RpaTaskMap{}
	}
	b, _ := json.Marshal(m)
	return b
}

// Merge overlays new dispatch entries onto the existing map. Carriers not in
// the incoming set keep their previous entries; a re-dispatched carrier's
// entry is replaced (new run, new task id).
func (m RpaTaskMap) Merge(incoming RpaTaskMap) RpaTaskMap {
	out := RpaTaskMap{}
	for carrier, task := range m {
		out[carrier] = task
	}
	for carrier, task := range incoming {
		out[carrier] = task
	}
	return out
}

// HasNonTerminal reports whether any tracked carrier still needs polling.
func (m RpaTaskMap) HasNonTerminal() bool {
	for _, task := range m {
		if task != nil && !task.Status.IsTerminal() {
			return true
		}
	}
	return false
}
