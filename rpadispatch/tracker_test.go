package rpadispatch

import (
	"testing"
	"time"

	"github.com/coverlane/agency_backend/models"
)

var trackerTestTime = time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC)

func queuedTask(submittedAt time.Time) *models.RpaTaskStatus {
	return models.NewRpaTask("meridian", "meridian_sub-1_1", models.TaskStatusQueued, submittedAt)
}

func TestDisplayStatus_SimulatesQueuedForward(t *testing.T) {
	task := queuedTask(trackerTestTime)

	cases := []struct {
		after    time.Duration
		expected models.TaskStatus
	}{
		{0, models.TaskStatusQueued},
		{1 * time.Second, models.TaskStatusQueued},
		{2 * time.Second, models.TaskStatusAccepted},
		{6 * time.Second, models.TaskStatusAccepted},
		{7 * time.Second, models.TaskStatusRunning},
		{10 * time.Minute, models.TaskStatusRunning},
	}
	for _, tc := range cases {
		got := DisplayStatus(task, trackerTestTime.Add(tc.after))
		if got != tc.expected {
			t.Fatalf("after %s expected %s, got %s", tc.after, tc.expected, got)
		}
	}
	// The simulation is read-side only; the task itself never moves.
	if task.Status != models.TaskStatusQueued {
		t.Fatalf("simulation must not mutate the task, status is %s", task.Status)
	}
}

func TestDisplayStatus_SimulatesAcceptedForward(t *testing.T) {
	task := models.NewRpaTask("meridian", "t1", models.TaskStatusAccepted, trackerTestTime)

	if got := DisplayStatus(task, trackerTestTime.Add(4*time.Second)); got != models.TaskStatusAccepted {
		t.Fatalf("before running dwell expected accepted, got %s", got)
	}
	if got := DisplayStatus(task, trackerTestTime.Add(5*time.Second)); got != models.TaskStatusRunning {
		t.Fatalf("after running dwell expected running, got %s", got)
	}
}

func TestDisplayStatus_AuthoritativeStatePassesThrough(t *testing.T) {
	task := queuedTask(trackerTestTime)
	if err := task.Advance(models.TaskStatusRunning, trackerTestTime.Add(time.Second)); err != nil {
		t.Fatalf("advance error: %v", err)
	}
	if got := DisplayStatus(task, trackerTestTime.Add(time.Second)); got != models.TaskStatusRunning {
		t.Fatalf("running must pass through, got %s", got)
	}

	if err := task.Complete(nil, trackerTestTime.Add(2*time.Second)); err != nil {
		t.Fatalf("complete error: %v", err)
	}
	// No dwell timer may ever move a terminal task.
	if got := DisplayStatus(task, trackerTestTime.Add(time.Hour)); got != models.TaskStatusCompleted {
		t.Fatalf("completed must pass through, got %s", got)
	}
}

func TestProgressPercent(t *testing.T) {
	task := queuedTask(trackerTestTime)

	if got := ProgressPercent(models.TaskStatusQueued, task, trackerTestTime); got != 5 {
		t.Fatalf("queued expected 5, got %d", got)
	}
	if got := ProgressPercent(models.TaskStatusAccepted, task, trackerTestTime); got != 20 {
		t.Fatalf("accepted expected 20, got %d", got)
	}
	if got := ProgressPercent(models.TaskStatusCompleted, task, trackerTestTime); got != 100 {
		t.Fatalf("completed expected 100, got %d", got)
	}
	if got := ProgressPercent(models.TaskStatusFailed, task, trackerTestTime); got != 100 {
		t.Fatalf("failed expected 100, got %d", got)
	}
}

func TestProgressPercent_RunningInterpolates(t *testing.T) {
	task := queuedTask(trackerTestTime)
	if err := task.Advance(models.TaskStatusRunning, trackerTestTime); err != nil {
		t.Fatalf("advance error: %v", err)
	}

	if got := ProgressPercent(models.TaskStatusRunning, task, trackerTestTime); got != 20 {
		t.Fatalf("at start of run expected 20, got %d", got)
	}
	// Halfway through the assumed 4 minute window: 20 + 75/2.
	if got := ProgressPercent(models.TaskStatusRunning, task, trackerTestTime.Add(2*time.Minute)); got != 57 {
		t.Fatalf("halfway expected 57, got %d", got)
	}
	// Caps at 95 no matter how long the bot runs.
	if got := ProgressPercent(models.TaskStatusRunning, task, trackerTestTime.Add(time.Hour)); got != 95 {
		t.Fatalf("long run expected cap 95, got %d", got)
	}
}

func TestShouldContinuePolling(t *testing.T) {
	if ShouldContinuePolling(models.RpaTaskMap{}) {
		t.Fatal("empty map must not poll")
	}

	tasks := models.RpaTaskMap{"meridian": queuedTask(trackerTestTime)}
	if !ShouldContinuePolling(tasks) {
		t.Fatal("non-terminal task must keep polling")
	}

	if err := tasks["meridian"].Fail("automation failed", "", trackerTestTime); err != nil {
		t.Fatalf("fail error: %v", err)
	}
	if ShouldContinuePolling(tasks) {
		t.Fatal("all-terminal map must stop polling")
	}
}

func TestApplyBotStatus_AuthoritativeOverwrite(t *testing.T) {
	task := queuedTask(trackerTestTime)
	report := map[string]interface{}{
		"status": "completed",
		"result": map[string]interface{}{"quote_url": "https://columbia.example/q/123"},
	}
	if err := ApplyBotStatus(task, report, trackerTestTime.Add(time.Minute)); err != nil {
		t.Fatalf("apply error: %v", err)
	}
	if task.Status != models.TaskStatusCompleted {
		t.Fatalf("expected completed, got %s", task.Status)
	}
	if task.Result["quote_url"] != "https://columbia.example/q/123" {
		t.Fatalf("result not carried over: %+v", task.Result)
	}
}

func TestApplyBotStatus_FlatResultFields(t *testing.T) {
	task := queuedTask(trackerTestTime)
	report := map[string]interface{}{
		"status":      "completed",
		"policy_code": "CP-2024-889",
		"quote_url":   "https://meridian.example/q/1",
	}
	if err := ApplyBotStatus(task, report, trackerTestTime.Add(time.Minute)); err != nil {
		t.Fatalf("apply error: %v", err)
	}
	if task.Result["policy_code"] != "CP-2024-889" {
		t.Fatalf("flat fields not carried into result: %+v", task.Result)
	}
}

func TestApplyBotStatus_BackwardReportDropped(t *testing.T) {
	task := queuedTask(trackerTestTime)
	if err := task.Advance(models.TaskStatusRunning, trackerTestTime); err != nil {
		t.Fatalf("advance error: %v", err)
	}

	err := ApplyBotStatus(task, map[string]interface{}{"status": "accepted"}, trackerTestTime.Add(time.Minute))
	if err == nil {
		t.Fatal("backward report must be rejected")
	}
	if task.Status != models.TaskStatusRunning {
		t.Fatalf("task must be unchanged, got %s", task.Status)
	}
}

func TestApplyBotStatus_FailureDefaultsMessage(t *testing.T) {
	task := queuedTask(trackerTestTime)
	if err := ApplyBotStatus(task, map[string]interface{}{"status": "failed"}, trackerTestTime); err != nil {
		t.Fatalf("apply error: %v", err)
	}
	if task.Error != "automation failed" {
		t.Fatalf("expected default failure message, got %q", task.Error)
	}
}

func TestApplyBotStatus_UnknownStatus(t *testing.T) {
	task := queuedTask(trackerTestTime)
	if err := ApplyBotStatus(task, map[string]interface{}{"status": "exploded"}, trackerTestTime); err == nil {
		t.Fatal("unknown status must error")
	}
}
