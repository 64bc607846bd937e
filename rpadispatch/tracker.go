package rpadispatch

import (
	"time"

	"github.com/coverlane/agency_backend/models"
)

// Status polling and simulated progress.
//
// Two independent sources feed the tracker view: the authoritative persisted
// task map, and a local simulation that advances early lifecycle states on
// fixed dwell timers so the progress bar moves while bots are slow to report.
// Precedence is explicit: authoritative state ALWAYS overwrites simulated
// state. The simulation never writes anything; it is a pure read-side
// derivation.
const (
	// PollInterval is how often consumers should re-read authoritative
	// status while any tracked carrier is non-terminal.
	PollInterval = 5 * time.Second

	// Dwell times before the simulation advances a task for display.
	simulatedAcceptDwell  = 2 * time.Second
	simulatedRunningDwell = 5 * time.Second

	// An automation run is presented as ~4 minutes of progress; running
	// interpolates up to 95% over that window.
	assumedRunDuration = 4 * time.Minute
)

// DisplayStatus derives the status to present for a task. Authoritative
// terminal or advanced states pass through untouched; only queued/accepted
// tasks are simulated forward based on elapsed dwell time.
func DisplayStatus(task *models.RpaTaskStatus, now time.Time) models.TaskStatus {
	if task == nil {
		return ""
	}
	switch task.Status {
	case models.TaskStatusQueued:
		if task.SubmittedAt == nil {
			return models.TaskStatusQueued
		}
		elapsed := now.Sub(*task.SubmittedAt)
		if elapsed >= simulatedAcceptDwell+simulatedRunningDwell {
			return models.TaskStatusRunning
		}
		if elapsed >= simulatedAcceptDwell {
			return models.TaskStatusAccepted
		}
		return models.TaskStatusQueued
	case models.TaskStatusAccepted:
		anchor := task.AcceptedAt
		if anchor == nil {
			anchor = task.SubmittedAt
		}
		if anchor != nil && now.Sub(*anchor) >= simulatedRunningDwell {
			return models.TaskStatusRunning
		}
		return models.TaskStatusAccepted
	default:
		return task.Status
	}
}

// ProgressPercent maps a display status to a progress-bar percentage. This
// is presentation only, not a real progress signal: running interpolates
// from 20 up to a 95 cap over the assumed run window.
func ProgressPercent(status models.TaskStatus, task *models.RpaTaskStatus, now time.Time) int {
	switch status {
	case models.TaskStatusQueued:
		return 5
	case models.TaskStatusAccepted:
		return 20
	case models.TaskStatusRunning:
		anchor := now
		if task != nil {
			switch {
			case task.RunningAt != nil:
				anchor = *task.RunningAt
			case task.AcceptedAt != nil:
				anchor = *task.AcceptedAt
			case task.SubmittedAt != nil:
				anchor = *task.SubmittedAt
			}
		}
		elapsed := now.Sub(anchor)
		if elapsed < 0 {
			elapsed = 0
		}
		pct := 20 + int(float64(75)*float64(elapsed)/float64(assumedRunDuration))
		if pct > 95 {
			pct = 95
		}
		return pct
	case models.TaskStatusCompleted, models.TaskStatusFailed:
		return 100
	default:
		return 0
	}
}

// ShouldContinuePolling reports whether a consumer should keep polling:
// true only while at least one tracked carrier is non-terminal.
func ShouldContinuePolling(tasks models.RpaTaskMap) bool {
	if len(tasks) == 0 {
		return false
	}
	return tasks.HasNonTerminal()
}

// ApplyBotStatus merges one authoritative bot report into a task record,
// unconditionally superseding any simulated display state (which is never
// persisted anyway). Backward reports from a confused bot are dropped so
// the persisted lifecycle stays forward-only.
func ApplyBotStatus(task *models.RpaTaskStatus, report map[string]interface{}, at time.Time) error {
	if task == nil || report == nil {
		return nil
	}
	rawStatus, _ := report["status"].(string)
	status, err := models.ParseTaskStatus(rawStatus)
	if err != nil {
		return err
	}
	if status == task.Status {
		return nil
	}

	switch status {
	case models.TaskStatusCompleted:
		result, _ := report["result"].(map[string]interface{})
		if result == nil {
			// Bots that report flat result fields (policy_code, quote_url,
			// sheet_url) get them carried over as the result payload.
			result = map[string]interface{}{}
			for _, key := range []string{"account_number", "policy_code", "quote_url", "sheet_url"} {
				if v, ok := report[key]; ok {
					result[key] = v
				}
			}
		}
		return task.Complete(result, at)
	case models.TaskStatusFailed:
		errMsg, _ := report["error"].(string)
		details, _ := report["error_details"].(string)
		if errMsg == "" {
			errMsg = "automation failed"
		}
		return task.Fail(errMsg, details, at)
	default:
		return task.Advance(status, at)
	}
}
