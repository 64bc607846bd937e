package rpadispatch

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/coverlane/agency_backend/config"
	"github.com/coverlane/agency_backend/models"
	"github.com/sirupsen/logrus"
)

// CarrierSubmissionResult is one carrier's independent dispatch outcome.
type CarrierSubmissionResult struct {
	Carrier  CarrierType            `json:"carrier"`
	Success  bool                   `json:"success"`
	Message  string                 `json:"message"`
	TaskId   string                 `json:"taskId,omitempty"`
	Response map[string]interface{} `json:"response,omitempty"`
}

// DispatchOutcome aggregates the per-carrier results of one fan-out.
type DispatchOutcome struct {
	Results      map[CarrierType]*CarrierSubmissionResult
	SuccessCount int
	AllSucceeded bool
}

// PartialSuccess reports the middle of the tri-state outcome: some but not
// all carriers succeeded. Agents must see this distinctly from full success
// so they know which carriers still need manual follow-up.
func (o *DispatchOutcome) PartialSuccess() bool {
	return !o.AllSucceeded && o.SuccessCount > 0
}

// Dispatcher fans one validated submission out to the selected carrier bots.
// Calls run concurrently, each with an independent timeout and independent
// failure: one carrier's timeout never cancels a sibling's in-flight call.
// There is no retry anywhere: a failed carrier is re-triggered only by a new
// explicit dispatch.
type Dispatcher struct {
	Logger  *logrus.Logger
	Timeout time.Duration

	client *botClient
	// webhookURL is overridable for tests; defaults to the registry/env chain.
	webhookURL func(ctx context.Context, carrier CarrierType) string
}

func NewDispatcher(logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		Logger:  logger,
		Timeout: DefaultDispatchTimeout,
		client:  newBotClient(DefaultDispatchTimeout),
		webhookURL: func(ctx context.Context, carrier CarrierType) string {
			return models.ResolveCarrierWebhookURL(ctx, string(carrier))
		},
	}
}

// ValidateAndDispatch is the all-or-nothing gate in front of the fan-out:
// when any selected carrier's rule fails, no webhook is contacted and the
// violation comes back instead of an outcome.
func (d *Dispatcher) ValidateAndDispatch(ctx context.Context, rec InsuredRecord, submissionId string, carriers []CarrierType, now time.Time) (*DispatchOutcome, *ValidationError) {
	if verr := ValidateForDispatch(rec, carriers, now); verr != nil {
		return nil, verr
	}
	return d.Dispatch(ctx, rec, submissionId, carriers), nil
}

// Dispatch builds every selected carrier's payload and posts them in
// parallel, awaiting all outcomes before returning (no partial early
// return). The caller must have run ValidateForDispatch first.
func (d *Dispatcher) Dispatch(ctx context.Context, rec InsuredRecord, submissionId string, carriers []CarrierType) *DispatchOutcome {
	now := time.Now()

	outcome := &DispatchOutcome{
		Results: make(map[CarrierType]*CarrierSubmissionResult, len(carriers)),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, carrier := range carriers {
		builder, ok := BuilderFor(carrier)
		if !ok {
			outcome.Results[carrier] = &CarrierSubmissionResult{
				Carrier: carrier,
				Success: false,
				Message: "no builder registered for carrier",
			}
			continue
		}

		payload := builder.BuildPayload(rec, submissionId, now)
		webhook := d.webhookURL(ctx, carrier)

		wg.Add(1)
		go func(carrier CarrierType, payload map[string]interface{}, webhook string) {
			defer wg.Done()
			result := d.dispatchOne(ctx, carrier, payload, webhook)
			mu.Lock()
			outcome.Results[carrier] = result
			mu.Unlock()
		}(carrier, payload, webhook)
	}
	wg.Wait()

	for _, result := range outcome.Results {
		if result.Success {
			outcome.SuccessCount++
		}
	}
	outcome.AllSucceeded = outcome.SuccessCount == len(outcome.Results) && len(outcome.Results) > 0

	return outcome
}

func (d *Dispatcher) dispatchOne(ctx context.Context, carrier CarrierType, payload map[string]interface{}, webhook string) *CarrierSubmissionResult {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := d.client.post(callCtx, webhook, payload)
	if err != nil {
		msg := err.Error()
		var uerr *url.Error
		if errors.As(err, &uerr) || errors.Is(err, context.DeadlineExceeded) {
			msg = classifyDispatchError(err, timeout)
		}
		if d.Logger != nil {
			config.LogError(d.Logger, "rpadispatch", "dispatchOne", "carrier "+string(carrier), payload, err)
		}
		return &CarrierSubmissionResult{
			Carrier: carrier,
			Success: false,
			Message: msg,
		}
	}

	// Prefer the bot-assigned task id; fall back to the synthesized one we
	// sent in the payload.
	taskId, _ := payload["task_id"].(string)
	if v, ok := resp["task_id"].(string); ok && v != "" {
		taskId = v
	}

	message := "automation started"
	if v, ok := resp["message"].(string); ok && v != "" {
		message = v
	}

	return &CarrierSubmissionResult{
		Carrier:  carrier,
		Success:  true,
		Message:  message,
		TaskId:   taskId,
		Response: resp,
	}
}

// TaskMapFromOutcome builds the new task entries for this dispatch: one
// queued record per carrier that returned a task identifier (accepted when
// the bot's synchronous response already says so). Failed carriers get no
// entry; their previous run's record, if any, is left untouched by Merge.
func TaskMapFromOutcome(outcome *DispatchOutcome, submittedAt time.Time) models.RpaTaskMap {
	tasks := models.RpaTaskMap{}
	for carrier, result := range outcome.Results {
		if !result.Success || result.TaskId == "" {
			continue
		}
		status := models.TaskStatusQueued
		if v, ok := result.Response["status"].(string); ok {
			if parsed, err := models.ParseTaskStatus(v); err == nil && parsed == models.TaskStatusAccepted {
				status = models.TaskStatusAccepted
			}
		}
		tasks[string(carrier)] = models.NewRpaTask(string(carrier), result.TaskId, status, submittedAt)
	}
	return tasks
}
