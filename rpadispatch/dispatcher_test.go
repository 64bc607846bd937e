package rpadispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coverlane/agency_backend/models"
)

func testDispatcher(timeout time.Duration, urls map[CarrierType]string) *Dispatcher {
	return &Dispatcher{
		Timeout: timeout,
		client:  newBotClient(timeout),
		webhookURL: func(ctx context.Context, carrier CarrierType) string {
			return urls[carrier]
		},
	}
}

func okBotServer(t *testing.T, response map[string]interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bot received malformed payload: %v", err)
		}
		if payload["action"] != "start_automation" {
			t.Errorf("bot expected start_automation, got %v", payload["action"])
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func hangingBotServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client disconnect and cancel r.Context(); otherwise the handler
		// never returns and srv.Close deadlocks in cleanup.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDispatch_AllSucceed(t *testing.T) {
	ok := okBotServer(t, map[string]interface{}{"status": "accepted", "message": "bot started"})
	d := testDispatcher(2*time.Second, map[CarrierType]string{
		CarrierMeridian: ok.URL,
		CarrierLakeland: ok.URL,
		CarrierColumbia: ok.URL,
	})

	outcome := d.Dispatch(context.Background(), testRecord(), "sub-1", AllCarriers)
	if !outcome.AllSucceeded || outcome.PartialSuccess() {
		t.Fatalf("expected full success, got %+v", outcome)
	}
	if outcome.SuccessCount != 3 {
		t.Fatalf("expected 3 successes, got %d", outcome.SuccessCount)
	}
	for _, carrier := range AllCarriers {
		result := outcome.Results[carrier]
		if result == nil || !result.Success {
			t.Fatalf("carrier %s expected success, got %+v", carrier, result)
		}
		if result.Message != "bot started" {
			t.Fatalf("carrier %s expected bot message, got %q", carrier, result.Message)
		}
	}
}

func TestDispatch_PartialSuccess(t *testing.T) {
	ok := okBotServer(t, map[string]interface{}{"message": "started"})
	hanging := hangingBotServer(t)

	d := testDispatcher(300*time.Millisecond, map[CarrierType]string{
		CarrierMeridian: ok.URL,
		CarrierLakeland: hanging.URL,
	})

	started := time.Now()
	outcome := d.Dispatch(context.Background(), testRecord(), "sub-1", []CarrierType{CarrierMeridian, CarrierLakeland})
	if time.Since(started) > 5*time.Second {
		t.Fatal("dispatch did not respect the per-call timeout")
	}

	if outcome.AllSucceeded {
		t.Fatal("expected partial outcome, got full success")
	}
	if !outcome.PartialSuccess() {
		t.Fatalf("expected partial success, got %+v", outcome)
	}

	meridian := outcome.Results[CarrierMeridian]
	if meridian == nil || !meridian.Success {
		t.Fatalf("meridian expected success despite lakeland timeout, got %+v", meridian)
	}
	lakeland := outcome.Results[CarrierLakeland]
	if lakeland == nil || lakeland.Success {
		t.Fatalf("lakeland expected failure, got %+v", lakeland)
	}
	if !strings.Contains(lakeland.Message, "timed out") {
		t.Fatalf("lakeland failure expected timeout classification, got %q", lakeland.Message)
	}

	// The task map carries meridian and nothing for lakeland.
	tasks := TaskMapFromOutcome(outcome, time.Now())
	if tasks["meridian"] == nil {
		t.Fatal("successful carrier expected a task entry")
	}
	if tasks["meridian"].Status != models.TaskStatusQueued {
		t.Fatalf("dispatched task expected queued, got %s", tasks["meridian"].Status)
	}
	if _, ok := tasks["lakeland"]; ok {
		t.Fatal("failed carrier must have no task entry")
	}
}

func TestDispatch_AllFail(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bot crashed", http.StatusInternalServerError)
	}))
	t.Cleanup(failing.Close)

	d := testDispatcher(time.Second, map[CarrierType]string{
		CarrierMeridian: failing.URL,
		CarrierColumbia: failing.URL,
	})

	outcome := d.Dispatch(context.Background(), testRecord(), "sub-1", []CarrierType{CarrierMeridian, CarrierColumbia})
	if outcome.AllSucceeded || outcome.PartialSuccess() || outcome.SuccessCount != 0 {
		t.Fatalf("expected total failure, got %+v", outcome)
	}
	for _, result := range outcome.Results {
		if !strings.Contains(result.Message, "bot returned status 500") {
			t.Fatalf("expected status classification, got %q", result.Message)
		}
	}

	if tasks := TaskMapFromOutcome(outcome, time.Now()); len(tasks) != 0 {
		t.Fatalf("total failure must produce no task entries, got %v", tasks)
	}
}

func TestDispatch_BotTaskIdWins(t *testing.T) {
	ok := okBotServer(t, map[string]interface{}{"task_id": "bot-assigned-77", "status": "accepted"})
	d := testDispatcher(time.Second, map[CarrierType]string{CarrierMeridian: ok.URL})

	outcome := d.Dispatch(context.Background(), testRecord(), "sub-1", []CarrierType{CarrierMeridian})
	result := outcome.Results[CarrierMeridian]
	if result.TaskId != "bot-assigned-77" {
		t.Fatalf("expected bot task id, got %q", result.TaskId)
	}

	tasks := TaskMapFromOutcome(outcome, time.Now())
	if tasks["meridian"].Status != models.TaskStatusAccepted {
		t.Fatalf("synchronous ack expected accepted entry, got %s", tasks["meridian"].Status)
	}
	if tasks["meridian"].AcceptedAt == nil {
		t.Fatal("accepted entry expected acceptedAt stamp")
	}
}

func TestDispatch_SynthesizedTaskIdFallback(t *testing.T) {
	ok := okBotServer(t, map[string]interface{}{"message": "started"})
	d := testDispatcher(time.Second, map[CarrierType]string{CarrierColumbia: ok.URL})

	outcome := d.Dispatch(context.Background(), testRecord(), "sub-9", []CarrierType{CarrierColumbia})
	result := outcome.Results[CarrierColumbia]
	if !strings.HasPrefix(result.TaskId, "columbia_sub-9_") {
		t.Fatalf("expected synthesized task id, got %q", result.TaskId)
	}
}

func TestValidationGateBlocksAllNetworkCalls(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("{}"))
	}))
	t.Cleanup(srv.Close)

	d := testDispatcher(time.Second, map[CarrierType]string{
		CarrierMeridian: srv.URL,
		CarrierColumbia: srv.URL,
	})

	// Columbia's sq footage rule blocks the batch; meridian, which has no
	// footage rule, must not be contacted either.
	rec := testRecord()
	rec.Fein = ""
	rec.TotalSqFootage = "2000"
	carriers := []CarrierType{CarrierMeridian, CarrierColumbia}

	outcome, verr := d.ValidateAndDispatch(context.Background(), rec, "sub-1", carriers, time.Now())
	if verr == nil || verr.Field != "totalSqFootage" {
		t.Fatalf("expected totalSqFootage violation, got %v", verr)
	}
	if outcome != nil {
		t.Fatalf("expected no outcome on validation failure, got %+v", outcome)
	}
	if n := atomic.LoadInt32(&calls); n != 0 {
		t.Fatalf("validation failure must prevent every webhook call, saw %d", n)
	}

	// Control: the same gate with a valid record reaches every carrier.
	rec.TotalSqFootage = "4200"
	outcome, verr = d.ValidateAndDispatch(context.Background(), rec, "sub-1", carriers, time.Now())
	if verr != nil {
		t.Fatalf("unexpected violation: %+v", verr)
	}
	if outcome == nil || !outcome.AllSucceeded {
		t.Fatalf("expected full success once valid, got %+v", outcome)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected 2 webhook calls after passing the gate, saw %d", n)
	}
}

func TestDispatchMergePreservesCallbackResults(t *testing.T) {
	submitted := time.Now().Add(-time.Hour)
	stored := models.RpaTaskMap{
		"meridian": models.NewRpaTask("meridian", "t-meridian", models.TaskStatusQueued, submitted),
		"lakeland": models.NewRpaTask("lakeland", "t-lakeland", models.TaskStatusQueued, submitted),
	}

	// A bot completes meridian while a lakeland re-dispatch is in flight.
	if err := ApplyBotStatus(stored["meridian"], map[string]interface{}{
		"status": "completed",
		"result": map[string]interface{}{"account_number": "AC-9"},
	}, time.Now()); err != nil {
		t.Fatal(err)
	}

	outcome := &DispatchOutcome{
		Results: map[CarrierType]*CarrierSubmissionResult{
			CarrierLakeland: {Carrier: CarrierLakeland, Success: true, TaskId: "t-lakeland-2"},
		},
	}

	// Merging against the current map (re-read under the submission lock)
	// keeps the completed entry; a snapshot taken before the callback would
	// have reverted it to queued.
	merged := stored.Merge(TaskMapFromOutcome(outcome, time.Now()))
	if merged["meridian"].Status != models.TaskStatusCompleted {
		t.Fatalf("completed entry reverted by merge: %+v", merged["meridian"])
	}
	if merged["meridian"].Result["account_number"] != "AC-9" {
		t.Fatalf("completed result lost in merge: %+v", merged["meridian"].Result)
	}
	if merged["lakeland"].TaskId != "t-lakeland-2" {
		t.Fatalf("re-dispatched lakeland entry expected, got %+v", merged["lakeland"])
	}
}

func TestDispatch_UnreachableEndpoint(t *testing.T) {
	d := testDispatcher(2*time.Second, map[CarrierType]string{
		CarrierMeridian: "http://127.0.0.1:1",
	})
	outcome := d.Dispatch(context.Background(), testRecord(), "sub-1", []CarrierType{CarrierMeridian})
	result := outcome.Results[CarrierMeridian]
	if result.Success {
		t.Fatal("expected failure for unreachable endpoint")
	}
	if !strings.Contains(result.Message, "unreachable") {
		t.Fatalf("expected unreachable classification, got %q", result.Message)
	}
}
