package coordinator

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExecute_AllStepsSucceed(t *testing.T) {
	c, err := New([]string{"true", "echo hello"}, []string{"first", "second"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result := c.Execute(context.Background())
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if result.FailedStep != -1 {
		t.Fatalf("FailedStep = %d, want -1", result.FailedStep)
	}
	for _, s := range result.Steps {
		if s.Status != StepSuccess {
			t.Fatalf("step %q status = %v, want success", s.Command, s.Status)
		}
	}
}

func TestExecute_StopsOnErrorAndSkipsRemaining(t *testing.T) {
	c, err := New([]string{"true", "false", "echo unreachable"}, nil, WithStopOnError(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result := c.Execute(context.Background())
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.FailedStep != 1 {
		t.Fatalf("FailedStep = %d, want 1", result.FailedStep)
	}
	if result.Steps[0].Status != StepSuccess {
		t.Fatalf("step 0 status = %v, want success", result.Steps[0].Status)
	}
	if result.Steps[1].Status != StepFailed {
		t.Fatalf("step 1 status = %v, want failed", result.Steps[1].Status)
	}
	if result.Steps[2].Status != StepSkipped {
		t.Fatalf("step 2 status = %v, want skipped", result.Steps[2].Status)
	}
}

func TestExecute_ContinuesWhenStopOnErrorDisabled(t *testing.T) {
	c, err := New([]string{"false", "true"}, nil, WithStopOnError(false))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result := c.Execute(context.Background())
	if result.Success {
		t.Fatal("expected overall failure since one step failed")
	}
	if result.Steps[1].Status != StepSuccess {
		t.Fatalf("step 1 status = %v, want success (should still have run)", result.Steps[1].Status)
	}
}

func TestExecute_TimeoutProducesFailedStepWithMessage(t *testing.T) {
	c, err := New([]string{"sleep 2"}, nil, WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result := c.Execute(context.Background())
	if result.Success {
		t.Fatal("expected timeout failure")
	}
	if result.Steps[0].Status != StepFailed {
		t.Fatalf("status = %v, want failed", result.Steps[0].Status)
	}
	if result.ErrorMessage == "" {
		t.Fatal("expected a timeout error message")
	}
}

func TestExecute_RollbackRunsInReverseOrderOnFailure(t *testing.T) {
	dir := t.TempDir()
	rollbackLog := filepath.Join(dir, "rollback.log")

	entries := []PlanEntry{
		{Command: "echo step1 >> " + rollbackLog, Rollback: "echo undo1 >> " + rollbackLog},
		{Command: "false", Rollback: "echo undo2 >> " + rollbackLog},
	}
	enable := true
	c, err := FromPlan(entries, &enable)
	if err != nil {
		t.Fatalf("FromPlan: %v", err)
	}

	result := c.Execute(context.Background())
	if result.Success {
		t.Fatal("expected failure")
	}

	data, err := os.ReadFile(rollbackLog)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	got := string(data)
	want := "step1\nundo2\nundo1\n"
	if got != want {
		t.Fatalf("rollback log = %q, want %q", got, want)
	}
}

func TestFromPlan_InfersRollbackEnablement(t *testing.T) {
	withRollback, err := FromPlan([]PlanEntry{{Command: "true", Rollback: "true"}}, nil)
	if err != nil {
		t.Fatalf("FromPlan: %v", err)
	}
	if !withRollback.enableRollback {
		t.Fatal("expected rollback to be auto-enabled when rollback commands are present")
	}

	withoutRollback, err := FromPlan([]PlanEntry{{Command: "true"}}, nil)
	if err != nil {
		t.Fatalf("FromPlan: %v", err)
	}
	if withoutRollback.enableRollback {
		t.Fatal("expected rollback to stay disabled with no rollback commands")
	}
}

func TestNew_MismatchedDescriptionsReturnsError(t *testing.T) {
	if _, err := New([]string{"true", "true"}, []string{"only one"}); err == nil {
		t.Fatal("expected error for mismatched descriptions length")
	}
}

func TestProgressCallback_InvokedBeforeEachStep(t *testing.T) {
	var seen []int
	c, err := New([]string{"true", "true", "true"}, nil, WithProgressCallback(func(current, total int, step *Step) {
		seen = append(seen, current)
		if total != 3 {
			t.Fatalf("total = %d, want 3", total)
		}
		if step.Status != StepPending {
			t.Fatalf("step status at callback time = %v, want pending", step.Status)
		}
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.Execute(context.Background())
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Fatalf("seen = %v, want [1 2 3]", seen)
	}
}

func TestVerifyInstallation_ReportsPerCommandResult(t *testing.T) {
	c, err := New([]string{"true"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	results := c.VerifyInstallation(context.Background(), []string{"true", "false"})
	if !results["true"] {
		t.Fatal("expected 'true' to verify successfully")
	}
	if results["false"] {
		t.Fatal("expected 'false' to fail verification")
	}
}

func TestGetSummary_TalliesStatuses(t *testing.T) {
	c, err := New([]string{"true", "false", "true"}, nil, WithStopOnError(true))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Execute(context.Background())

	summary := c.GetSummary()
	if summary.TotalSteps != 3 {
		t.Fatalf("TotalSteps = %d, want 3", summary.TotalSteps)
	}
	if summary.Success != 1 || summary.Failed != 1 || summary.Skipped != 1 {
		t.Fatalf("summary = %+v, want 1/1/1", summary)
	}
}

func TestExportLog_WritesValidJSON(t *testing.T) {
	c, err := New([]string{"true"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Execute(context.Background())

	path := filepath.Join(t.TempDir(), "log.json")
	if err := c.ExportLog(path); err != nil {
		t.Fatalf("ExportLog: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if summary.TotalSteps != 1 {
		t.Fatalf("TotalSteps = %d, want 1", summary.TotalSteps)
	}
}
