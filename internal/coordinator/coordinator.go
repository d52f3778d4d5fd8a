// Package coordinator executes multi-step installation plans:
// a step-executor state machine with shell-exec-with-timeout, stop-on-error
// plus reverse-order rollback, progress callbacks, and verification.
package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"cortex/internal/logging"
)

// StepStatus is a step's lifecycle state.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// Step is one command in an installation plan.
type Step struct {
	Command     string
	Description string
	Rollback    string

	Status     StepStatus
	Output     string
	Error      string
	StartTime  time.Time
	EndTime    time.Time
	ReturnCode int
}

// Duration returns the step's execution time, or zero if it never ran.
func (s *Step) Duration() time.Duration {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// PlanEntry is one LLM-produced plan step, as consumed by FromPlan.
type PlanEntry struct {
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Rollback    string `json:"rollback,omitempty"`
}

// Result is the outcome of running a full plan.
type Result struct {
	Success       bool
	Steps         []*Step
	TotalDuration time.Duration
	FailedStep    int // -1 if no step failed
	ErrorMessage  string
}

// ProgressFunc is invoked synchronously before each step executes, with
// (current 1-based index, total steps, the step about to run).
type ProgressFunc func(current, total int, step *Step)

// maxOutputBytes caps combined stdout+stderr per step.
const maxOutputBytes = 50000

// Coordinator runs an ordered list of Steps with a shared timeout,
// optional stop-on-error + rollback, and an optional progress callback.
type Coordinator struct {
	steps            []*Step
	timeout          time.Duration
	stopOnError      bool
	enableRollback   bool
	logFile          string
	progressCallback ProgressFunc
	rollbackCommands []string
}

// Option configures a Coordinator at construction.
type Option func(*Coordinator)

func WithTimeout(timeout time.Duration) Option { return func(c *Coordinator) { c.timeout = timeout } }
func WithStopOnError(stop bool) Option         { return func(c *Coordinator) { c.stopOnError = stop } }
func WithRollback(enable bool) Option          { return func(c *Coordinator) { c.enableRollback = enable } }
func WithLogFile(path string) Option           { return func(c *Coordinator) { c.logFile = path } }
func WithProgressCallback(fn ProgressFunc) Option {
	return func(c *Coordinator) { c.progressCallback = fn }
}

// New builds a Coordinator from parallel commands/descriptions slices.
// descriptions may be nil, in which case steps are named "Step N".
func New(commands, descriptions []string, opts ...Option) (*Coordinator, error) {
	if descriptions != nil && len(descriptions) != len(commands) {
		return nil, fmt.Errorf("coordinator: number of descriptions must match number of commands")
	}

	c := &Coordinator{timeout: 300 * time.Second, stopOnError: true}
	for _, opt := range opts {
		opt(c)
	}

	c.steps = make([]*Step, len(commands))
	for i, cmd := range commands {
		desc := fmt.Sprintf("Step %d", i+1)
		if descriptions != nil {
			desc = descriptions[i]
		}
		c.steps[i] = &Step{Command: cmd, Description: desc, Status: StepPending}
	}

	return c, nil
}

// FromPlan builds a Coordinator from a structured plan, registering each
// entry's Rollback command automatically when present. enableRollback
// nil means "infer from whether any rollback commands were supplied",
// matching the Python source's Optional[bool] default.
func FromPlan(plan []PlanEntry, enableRollback *bool, opts ...Option) (*Coordinator, error) {
	commands := make([]string, 0, len(plan))
	descriptions := make([]string, 0, len(plan))
	var rollbackCommands []string

	for i, entry := range plan {
		if entry.Command == "" {
			return nil, fmt.Errorf("coordinator: each plan step must include a command")
		}
		commands = append(commands, entry.Command)
		desc := entry.Description
		if desc == "" {
			desc = fmt.Sprintf("Step %d", i+1)
		}
		descriptions = append(descriptions, desc)
		if entry.Rollback != "" {
			rollbackCommands = append(rollbackCommands, entry.Rollback)
		}
	}

	rollback := len(rollbackCommands) > 0
	if enableRollback != nil {
		rollback = *enableRollback
	}

	allOpts := append([]Option{WithRollback(rollback)}, opts...)
	c, err := New(commands, descriptions, allOpts...)
	if err != nil {
		return nil, err
	}
	for _, rc := range rollbackCommands {
		c.AddRollbackCommand(rc)
	}
	return c, nil
}

// AddRollbackCommand registers a command run (in reverse order) if a
// step fails and rollback is enabled.
func (c *Coordinator) AddRollbackCommand(command string) {
	c.rollbackCommands = append(c.rollbackCommands, command)
}

func (c *Coordinator) log(message string) {
	log := logging.Get(logging.CategoryCoordinator)
	log.Info("%s", message)
	if c.logFile == "" {
		return
	}
	entry := fmt.Sprintf("[%s] %s\n", time.Now().Format("2006-01-02 15:04:05"), message)
	f, err := os.OpenFile(c.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	f.WriteString(entry)
}

// runShell executes command via sh -c with the coordinator's timeout,
// capturing combined stdout/stderr and truncating past maxOutputBytes.
func runShell(ctx context.Context, command string, timeout time.Duration) (output string, exitCode int, timedOut bool, err error) {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	output = stdout.String()
	if stderr.Len() > 0 {
		if output != "" {
			output += "\n--- stderr ---\n"
		}
		output += stderr.String()
	}
	if len(output) > maxOutputBytes {
		output = output[:maxOutputBytes] + "\n...[truncated]"
	}

	if execCtx.Err() == context.DeadlineExceeded {
		return output, -1, true, execCtx.Err()
	}
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			return output, exitErr.ExitCode(), false, runErr
		}
		return output, -1, false, runErr
	}
	return output, 0, false, nil
}

func (c *Coordinator) executeStep(ctx context.Context, step *Step) bool {
	step.Status = StepRunning
	step.StartTime = time.Now()
	c.log(fmt.Sprintf("Executing: %s", step.Command))

	output, exitCode, timedOut, err := runShell(ctx, step.Command, c.timeout)
	step.Output = output
	step.EndTime = time.Now()
	step.ReturnCode = exitCode

	if timedOut {
		step.Status = StepFailed
		step.Error = fmt.Sprintf("Command timed out after %d seconds", int(c.timeout.Seconds()))
		c.log(fmt.Sprintf("Timeout: %s", step.Command))
		return false
	}
	if err != nil {
		step.Status = StepFailed
		if exitCode >= 0 {
			c.log(fmt.Sprintf("Failed: %s (exit code: %d)", step.Command, exitCode))
		} else {
			step.Error = err.Error()
			c.log(fmt.Sprintf("Error: %s - %s", step.Command, err.Error()))
		}
		return false
	}

	step.Status = StepSuccess
	c.log(fmt.Sprintf("Success: %s", step.Command))
	return true
}

func (c *Coordinator) rollback(ctx context.Context) {
	if !c.enableRollback || len(c.rollbackCommands) == 0 {
		return
	}
	c.log("Starting rollback...")
	for i := len(c.rollbackCommands) - 1; i >= 0; i-- {
		cmd := c.rollbackCommands[i]
		c.log(fmt.Sprintf("Rollback: %s", cmd))
		if _, _, _, err := runShell(ctx, cmd, c.timeout); err != nil {
			c.log(fmt.Sprintf("Rollback failed: %s - %s", cmd, err.Error()))
		}
	}
}

// Execute runs each step in order, returning early with a Result on the
// first failure when stopOnError is set (marking remaining steps
// Skipped and rolling back if enabled), otherwise continuing through
// the whole plan.
func (c *Coordinator) Execute(ctx context.Context) Result {
	start := time.Now()
	failedStep := -1

	c.log(fmt.Sprintf("Starting installation with %d steps", len(c.steps)))

	for i, step := range c.steps {
		if c.progressCallback != nil {
			c.progressCallback(i+1, len(c.steps), step)
		}

		if !c.executeStep(ctx, step) {
			failedStep = i
			if c.stopOnError {
				for _, remaining := range c.steps[i+1:] {
					remaining.Status = StepSkipped
				}
				c.rollback(ctx)

				errMsg := step.Error
				if errMsg == "" {
					errMsg = "Command failed"
				}
				c.log(fmt.Sprintf("Installation failed at step %d", i+1))
				return Result{
					Success:       false,
					Steps:         c.steps,
					TotalDuration: time.Since(start),
					FailedStep:    i,
					ErrorMessage:  errMsg,
				}
			}
		}
	}

	allSuccess := true
	for _, s := range c.steps {
		if s.Status != StepSuccess {
			allSuccess = false
			break
		}
	}

	if allSuccess {
		c.log("Installation completed successfully")
	} else {
		c.log("Installation completed with errors")
	}

	errMsg := ""
	if failedStep >= 0 {
		errMsg = c.steps[failedStep].Error
	}
	return Result{
		Success:       allSuccess,
		Steps:         c.steps,
		TotalDuration: time.Since(start),
		FailedStep:    failedStep,
		ErrorMessage:  errMsg,
	}
}

// VerifyInstallation runs verification commands with a fixed 30-second
// timeout, returning per-command pass/fail.
func (c *Coordinator) VerifyInstallation(ctx context.Context, verifyCommands []string) map[string]bool {
	results := make(map[string]bool, len(verifyCommands))
	c.log("Starting verification...")

	for _, cmd := range verifyCommands {
		_, exitCode, timedOut, err := runShell(ctx, cmd, 30*time.Second)
		success := !timedOut && err == nil && exitCode == 0
		results[cmd] = success
		if success {
			c.log(fmt.Sprintf("Verification %s: PASS", cmd))
		} else {
			c.log(fmt.Sprintf("Verification %s: FAIL", cmd))
		}
	}

	return results
}

// StepSummary is one step's entry in Summary.
type StepSummary struct {
	Command     string        `json:"command"`
	Description string        `json:"description"`
	Status      StepStatus    `json:"status"`
	Duration    time.Duration `json:"duration"`
	ReturnCode  int           `json:"return_code"`
}

// Summary is the structured aggregate report for a finished run.
type Summary struct {
	TotalSteps int           `json:"total_steps"`
	Success    int           `json:"success"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
	Steps      []StepSummary `json:"steps"`
}

// GetSummary tallies step outcomes and per-step details.
func (c *Coordinator) GetSummary() Summary {
	s := Summary{TotalSteps: len(c.steps)}
	for _, step := range c.steps {
		switch step.Status {
		case StepSuccess:
			s.Success++
		case StepFailed:
			s.Failed++
		case StepSkipped:
			s.Skipped++
		}
		s.Steps = append(s.Steps, StepSummary{
			Command:     step.Command,
			Description: step.Description,
			Status:      step.Status,
			Duration:    step.Duration(),
			ReturnCode:  step.ReturnCode,
		})
	}
	return s
}

// ExportLog writes GetSummary() as indented JSON to filepath.
func (c *Coordinator) ExportLog(filepath string) error {
	data, err := json.MarshalIndent(c.GetSummary(), "", "  ")
	if err != nil {
		return fmt.Errorf("coordinator: marshal summary: %w", err)
	}
	return os.WriteFile(filepath, data, 0600)
}
