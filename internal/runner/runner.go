// Package runner executes the project's test command and classifies the
// outcome from its output. Classification is pattern matching on the
// combined output, nothing deeper: it distinguishes compile errors from
// test failures so the decision engine can phrase its diagnosis, and it
// extracts the first failing test name when one is present.
package runner

import (
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/gorewood/cadence/internal/output"
)

// Outcome classifies a test run.
type Outcome string

// Test run outcomes.
const (
	OutcomePass         Outcome = "pass"
	OutcomeTestFailure  Outcome = "test_failure"
	OutcomeCompileError Outcome = "compile_error"
	OutcomeTimeout      Outcome = "timeout"
	OutcomeError        Outcome = "error"
)

// DefaultCommand is the test command used when none is configured.
var DefaultCommand = []string{"go", "test", "./..."}

// DefaultTimeout bounds a test run when none is configured.
const DefaultTimeout = 10 * time.Minute

// Result is the outcome of one test run.
type Result struct {
	Outcome    Outcome       `json:"outcome"`
	Output     string        `json:"output,omitempty"`
	FailedTest string        `json:"failed_test,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// execFunc runs a command and returns its combined output. The error is the
// exec error (non-zero exit, not-found); a non-nil error with output still
// gets classified.
type execFunc func(ctx context.Context, dir string, name string, args ...string) ([]byte, error)

// realExec runs the command via os/exec with combined output.
func realExec(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Runner executes a configured test command.
type Runner struct {
	command []string
	dir     string
	timeout time.Duration
	exec    execFunc
}

// New creates a runner for the given command, working directory, and
// timeout. Zero values fall back to DefaultCommand and DefaultTimeout.
func New(command []string, dir string, timeout time.Duration) *Runner {
	if len(command) == 0 {
		command = DefaultCommand
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{command: command, dir: dir, timeout: timeout, exec: realExec}
}

// Command returns the configured test command.
func (r *Runner) Command() []string {
	return append([]string(nil), r.command...)
}

// Run executes the test command once and classifies the result.
// The returned error covers only harness-level failures (the command could
// not be started at all); failing tests are a Result, not an error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	out, err := r.exec(runCtx, r.dir, r.command[0], r.command[1:]...)
	duration := time.Since(start)

	if runCtx.Err() != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return &Result{
			Outcome:  OutcomeTimeout,
			Output:   string(out),
			Duration: duration,
		}, nil
	}

	if err != nil && len(out) == 0 {
		// Nothing ran: command missing or unstartable.
		return nil, output.NewSystemErrorWithCause("test command failed to start: "+strings.Join(r.command, " "), err)
	}

	result := Classify(string(out), err == nil)
	result.Duration = duration
	return result, nil
}

// compilePatterns mark output as a compile/build problem rather than a
// failing test.
var compilePatterns = []string{
	"build failed",
	"cannot find package",
	"undefined:",
	"syntax error",
	"setup failed",
	"[build failed]",
	"compilation terminated",
}

// failPatterns mark output as a test failure.
var failPatterns = []string{
	"--- FAIL",
	"\nFAIL\t",
	"panic:",
}

// failedTestRe extracts the first failing test name from go test output.
var failedTestRe = regexp.MustCompile(`--- FAIL: (\S+)`)

// Classify maps test command output and exit status to an outcome.
// exitOK is true when the command exited zero.
func Classify(out string, exitOK bool) *Result {
	result := &Result{Output: out}

	for _, pattern := range compilePatterns {
		if strings.Contains(out, pattern) {
			result.Outcome = OutcomeCompileError
			return result
		}
	}

	for _, pattern := range failPatterns {
		if strings.Contains(out, pattern) {
			result.Outcome = OutcomeTestFailure
			if m := failedTestRe.FindStringSubmatch(out); m != nil {
				result.FailedTest = m[1]
			}
			return result
		}
	}

	if exitOK {
		result.Outcome = OutcomePass
		return result
	}

	// Non-zero exit without a recognized pattern: treat as a generic error.
	result.Outcome = OutcomeError
	return result
}
