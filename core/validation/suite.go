// Package validation runs the environment checks behind `hullbridge check`
// and prints them as a colored step list.
package validation

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// ValidationStep is one executed check.
type ValidationStep struct {
	Name    string
	Status  StepStatus
	Message string
	Error   error
	Latency time.Duration
}

// StepStatus is the state of a validation step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepPassed
	StepFailed
	StepWarning
	StepSkipped
)

// String returns the string representation of a step status.
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepWarning:
		return "warning"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// CheckResult is what a check function reports.
type CheckResult struct {
	Status  StepStatus
	Message string
	Error   error
}

// Passed reports a successful check.
func Passed(format string, args ...any) CheckResult {
	return CheckResult{Status: StepPassed, Message: fmt.Sprintf(format, args...)}
}

// Failed reports a failed check with its cause.
func Failed(message string, err error) CheckResult {
	return CheckResult{Status: StepFailed, Message: message, Error: err}
}

// Warning reports a problem that does not fail the suite.
func Warning(format string, args ...any) CheckResult {
	return CheckResult{Status: StepWarning, Message: fmt.Sprintf(format, args...)}
}

// Check is a named validation. A check with RequiresPassed is skipped when
// any earlier step failed.
type Check struct {
	Name           string
	Run            func(ctx context.Context) CheckResult
	RequiresPassed bool
}

// SuiteResult is the outcome of a whole suite run.
type SuiteResult struct {
	Steps       []ValidationStep
	TotalSteps  int
	PassedSteps int
	FailedSteps int
	Warnings    int
	Duration    time.Duration
	Success     bool
}

// ValidationSuite runs checks in order with progress output.
type ValidationSuite struct {
	title        string
	checks       []Check
	output       io.Writer
	showProgress bool
	failFast     bool
}

// NewValidationSuite creates a suite printing to stdout.
func NewValidationSuite(title string) *ValidationSuite {
	return &ValidationSuite{
		title:        title,
		output:       os.Stdout,
		showProgress: true,
	}
}

// WithOutput sets the output writer for progress messages.
func (s *ValidationSuite) WithOutput(w io.Writer) *ValidationSuite {
	s.output = w
	return s
}

// WithShowProgress enables or disables progress output.
func (s *ValidationSuite) WithShowProgress(show bool) *ValidationSuite {
	s.showProgress = show
	return s
}

// WithFailFast stops validation on first failure if enabled.
func (s *ValidationSuite) WithFailFast(failFast bool) *ValidationSuite {
	s.failFast = failFast
	return s
}

// Add appends checks.
func (s *ValidationSuite) Add(checks ...Check) *ValidationSuite {
	s.checks = append(s.checks, checks...)
	return s
}

// Validate runs every check and returns the collected result. A cancelled
// context skips the remaining checks.
func (s *ValidationSuite) Validate(ctx context.Context) SuiteResult {
	startTime := time.Now()
	steps := make([]ValidationStep, 0, len(s.checks))

	if s.showProgress {
		s.printHeader(s.title)
	}

	failed := false
	for _, check := range s.checks {
		var step ValidationStep
		switch {
		case ctx.Err() != nil:
			step = s.skip(check.Name, "Skipped after cancellation")
		case check.RequiresPassed && failed:
			step = s.skip(check.Name, "Skipped due to earlier failures")
		default:
			step = s.runStep(ctx, check)
		}
		steps = append(steps, step)

		if step.Status == StepFailed {
			failed = true
			if s.failFast {
				break
			}
		}
	}

	result := buildResult(steps, startTime)
	if s.showProgress {
		s.printSummary(result)
	}
	return result
}

func (s *ValidationSuite) runStep(ctx context.Context, check Check) ValidationStep {
	if s.showProgress {
		fmt.Fprintf(s.output, "  ◌ %s...", check.Name)
	}

	started := time.Now()
	res := check.Run(ctx)
	step := ValidationStep{
		Name:    check.Name,
		Status:  res.Status,
		Message: res.Message,
		Error:   res.Error,
		Latency: time.Since(started),
	}
	if step.Status == StepPending || step.Status == StepRunning {
		step.Status = StepPassed
		if step.Error != nil {
			step.Status = StepFailed
		}
	}

	if s.showProgress {
		s.printStep(step)
	}
	return step
}

func (s *ValidationSuite) skip(name, message string) ValidationStep {
	step := ValidationStep{Name: name, Status: StepSkipped, Message: message}
	if s.showProgress {
		s.printStep(step)
	}
	return step
}

func buildResult(steps []ValidationStep, startTime time.Time) SuiteResult {
	result := SuiteResult{
		Steps:      steps,
		TotalSteps: len(steps),
		Duration:   time.Since(startTime),
		Success:    true,
	}
	for _, step := range steps {
		switch step.Status {
		case StepPassed:
			result.PassedSteps++
		case StepFailed:
			result.FailedSteps++
			result.Success = false
		case StepWarning:
			result.Warnings++
		}
	}
	return result
}

func (s *ValidationSuite) printHeader(title string) {
	fmt.Fprintln(s.output)
	color.New(color.FgCyan, color.Bold).Fprintf(s.output, "━━━ %s ━━━\n", title)
	fmt.Fprintln(s.output)
}

func (s *ValidationSuite) printStep(step ValidationStep) {
	var icon string
	var clr *color.Color

	switch step.Status {
	case StepPassed:
		icon, clr = "✓", color.New(color.FgGreen)
	case StepFailed:
		icon, clr = "✗", color.New(color.FgRed)
	case StepWarning:
		icon, clr = "!", color.New(color.FgYellow)
	case StepSkipped:
		icon, clr = "○", color.New(color.FgHiBlack)
	default:
		icon, clr = "?", color.New(color.FgWhite)
	}

	// Overwrite the "running" line.
	fmt.Fprintf(s.output, "\r")
	clr.Fprintf(s.output, "  %s %s", icon, step.Name)
	if step.Message != "" {
		color.New(color.FgHiBlack).Fprintf(s.output, " - %s", step.Message)
	}
	fmt.Fprintln(s.output)

	if step.Status == StepFailed && step.Error != nil {
		color.New(color.FgRed).Fprintf(s.output, "    └─ %s\n", step.Error.Error())
	}
}

func (s *ValidationSuite) printSummary(result SuiteResult) {
	fmt.Fprintln(s.output)

	if result.Success {
		ok := color.New(color.FgGreen, color.Bold)
		ok.Fprintf(s.output, "━━━ Validation Passed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d/%d checks passed in %v)",
			result.PassedSteps, result.TotalSteps, result.Duration.Round(time.Millisecond))
		ok.Fprintln(s.output, " ━━━")
	} else {
		bad := color.New(color.FgRed, color.Bold)
		bad.Fprintf(s.output, "━━━ Validation Failed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d passed, %d failed)",
			result.PassedSteps, result.FailedSteps)
		bad.Fprintln(s.output, " ━━━")
	}

	fmt.Fprintln(s.output)
}

// GetFirstError returns the first error from failed steps, or nil if all passed.
func (r SuiteResult) GetFirstError() error {
	for _, step := range r.Steps {
		if step.Error != nil {
			return step.Error
		}
	}
	return nil
}

// Summary returns a one-line summary.
func (r SuiteResult) Summary() string {
	var sb strings.Builder
	if r.Success {
		sb.WriteString("Validation Passed: ")
	} else {
		sb.WriteString("Validation Failed: ")
	}
	fmt.Fprintf(&sb, "%d/%d checks passed", r.PassedSteps, r.TotalSteps)
	if r.FailedSteps > 0 {
		fmt.Fprintf(&sb, ", %d failed", r.FailedSteps)
	}
	if r.Warnings > 0 {
		fmt.Fprintf(&sb, ", %d warnings", r.Warnings)
	}
	fmt.Fprintf(&sb, " (took %v)", r.Duration.Round(time.Millisecond))
	return sb.String()
}
