package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel error kinds. Components wrap these with fmt.Errorf("...: %w", Err...)
// rather than defining a parallel hierarchy of error types, matching the
// teacher's storage.ErrDBNotInitialized convention.
var (
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("conflict")
	ErrInvariantViolation  = errors.New("invariant violation")
	ErrLifecycleViolation  = errors.New("lifecycle violation")
	ErrValidationFailed    = errors.New("validation failed")
	ErrCompletionBlocked   = errors.New("completion blocked")
	ErrStorageIO           = errors.New("storage io error")
	ErrCorruption          = errors.New("storage corruption")
	ErrTransport           = errors.New("transport error")
	ErrRateLimited         = errors.New("rate limited")
	ErrAuth                = errors.New("auth error")
	ErrRemoteSchemaMismatch = errors.New("remote schema mismatch")
	ErrTimeout             = errors.New("timeout")
)

// GateDeniedError carries every failing gate code plus the first one, per
// spec.md §4.3.2 ("on failure the first failing code is reported plus the
// full list of failing codes").
type GateDeniedError struct {
	First   GateCode
	Reasons []GateCode
}

func (e *GateDeniedError) Error() string {
	codes := make([]string, len(e.Reasons))
	for i, c := range e.Reasons {
		codes[i] = string(c)
	}
	return fmt.Sprintf("promotion denied: %s (%s)", e.First, strings.Join(codes, ", "))
}

// NewGateDenied builds a GateDeniedError from an ordered, non-empty set of
// failing gate codes.
func NewGateDenied(reasons []GateCode) *GateDeniedError {
	return &GateDeniedError{First: reasons[0], Reasons: reasons}
}

// CompletionBlockedError carries the validation report that blocked a
// session's transition to status=complete.
type CompletionBlockedError struct {
	Report *ValidationReport
}

func (e *CompletionBlockedError) Error() string {
	return fmt.Sprintf("completion blocked: %s", e.Report.Summary())
}

func (e *CompletionBlockedError) Unwrap() error { return ErrCompletionBlocked }

// ValidationReport is the per-session output of the ValidationEngine. It
// never itself signals failure: callers that require a passing report
// surface CompletionBlockedError on their own gated transitions.
type ValidationReport struct {
	OK       bool
	PerStage map[Stage]*StageReport
}

// StageReport is the per-stage slice of a ValidationReport.
type StageReport struct {
	OK       bool
	Errors   []string
	Warnings []string
}

// Summary renders a short human-readable description of a failing report,
// used by CompletionBlockedError and CLI output.
func (r *ValidationReport) Summary() string {
	if r.OK {
		return "ok"
	}
	var failing []string
	for stage, sr := range r.PerStage {
		if !sr.OK {
			failing = append(failing, fmt.Sprintf("%s: %s", stage, strings.Join(sr.Errors, "; ")))
		}
	}
	return strings.Join(failing, " | ")
}
