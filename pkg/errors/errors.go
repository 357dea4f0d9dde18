// Package errors provides the simulation core's error kinds: sentinel
// values for common failures plus the four typed kinds from the error
// handling design (ConfigError, PolicyError, SubmissionError,
// ConsistencyBug).
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common sentinel errors, wrapped by the typed kinds below.
var (
	ErrUnknownAgent       = errors.New("unknown agent")
	ErrUnknownTransaction = errors.New("unknown transaction")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrDeadlineInPast     = errors.New("deadline in the past")
	ErrDuplicateAgentID   = errors.New("duplicate agent id")
	ErrDuplicateNodeID    = errors.New("duplicate policy node id")
	ErrInvalidTransition  = errors.New("invalid transaction status transition")
	ErrUnknownField       = errors.New("unknown environment field")
	ErrUnknownParam       = errors.New("unknown policy parameter")
	ErrUnknownAction      = errors.New("unknown policy action")
	ErrDivideByZero       = errors.New("division by zero")
	ErrCollateralCapacity = errors.New("collateral capacity exceeded")
	ErrInsufficientFunds  = errors.New("insufficient liquidity")
)

// New returns a new error with the given text.
func New(text string) error {
	return errors.New(text)
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// ConfigError is returned by configuration validation before an Orchestrator
// is constructed. It aggregates every violation found in one pass so the
// caller sees the whole list instead of failing one field at a time.
type ConfigError struct {
	Reasons []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Reasons, "; "))
}

// NewConfigError builds a ConfigError from one or more reasons.
func NewConfigError(reasons ...string) *ConfigError {
	return &ConfigError{Reasons: reasons}
}

// PolicyError is raised when evaluating a compiled policy tree fails at
// runtime, e.g. on a division by zero; unknown field, parameter and action
// names are rejected earlier, as a ConfigError from policy.Compile. It is
// fatal: the orchestrator stops the tick at the failing step and returns
// the error. Events and state changes from that tick's earlier steps are
// not rolled back.
type PolicyError struct {
	AgentID    string
	NodeID     string
	Expression string
	Err        error
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("policy error: agent=%s node=%s expr=%q: %v", e.AgentID, e.NodeID, e.Expression, e.Err)
}

func (e *PolicyError) Unwrap() error { return e.Err }

// SubmissionError is returned by submit_transaction for caller-supplied
// invalid input. It never mutates engine state.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submission rejected: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// ConsistencyBug indicates an internal invariant was violated: a
// should-never-happen implementation bug, not a user error. It is fatal and
// carries enough context to reproduce.
type ConsistencyBug struct {
	Context string
	Err     error
}

func (e *ConsistencyBug) Error() string {
	return fmt.Sprintf("consistency bug [%s]: %v", e.Context, e.Err)
}

func (e *ConsistencyBug) Unwrap() error { return e.Err }

// NewConsistencyBug wraps a sentinel/plain error with reproduction context.
func NewConsistencyBug(context string, err error) *ConsistencyBug {
	return &ConsistencyBug{Context: context, Err: err}
}
