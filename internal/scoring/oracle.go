// Package scoring wraps the language-model scoring oracle: one blocking
// call per listing returning a 0-100 match score and a short rationale.
package scoring

import (
	"context"
	"fmt"
)

// Result is one scoring outcome.
type Result struct {
	Score     int    `json:"score"`
	Rationale string `json:"reasoning"`
}

// Oracle scores a job description against a candidate profile's free-text
// matching criteria.
type Oracle interface {
	Score(ctx context.Context, description, criteria string) (Result, error)
	Close() error
}

// CallError represents a failed oracle call (transport or quota).
type CallError struct {
	Message string
	Cause   error
}

func (e *CallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("oracle call failed: %s: %v", e.Message, e.Cause)
	}
	return "oracle call failed: " + e.Message
}

func (e *CallError) Unwrap() error {
	return e.Cause
}

// ParseError represents an oracle response that could not be decoded.
type ParseError struct {
	Message  string
	Response string
	Cause    error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("oracle response unparseable: %s: %v", e.Message, e.Cause)
	}
	return "oracle response unparseable: " + e.Message
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ScoreOrZero calls the oracle and converts any failure into the recovered
// score-0 result. The listing still gets a history entry so it is never
// retried on a later run.
func ScoreOrZero(ctx context.Context, oracle Oracle, description, criteria string) Result {
	result, err := oracle.Score(ctx, description, criteria)
	if err != nil {
		return Result{
			Score:     0,
			Rationale: fmt.Sprintf("Error during analysis: %v", err),
		}
	}
	return result
}
