package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable classification of a pipeline failure.
type ErrorKind string

const (
	// KindValidation marks bad or missing input. Never retried, maps to 400.
	KindValidation ErrorKind = "validation_error"
	// KindRetrieval marks a Stage-1 candidate source failure. Retried up
	// to the configured budget, then surfaced as 500.
	KindRetrieval ErrorKind = "retrieval_error"
	// KindReranking marks a Stage-2 failure. Degrades to Stage-1 output,
	// never surfaced as a request failure.
	KindReranking ErrorKind = "reranking_error"
	// KindProviderTimeout marks a timed-out external call.
	KindProviderTimeout ErrorKind = "provider_timeout"
)

// PipelineError carries a classification alongside the wrapped cause.
type PipelineError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewValidationError reports bad or missing caller input.
func NewValidationError(message string) *PipelineError {
	return &PipelineError{Kind: KindValidation, Message: message}
}

// NewRetrievalError wraps a Stage-1 candidate source failure.
func NewRetrievalError(message string, err error) *PipelineError {
	return &PipelineError{Kind: KindRetrieval, Message: message, Err: err}
}

// NewRerankingError wraps a Stage-2 reranking failure.
func NewRerankingError(message string, err error) *PipelineError {
	return &PipelineError{Kind: KindReranking, Message: message, Err: err}
}

// NewProviderTimeout wraps a timed-out external provider call.
func NewProviderTimeout(message string, err error) *PipelineError {
	return &PipelineError{Kind: KindProviderTimeout, Message: message, Err: err}
}

// KindOf extracts the classification from an error chain. Unclassified
// errors report KindRetrieval since they originate from providers.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindRetrieval
}

// IsRetryable reports whether the failure is transient. Validation
// failures are never retried.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindRetrieval, KindProviderTimeout:
		return true
	default:
		return false
	}
}
