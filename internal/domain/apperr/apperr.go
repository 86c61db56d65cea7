// Package apperr defines the error taxonomy shared by the registry, the
// analysis components and the pipeline.
package apperr

import (
	"errors"
	"fmt"
)

// Kinds. Match with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrAuthorization       = errors.New("not authorized")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrPipeline            = errors.New("pipeline failed")
	ErrReentrantCall       = errors.New("reentrant call")
)

// ValidationError rejects malformed input before any state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// AuthorizationError rejects a caller lacking the role an action requires.
type AuthorizationError struct {
	Actor  string
	Action string
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization: %s may not %s", e.Actor, e.Action)
}

func (e *AuthorizationError) Unwrap() error { return ErrAuthorization }

func Authorization(actor fmt.Stringer, action string) error {
	return &AuthorizationError{Actor: actor.String(), Action: action}
}

// UpstreamError marks a failed or timed out external read. It never leaves the stage
// that produced it.
type UpstreamError struct {
	Source string
	Err    error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Source, e.Err)
}

func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstreamUnavailable, e.Err} }

func Upstream(source string, err error) error {
	if err == nil {
		return nil
	}
	var already *UpstreamError
	if errors.As(err, &already) {
		return err
	}
	return &UpstreamError{Source: source, Err: err}
}

// PipelineError is returned by RunAudit when metadata resolution exhausts every tier.
type PipelineError struct {
	Token string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Token, e.Err)
}

func (e *PipelineError) Unwrap() []error { return []error{ErrPipeline, e.Err} }

func Pipeline(token fmt.Stringer, err error) error {
	return &PipelineError{Token: token.String(), Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsAuthorization reports whether err is an AuthorizationError.
func IsAuthorization(err error) bool { return errors.Is(err, ErrAuthorization) }

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool { return errors.Is(err, ErrUpstreamUnavailable) }
