package pptxhtml

import (
	"errors"
	"fmt"
)

// Error kinds. Fatal failures wrap ErrMalformedInput or ErrCollaboratorFailure;
// the other kinds are recovered and reported as diagnostics.
var (
	ErrMalformedInput       = errors.New("malformed input")
	ErrUnresolvedReference  = errors.New("unresolved reference")
	ErrUnsupportedConstruct = errors.New("unsupported construct")
	ErrCollaboratorFailure  = errors.New("collaborator failure")
	ErrNotFound             = errors.New("not found")
)

// ConversionError is returned when a conversion cannot produce a document.
type ConversionError struct {
	Kind error
	Path string
	Msg  string
	Err  error
}

func (e *ConversionError) Error() string {
	msg := e.Msg
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *ConversionError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func malformed(path, msg string) error {
	return &ConversionError{Kind: ErrMalformedInput, Path: path, Msg: msg}
}

func collaboratorFailure(path, msg string, err error) error {
	return &ConversionError{Kind: ErrCollaboratorFailure, Path: path, Msg: msg, Err: err}
}

// DiagnosticKind classifies a recovered problem.
type DiagnosticKind string

const (
	DiagUnresolvedReference  DiagnosticKind = "unresolved-reference"
	DiagUnsupportedConstruct DiagnosticKind = "unsupported-construct"
	DiagCollaboratorFailure  DiagnosticKind = "collaborator-failure"
)

// Diagnostic records one element that was degraded or dropped during a conversion.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind" yaml:"kind"`
	Slide   int            `json:"slide" yaml:"slide"`
	Subject string         `json:"subject" yaml:"subject"`
	Message string         `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("slide %d: %s %s: %s", d.Slide, d.Kind, d.Subject, d.Message)
}
