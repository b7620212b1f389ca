// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. Every failure that crosses the dispatcher or the
// orchestrator client boundary carries one of the kinds below, so callers can
// report it uniformly without inspecting driver-specific error values.
//
// The package supports wrapping underlying errors while maintaining error kind information,
// making it easier to handle different types of failures appropriately.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// ConnectionFailed indicates the resource was unreachable or rejected the credentials.
	ConnectionFailed Kind = "connection_error"
	// UnsupportedOperation indicates an unknown instruction type or operation.
	UnsupportedOperation Kind = "unsupported_operation"
	// UnsupportedKind indicates an unknown browser kind.
	UnsupportedKind Kind = "unsupported_kind"
	// MissingConnection indicates a database instruction without a connection identity.
	MissingConnection Kind = "missing_connection"
	// OperationTimeout indicates a bounded wait was exceeded.
	OperationTimeout Kind = "operation_timeout"
	// VendorExecution indicates the driver or automation call itself failed.
	VendorExecution Kind = "vendor_execution"
	// Transport indicates the remote orchestrator was unreachable or answered non-2xx.
	Transport Kind = "transport_error"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// Newf is New with fmt.Sprintf formatting.
func Newf(kind Kind, format string, args ...any) *E {
	return &E{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *E in err's chain.
// Errors without a kind report VendorExecution, the catch-all category for
// failures surfaced by an underlying driver.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return VendorExecution
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// Message returns err's text without kind prefixes, for display to callers
// that report the kind separately.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *E
	if !stderrors.As(err, &e) {
		return err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + Message(e.Err)
	}
	return e.Message
}
