// Package fault carries the error taxonomy shared by the navigation and
// emergency engine: transient connectivity problems, local validation
// failures, remote domain rejections, permission denials and partially
// applied batches all need different handling at the call site.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Connectivity Kind = iota + 1
	Validation
	RemoteRejection
	PermissionDenied
	PartialBatch
)

func (k Kind) String() string {
	switch k {
	case Connectivity:
		return "connectivity"
	case Validation:
		return "validation"
	case RemoteRejection:
		return "remote rejection"
	case PermissionDenied:
		return "permission denied"
	case PartialBatch:
		return "partial batch"
	}
	return "unknown"
}

type Error struct {
	Kind Kind
	Msg  string
	// Succeeded counts applied items before a PartialBatch failure.
	Succeeded int
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, cause: cause}
}

// Partial reports a batch that stopped after succeeded items.
func Partial(succeeded int, cause error) *Error {
	return &Error{
		Kind:      PartialBatch,
		Msg:       fmt.Sprintf("stopped after %d successful submissions", succeeded),
		Succeeded: succeeded,
		cause:     cause,
	}
}

// KindOf extracts the fault kind from an error chain; zero when absent.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

func IsConnectivity(err error) bool     { return KindOf(err) == Connectivity }
func IsValidation(err error) bool       { return KindOf(err) == Validation }
func IsRemoteRejection(err error) bool  { return KindOf(err) == RemoteRejection }
func IsPermissionDenied(err error) bool { return KindOf(err) == PermissionDenied }
func IsPartialBatch(err error) bool     { return KindOf(err) == PartialBatch }

// SucceededCount returns the success count carried by a partial-batch error.
func SucceededCount(err error) int {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == PartialBatch {
		return fe.Succeeded
	}
	return 0
}

// Named domain errors services translate remote responses into.
var (
	ErrNoRouteFound        = New(RemoteRejection, "no route found")
	ErrTokenNotFound       = New(RemoteRejection, "sos token not found")
	ErrTokenExpired        = New(RemoteRejection, "sos token expired")
	ErrLocationUnavailable = New(Validation, "current location unavailable")
)
