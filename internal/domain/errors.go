package domain

import (
	"errors"
	"fmt"
)

// ErrorKind names a class of session failure as exposed to clients
type ErrorKind string

const (
	KindInvalidSource      ErrorKind = "InvalidSource"
	KindNoMatchingEncoding ErrorKind = "NoMatchingEncoding"
	KindUpstreamFailure    ErrorKind = "UpstreamFailure"
	KindClientDisconnected ErrorKind = "ClientDisconnected"
	KindSinkWriteFailure   ErrorKind = "SinkWriteFailure"
	KindInternal           ErrorKind = "Internal"
)

var (
	ErrInvalidSource      = errors.New("invalid source")
	ErrNoMatchingEncoding = errors.New("no matching encoding")
	ErrUpstreamFailure    = errors.New("upstream failure")
	ErrClientDisconnected = errors.New("client disconnected")
	ErrSinkWriteFailure   = errors.New("sink write failure")
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidSource:      ErrInvalidSource,
	KindNoMatchingEncoding: ErrNoMatchingEncoding,
	KindUpstreamFailure:    ErrUpstreamFailure,
	KindClientDisconnected: ErrClientDisconnected,
	KindSinkWriteFailure:   ErrSinkWriteFailure,
}

// TransferError is the error type produced by the session manager and the
// resolvers. Kind selects the taxonomy entry; Err is the underlying cause.
type TransferError struct {
	Kind ErrorKind
	Op   string // operation that failed, e.g. "resolve", "read", "write"
	Err  error
}

func (e *TransferError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrClientDisconnected) and friends match on Kind.
func (e *TransferError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// NewTransferError builds a TransferError of the given kind
func NewTransferError(kind ErrorKind, op string, err error) *TransferError {
	return &TransferError{Kind: kind, Op: op, Err: err}
}

// KindOf classifies err into the client-facing taxonomy
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var te *TransferError
	if errors.As(err, &te) {
		return te.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindInternal
}
