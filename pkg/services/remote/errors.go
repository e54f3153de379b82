package remote

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownEndpoint = errors.New("unknown backend endpoint")
	ErrPayloadRequired = errors.New("payload is required")

	ErrUnavailable = errors.New("backend unavailable")
	ErrRejected    = errors.New("backend rejected request")
	ErrMalformed   = errors.New("backend response malformed")
)

type ErrorKind int

const (
	KindUnavailable ErrorKind = iota
	KindRejected
	KindMalformed
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindRejected:
		return ErrRejected
	case KindMalformed:
		return ErrMalformed
	default:
		return ErrUnavailable
	}
}

func (k ErrorKind) String() string {
	switch k {
	case KindRejected:
		return "rejected"
	case KindMalformed:
		return "malformed"
	default:
		return "unavailable"
	}
}

// Error is the classified outcome of a failed backend call.
type Error struct {
	Kind     ErrorKind
	Endpoint Endpoint
	// Status and Body are set only for KindRejected.
	Status int
	Body   []byte
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRejected:
		return fmt.Sprintf("%s: %s (status %d): %s", e.Endpoint, ErrRejected, e.Status, string(e.Body))
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", e.Endpoint, e.Kind.sentinel(), e.Err)
		}
		return fmt.Sprintf("%s: %s", e.Endpoint, e.Kind.sentinel())
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func unavailable(endpoint Endpoint, err error) *Error {
	return &Error{Kind: KindUnavailable, Endpoint: endpoint, Err: err}
}

func rejected(endpoint Endpoint, status int, body []byte) *Error {
	return &Error{Kind: KindRejected, Endpoint: endpoint, Status: status, Body: body}
}

func malformed(endpoint Endpoint, err error) *Error {
	return &Error{Kind: KindMalformed, Endpoint: endpoint, Err: err}
}
