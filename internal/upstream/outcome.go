package upstream

import (
	"errors"
	"fmt"
)

// Kind tags the variant held by an Outcome.
type Kind uint8

const (
	// Success means the upstream answered 2xx and the body decoded.
	Success Kind = iota
	// ClientError is terminal: the request itself was rejected (4xx).
	ClientError
	// ServerError is retry-eligible: the upstream failed (5xx) or never answered.
	ServerError
)

func (k Kind) String() string {
	switch k {
	case Success:
		return "success"
	case ClientError:
		return "client error"
	case ServerError:
		return "server error"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Outcome is the closed result of one remote call.
type Outcome[T any] struct {
	Kind       Kind
	Value      T
	StatusCode int
	Message    string
}

// Succeeded wraps a decoded payload.
func Succeeded[T any](value T) Outcome[T] {
	return Outcome[T]{Kind: Success, Value: value}
}

// ClientFailure builds a terminal 4xx outcome.
func ClientFailure[T any](status int, message string) Outcome[T] {
	return Outcome[T]{Kind: ClientError, StatusCode: status, Message: message}
}

// ServerFailure builds a retry-eligible outcome.
func ServerFailure[T any](status int, message string) Outcome[T] {
	return Outcome[T]{Kind: ServerError, StatusCode: status, Message: message}
}

// Err returns nil for Success and an *Error carrying status and message otherwise.
func (o Outcome[T]) Err() error {
	if o.Kind == Success {
		return nil
	}
	return &Error{Kind: o.Kind, StatusCode: o.StatusCode, Message: o.Message}
}

// Error is a classified upstream failure. Message is the upstream body verbatim,
// or a synthesized message for not-found and unavailable cases.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var upErr *Error
	if errors.As(err, &upErr) {
		return upErr, true
	}
	return nil, false
}

// Retryable retries transport failures and server errors, never client errors.
func Retryable[T any](o Outcome[T], err error) bool {
	if err != nil {
		return true
	}
	return o.Kind == ServerError
}
