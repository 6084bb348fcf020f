package authkit

import "errors"

// ErrorKind classifies failures into the fixed taxonomy the UI renders from
type ErrorKind string

const (
	// KindValidation is caught client-side before any network call
	KindValidation ErrorKind = "validation"
	// KindNetwork is a transport failure or an unusable response
	KindNetwork ErrorKind = "network"
	// KindAuth is a request the backend understood and rejected
	KindAuth ErrorKind = "auth"
)

// Error is the normalized failure every operation surfaces. Message is
// always human-readable (server-supplied messages pass through verbatim);
// Field names the offending input when known.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates an Error with the given kind, message and field
func NewError(kind ErrorKind, message, field string) *Error {
	return &Error{Kind: kind, Message: message, Field: field}
}

// NewValidationError creates a client-side validation failure for a field
func NewValidationError(message, field string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

// NewNetworkError creates a transport-level failure
func NewNetworkError(message string) *Error {
	return &Error{Kind: KindNetwork, Message: message}
}

// NewAuthError creates a failure the backend rejected with a message
func NewAuthError(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

// KindOf returns the kind of err, treating anything that is not an *Error
// as a network failure
func KindOf(err error) ErrorKind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindNetwork
}

// asError normalizes err to an *Error, substituting fallback as the message
// for errors that did not come through the adapter
func asError(err error, fallback string) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Message == "" {
			return &Error{Kind: ae.Kind, Message: fallback, Field: ae.Field}
		}
		return ae
	}
	return NewNetworkError(fallback)
}
