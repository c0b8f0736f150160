package domain

import "errors"

// Kind classifies a domain failure. The transport layer maps kinds to
// status codes; callers branch on Code.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindConflict          Kind = "conflict"
	KindIllegalTransition Kind = "illegal_transition"
	KindInsufficientStock Kind = "insufficient_stock"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// AsError unwraps err to the first *Error in its chain.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if de, ok := AsError(err); ok {
		return de.Kind
	}
	return ""
}
