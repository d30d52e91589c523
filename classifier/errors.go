package classifier

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindInput ErrorKind = iota + 1
	KindClassification
	KindDegenerateAggregation
)

var (
	ErrInput                 = errors.New("invalid input document")
	ErrClassification        = errors.New("classification failed")
	ErrDegenerateAggregation = errors.New("degenerate aggregation")
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindClassification:
		return "classification"
	case KindDegenerateAggregation:
		return "degenerate_aggregation"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindInput:
		return ErrInput
	case KindClassification:
		return ErrClassification
	case KindDegenerateAggregation:
		return ErrDegenerateAggregation
	default:
		return nil
	}
}

// Error carries the kind of failure plus the underlying cause, if any.
// errors.Is matches both the kind's sentinel and the cause.
type Error struct {
	Kind  ErrorKind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.sentinel(), e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind.sentinel(), e.Msg)
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind.sentinel()}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// InputError reports a document that is empty after normalization.
func InputError(msg string) error {
	return &Error{Kind: KindInput, Msg: msg}
}

func degenerateError(msg string) error {
	return &Error{Kind: KindDegenerateAggregation, Msg: msg}
}

// ClassificationError wraps a tokenizer or runtime failure. An error that
// already carries ErrClassification is returned unchanged.
func ClassificationError(msg string, cause error) error {
	if errors.Is(cause, ErrClassification) {
		return cause
	}
	return &Error{Kind: KindClassification, Msg: msg, Cause: cause}
}

// KindOf reports the kind of err, or 0 if err is not a classifier error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
