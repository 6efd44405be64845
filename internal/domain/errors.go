package domain

import (
	"errors"
	"fmt"
)

// ErrorKind discriminates analytics failures for the serving layer.
type ErrorKind string

const (
	// KindConfig marks an invalid or inconsistent configuration value
	KindConfig ErrorKind = "config"
	// KindData marks an empty, malformed or misaligned input
	KindData ErrorKind = "data"
	// KindDomain marks a mathematically undefined operation
	KindDomain ErrorKind = "domain"
)

// Sentinels for errors.Is. Any *Error of the same kind matches.
var (
	ErrConfig = &Error{Kind: KindConfig, Msg: "configuration error"}
	ErrData   = &Error{Kind: KindData, Msg: "data error"}
	ErrDomain = &Error{Kind: KindDomain, Msg: "domain error"}
)

// Error is the single error type raised by the analytics core.
type Error struct {
	Kind ErrorKind
	Op   string // operation that failed, e.g. "covariance.Annualized"
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind so callers can test errors.Is(err, domain.ErrData).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// ConfigError builds a KindConfig error.
func ConfigError(op, format string, args ...interface{}) error {
	return &Error{Kind: KindConfig, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// DataError builds a KindData error.
func DataError(op, format string, args ...interface{}) error {
	return &Error{Kind: KindData, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// DomainError builds a KindDomain error.
func DomainError(op, format string, args ...interface{}) error {
	return &Error{Kind: KindDomain, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ConvergenceWarning reports that an optimizer stopped without meeting its
// tolerance. It travels on results and is never returned as an error.
type ConvergenceWarning struct {
	Status     string `json:"status"`
	Iterations int    `json:"iterations"`
	Message    string `json:"message"`
}

func (w ConvergenceWarning) String() string {
	return fmt.Sprintf("%s after %d iterations: %s", w.Status, w.Iterations, w.Message)
}
