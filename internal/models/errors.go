package models

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies acquisition failures so the orchestrator can decide
// between re-login, retry and drop.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindNotAuthenticated
	KindElementNotFound
	KindTimeout
	KindMalformedValue
	KindIOFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotAuthenticated:
		return "not_authenticated"
	case KindElementNotFound:
		return "element_not_found"
	case KindTimeout:
		return "timeout"
	case KindMalformedValue:
		return "malformed_value"
	case KindIOFailure:
		return "io_failure"
	default:
		return "other"
	}
}

// ScrapeError is the error type produced by the scraper, normalizer and session store.
type ScrapeError struct {
	Kind ErrorKind
	Op   string // login, restore, navigate, settle, normalize, ...
	URL  string
	Err  error
}

func (e *ScrapeError) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewError builds a ScrapeError.
func NewError(kind ErrorKind, op, url string, err error) *ScrapeError {
	return &ScrapeError{Kind: kind, Op: op, URL: url, Err: err}
}

// Errorf builds a ScrapeError with a formatted cause.
func Errorf(kind ErrorKind, op, url, format string, args ...interface{}) *ScrapeError {
	return &ScrapeError{Kind: kind, Op: op, URL: url, Err: fmt.Errorf(format, args...)}
}

// KindOf classifies err. Deadline errors are Timeout even when unwrapped.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindOther
	}
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindOther
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
