package store

import (
	"errors"
	"fmt"
)

// ErrNoTradableData is matched by every EmptyDataError via errors.Is.
var ErrNoTradableData = errors.New("no tradable data")

// TransportError is returned when the activity API is unreachable or answers
// with a non-success status. The whole fetch for the wallet is aborted.
type TransportError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FormatError is returned when a persisted dataset cannot be parsed.
// Row is 1-based and counts the header; zero means the file as a whole.
type FormatError struct {
	Path   string
	Row    int
	Column string
	Err    error
}

func (e *FormatError) Error() string {
	switch {
	case e.Row > 0 && e.Column != "":
		return fmt.Sprintf("dataset %s: row %d column %q: %v", e.Path, e.Row, e.Column, e.Err)
	case e.Column != "":
		return fmt.Sprintf("dataset %s: column %q: %v", e.Path, e.Column, e.Err)
	case e.Row > 0:
		return fmt.Sprintf("dataset %s: row %d: %v", e.Path, e.Row, e.Err)
	}
	return fmt.Sprintf("dataset %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// EmptyDataError is returned when a dataset has no Up/Down TRADE rows to plot.
type EmptyDataError struct {
	Path string
}

func (e *EmptyDataError) Error() string {
	if e.Path == "" {
		return ErrNoTradableData.Error()
	}
	return fmt.Sprintf("%s: %v", e.Path, ErrNoTradableData)
}

func (e *EmptyDataError) Is(target error) bool {
	return target == ErrNoTradableData
}

// ValidationError is returned for malformed user input, before any network call.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
