package services

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Handlers map kinds to HTTP
// statuses; the orchestrator maps them to alert rows.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindProbe
	KindPersistence
	KindTranscode
	KindThumbnail
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindProbe:
		return "probe"
	case KindPersistence:
		return "persistence"
	case KindTranscode:
		return "transcode"
	case KindThumbnail:
		return "thumbnail"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func errOf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind, or 0 for errors from outside the
// pipeline.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
