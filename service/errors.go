package service

import "errors"

var (
	// ErrNoModules rejects finishing a draft with zero modules.
	ErrNoModules = errors.New("a subject needs at least one module before finishing")
	// ErrVideoNotAccessible means the video URL probe got a non-success answer.
	ErrVideoNotAccessible = errors.New("video resource not accessible")
	// ErrActionInFlight guards against double submission of a terminal action.
	ErrActionInFlight = errors.New("another action is already in flight")
	// ErrNoContext means neither a subject id nor a pending draft is available.
	ErrNoContext = errors.New("no subject and no pending draft")
	// ErrModuleNotFound means the referenced module is not in the draft.
	ErrModuleNotFound = errors.New("module not found in draft")
	// ErrUploadAborted marks a batch stopped by a configuration/authorization
	// failure; remaining files were skipped.
	ErrUploadAborted = errors.New("upload batch aborted, check storage configuration")
)

// FieldError flags a problem with one input field so the console can render
// it next to the field instead of a generic toast.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err *ValidationError) Unwrap() error {
	return err.Err
}
