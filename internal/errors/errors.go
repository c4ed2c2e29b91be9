package errors

import (
	stderrors "errors"
	"fmt"
)

// IndexError carries the code, category, and severity that error
// handling, logging, and CLI presentation key off.
type IndexError struct {
	// Code uniquely identifies the failure (e.g. "ERR_201_STORE_MISSING").
	Code string

	// Message is what the user sees.
	Message string

	// Category groups codes for coarse handling decisions.
	Category Category

	// Severity says whether the surrounding operation may continue.
	Severity Severity

	// Details holds extra context as key-value pairs.
	Details map[string]string

	// Cause is the wrapped underlying error, if any.
	Cause error

	// Retryable marks conditions a caller may retry.
	Retryable bool

	// Suggestion tells the user what to do about it.
	Suggestion string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *IndexError) Unwrap() error {
	return e.Cause
}

// Is matches by code, so errors.Is works across instances carrying
// the same code regardless of message.
func (e *IndexError) Is(target error) bool {
	if t, ok := target.(*IndexError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail attaches a key-value detail and returns the error so
// construction can chain.
func (e *IndexError) WithDetail(key, value string) *IndexError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches an actionable hint and returns the error.
func (e *IndexError) WithSuggestion(suggestion string) *IndexError {
	e.Suggestion = suggestion
	return e
}

// New builds an IndexError. Category, severity, and retryability all
// derive from the code so call sites cannot disagree with the table
// in codes.go.
func New(code string, message string, cause error) *IndexError {
	return &IndexError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap lifts an existing error into an IndexError, reusing its message.
// Wrapping nil yields nil so it can sit directly on a return.
func Wrap(code string, err error) *IndexError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// StorageError builds an index-write failure.
func StorageError(message string, cause error) *IndexError {
	return New(ErrCodeIndexFailed, message, cause)
}

// ValidationError builds an input validation failure.
func ValidationError(message string, cause error) *IndexError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError builds an unexpected internal failure.
func InternalError(message string, cause error) *IndexError {
	return New(ErrCodeInternal, message, cause)
}

// asIndexError finds the first IndexError in err's chain.
func asIndexError(err error) (*IndexError, bool) {
	var ie *IndexError
	if stderrors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// IsRetryable reports whether err (or any error it wraps) is an
// IndexError marked retryable.
func IsRetryable(err error) bool {
	if ie, ok := asIndexError(err); ok {
		return ie.Retryable
	}
	return false
}

// IsFatal reports whether err carries fatal severity. Fatal errors
// abort the current operation.
func IsFatal(err error) bool {
	if ie, ok := asIndexError(err); ok {
		return ie.Severity == SeverityFatal
	}
	return false
}

// HasCode reports whether err's chain contains an IndexError with the
// given code. Matching rides on IndexError.Is, so fmt.Errorf %w
// wrapping is transparent.
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, &IndexError{Code: code})
}

// GetCode returns the code of the first IndexError in err's chain, or
// "" when there is none.
func GetCode(err error) string {
	if ie, ok := asIndexError(err); ok {
		return ie.Code
	}
	return ""
}

// GetCategory returns the category of the first IndexError in err's
// chain, or "" when there is none.
func GetCategory(err error) Category {
	if ie, ok := asIndexError(err); ok {
		return ie.Category
	}
	return ""
}
