// Package errors defines the structured errors symdex raises and the
// helpers that classify them.
//
// Codes follow ERR_XXX_DESCRIPTION, where the leading digit places the
// code in a category:
//
//	1XX configuration
//	2XX storage (index files, manifest, symbol dumps)
//	4XX validation
//	5XX internal
package errors

import "strings"

// Category groups error codes for coarse handling decisions.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryStorage    Category = "STORAGE"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity says whether the surrounding operation may continue.
type Severity string

const (
	// SeverityFatal aborts the operation.
	SeverityFatal Severity = "FATAL"
	// SeverityError fails the operation but the process continues.
	SeverityError Severity = "ERROR"
	// SeverityWarning degrades the operation without failing it.
	SeverityWarning Severity = "WARNING"
)

const (
	// Configuration.
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage.
	ErrCodeStoreMissing   = "ERR_201_STORE_MISSING"
	ErrCodeIndexLocked    = "ERR_202_INDEX_LOCKED"
	ErrCodeCorruptIndex   = "ERR_205_CORRUPT_INDEX"
	ErrCodeDumpUnreadable = "ERR_206_DUMP_UNREADABLE"
	ErrCodeUnknownKind    = "ERR_207_UNKNOWN_KIND"

	// Validation.
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidQuery = "ERR_403_INVALID_QUERY"

	// Internal.
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_503_SEARCH_FAILED"
	ErrCodeIndexFailed  = "ERR_505_INDEX_FAILED"
)

func categoryFromCode(code string) Category {
	switch {
	case strings.HasPrefix(code, "ERR_1"):
		return CategoryConfig
	case strings.HasPrefix(code, "ERR_2"):
		return CategoryStorage
	case strings.HasPrefix(code, "ERR_4"):
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeUnknownKind:
		// Wrong results are worse than no results; these abort reads.
		return SeverityFatal
	case ErrCodeStoreMissing:
		return SeverityWarning
	}
	return SeverityError
}

func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeStoreMissing, ErrCodeIndexLocked:
		return true
	default:
		return false
	}
}
