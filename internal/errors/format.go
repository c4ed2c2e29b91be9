package errors

import (
	"fmt"
	"strings"
)

// FormatForCLI renders an error for terminal display: the message
// first, then the hint when there is one, then the code for bug
// reports.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ie, ok := asIndexError(err)
	if !ok {
		ie = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", ie.Message)
	if ie.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", ie.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", ie.Code)
	return sb.String()
}

// FormatForLog flattens an error into slog attributes. Plain errors
// degrade to a single "error" field.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	ie, ok := asIndexError(err)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_code": ie.Code,
		"message":    ie.Message,
		"category":   string(ie.Category),
		"severity":   string(ie.Severity),
		"retryable":  ie.Retryable,
	}

	if ie.Cause != nil {
		result["cause"] = ie.Cause.Error()
	}
	if ie.Suggestion != "" {
		result["suggestion"] = ie.Suggestion
	}
	for k, v := range ie.Details {
		result["detail_"+k] = v
	}

	return result
}
