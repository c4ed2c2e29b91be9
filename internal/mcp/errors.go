// Package mcp implements the Model Context Protocol (MCP) server for symdex.
package mcp

import (
	"context"
	"errors"
	"fmt"

	symerrors "github.com/codenav/symdex/internal/errors"
)

// Custom MCP error codes for symdex.
const (
	// ErrCodeIndexNotFound indicates no index exists yet.
	ErrCodeIndexNotFound = -32001

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
// It maps known error types to appropriate MCP error codes and messages.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	// Already mapped errors pass through unchanged.
	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var ie *symerrors.IndexError
	if errors.As(err, &ie) {
		return mapIndexError(ie)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out.",
		}
	case errors.Is(err, context.Canceled):
		return &MCPError{
			Code:    ErrCodeTimeout,
			Message: "Request was canceled.",
		}
	default:
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: "Internal server error.",
		}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// mapIndexError converts an IndexError to an MCPError.
func mapIndexError(ie *symerrors.IndexError) *MCPError {
	// Build message with suggestion if available
	message := ie.Message
	if ie.Suggestion != "" {
		message = fmt.Sprintf("%s %s", ie.Message, ie.Suggestion)
	}

	switch ie.Code {
	case symerrors.ErrCodeStoreMissing:
		return &MCPError{
			Code:    ErrCodeIndexNotFound,
			Message: "No index found. Run 'symdex index' first.",
		}
	case symerrors.ErrCodeCorruptIndex:
		return &MCPError{
			Code:    ErrCodeIndexNotFound,
			Message: message,
		}
	}

	switch ie.Category {
	case symerrors.CategoryValidation:
		return &MCPError{
			Code:    ErrCodeInvalidParams,
			Message: message,
		}
	default: // CategoryConfig, CategoryStorage, CategoryInternal
		return &MCPError{
			Code:    ErrCodeInternalError,
			Message: message,
		}
	}
}
