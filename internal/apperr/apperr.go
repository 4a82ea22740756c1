// Package apperr declares the error taxonomy shared across ingestion,
// the agent runtime, and the HTTP surface, plus the mapping from taxonomy
// to HTTP status used by internal/api.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the error categories from the taxonomy. It is a code,
// not a Go type hierarchy: callers compare Kind, not sentinel identity.
type Kind string

const (
	// ConfigError: missing/invalid environment. Fatal at boot.
	KindConfig Kind = "config_error"
	// ParseError: malformed input file; surfaced to the upload caller.
	KindParse Kind = "parse_error"
	// IngestConflict: CHECK constraint violation during upsert.
	KindIngestConflict Kind = "ingest_conflict"
	// ToolError: MCP tool-server failure, reported to the LLM as a tool result.
	KindTool Kind = "tool_error"
	// ModelError: transport/protocol failure talking to the LLM.
	KindModel Kind = "model_error"
	// ScrapeError: scheduled job failure, recorded in SyncMetadata.
	KindScrape Kind = "scrape_error"
	// TimeoutError: any deadline exceeded; handled like its enclosing category.
	KindTimeout Kind = "timeout_error"
)

// Error is a taxonomy-tagged application error. Wrapping preserves Unwrap
// so errors.Is/As still reach the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func Config(format string, args ...any) *Error { return newErr(KindConfig, format, args...) }
func Parse(format string, args ...any) *Error  { return newErr(KindParse, format, args...) }
func IngestConflict(format string, args ...any) *Error {
	return newErr(KindIngestConflict, format, args...)
}
func Tool(format string, args ...any) *Error    { return newErr(KindTool, format, args...) }
func Model(format string, args ...any) *Error   { return newErr(KindModel, format, args...) }
func Scrape(format string, args ...any) *Error  { return newErr(KindScrape, format, args...) }
func Timeout(format string, args ...any) *Error { return newErr(KindTimeout, format, args...) }

func WrapConfig(cause error, format string, args ...any) *Error {
	return wrap(KindConfig, cause, format, args...)
}
func WrapParse(cause error, format string, args ...any) *Error {
	return wrap(KindParse, cause, format, args...)
}
func WrapIngestConflict(cause error, format string, args ...any) *Error {
	return wrap(KindIngestConflict, cause, format, args...)
}
func WrapTool(cause error, format string, args ...any) *Error {
	return wrap(KindTool, cause, format, args...)
}
func WrapModel(cause error, format string, args ...any) *Error {
	return wrap(KindModel, cause, format, args...)
}
func WrapScrape(cause error, format string, args ...any) *Error {
	return wrap(KindScrape, cause, format, args...)
}
func WrapTimeout(cause error, format string, args ...any) *Error {
	return wrap(KindTimeout, cause, format, args...)
}

// KindOf extracts the Kind of err, following wrapped errors. Returns ""
// when err is nil or not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusFor maps a taxonomy Kind to the HTTP status internal/api should
// respond with. Kinds that never reach the HTTP layer directly (ToolError,
// ScrapeError) still get a sane default for completeness.
func StatusFor(kind Kind) int {
	switch kind {
	case KindConfig:
		return http.StatusInternalServerError
	case KindParse:
		return http.StatusBadRequest
	case KindIngestConflict:
		return http.StatusUnprocessableEntity
	case KindTool:
		return http.StatusBadGateway
	case KindModel:
		return http.StatusBadGateway
	case KindScrape:
		return http.StatusInternalServerError
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
