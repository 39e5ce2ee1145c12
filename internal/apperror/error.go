package apperror

import (
	"errors"
	"fmt"
	"strings"
)

// Kind groups codes by who has to act on them.
type Kind uint8

const (
	// KindInternal is a bug or an unexpected state in this process.
	KindInternal Kind = iota
	// KindInput is a malformed or unsatisfiable request.
	KindInput
	// KindUpstream is a ledger node or venue contract that failed to answer.
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// AppError is the structured error returned across package boundaries.
type AppError struct {
	Code    Code
	Message string
	Kind    Kind
	// Context names the token, venue or call the error is about.
	Context string
	cause   error
}

func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Code))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if e.Context != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Context)
		sb.WriteString(")")
	}
	if e.cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.cause.Error())
	}
	return sb.String()
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches any AppError carrying the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// LogFields returns key/value pairs for the structured logger.
func (e *AppError) LogFields() []any {
	fields := []any{"code", string(e.Code), "kind", e.Kind.String(), "message", e.Message}
	if e.Context != "" {
		fields = append(fields, "context", e.Context)
	}
	if e.cause != nil {
		fields = append(fields, "cause", e.cause.Error())
	}
	return fields
}

// New creates an AppError with the given code and options.
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:    code,
		Message: messages[code],
		Kind:    kindOf(code),
	}
	for _, opt := range opts {
		opt(err)
	}
	if err.Message == "" {
		err.Message = string(code)
	}
	return err
}

// Option is a functional option for AppError
type Option func(*AppError)

// WithContext adds context information
func WithContext(context string) Option {
	return func(e *AppError) {
		e.Context = context
	}
}

// WithContextf adds formatted context information
func WithContextf(format string, args ...any) Option {
	return WithContext(fmt.Sprintf(format, args...))
}

// WithCause wraps an underlying error
func WithCause(cause error) Option {
	return func(e *AppError) {
		e.cause = cause
	}
}

// Wrap converts err into an AppError. An AppError already in the chain is
// returned as is, with context filled in when it had none.
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		if context != "" && appErr.Context == "" {
			appErr.Context = context
		}
		return appErr
	}
	return New(code, WithContext(context), WithCause(err))
}

// GetCode extracts the error code from an error
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code Code) bool {
	return errors.Is(err, &AppError{Code: code})
}

// KindOf returns the kind of the first AppError in the chain. Plain errors
// are internal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsInput reports whether err was caused by the request itself.
func IsInput(err error) bool {
	return err != nil && KindOf(err) == KindInput
}

// LogFields flattens any error for the structured logger.
func LogFields(err error) []any {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.LogFields()
	}
	return []any{"error", err}
}

func kindOf(code Code) Kind {
	c := string(code)
	switch {
	case code == CodeABIEncodingFailed:
		return KindInternal
	case strings.HasPrefix(c, "INVALID"), code == CodeRequiredField, code == CodeIdenticalTokens,
		code == CodeArithmeticOverflow, code == CodeUnknownVenue, code == CodeNotFound:
		return KindInput
	case strings.Contains(c, "CONNECTION"), strings.Contains(c, "TIMEOUT"), strings.HasSuffix(c, "_FAILED"),
		code == CodeVenueUnavailable, code == CodeCircuitOpen, code == CodeRateLimitExceeded,
		code == CodeServiceUnavailable:
		return KindUpstream
	default:
		return KindInternal
	}
}
