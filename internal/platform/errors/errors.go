package errors

// Domain is the error domain for Bluffing Eyes errors.
const Domain = "github.com/gazelab/bluffing.eyes"

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Internal message (for logs/telemetry)
	Metadata map[string]string // Additional context for templating
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with metadata for i18n templating.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithMetadata creates a domain error with both metadata and a cause.
func WrapWithMetadata(code Code, message string, metadata map[string]string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
		Cause:    cause,
	}
}

// ClassOf reports the failure family of err, walking the error chain until a
// domain error is found. Errors outside the taxonomy classify as unknown.
func ClassOf(err error) Class {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code.ErrorClass()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ClassUnknown
}

// IsValidation reports whether err belongs to the validation family.
func IsValidation(err error) bool { return ClassOf(err) == ClassValidation }

// IsStorage reports whether err belongs to the storage family.
func IsStorage(err error) bool { return ClassOf(err) == ClassStorage }

// IsDelivery reports whether err belongs to the delivery family.
func IsDelivery(err error) bool { return ClassOf(err) == ClassDelivery }
