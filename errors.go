package sdk

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Sentinel errors for common SDK error conditions.
// These errors can be used with errors.Is() for error checking.
var (
	// ErrMalformedReference indicates a node reference string that could
	// not be parsed into scheme, address, and identifier.
	ErrMalformedReference = errors.New("malformed node reference")

	// ErrRootNotFound indicates the repository root container could not
	// be located at its well-known path.
	ErrRootNotFound = errors.New("repository root not found")

	// ErrUnresolvableParent indicates a node exposed no usable parent
	// reference, so its path cannot be completed.
	ErrUnresolvableParent = errors.New("parent reference unresolvable")

	// ErrRecursionLimit indicates path resolution gave up, either because
	// the ancestor chain exceeded the depth ceiling or because it looped
	// back on itself.
	ErrRecursionLimit = errors.New("path resolution recursion limit reached")

	// ErrParentFetchFailed indicates a parent node lookup failed while
	// walking an ancestor chain. The underlying error is wrapped.
	ErrParentFetchFailed = errors.New("parent fetch failed")

	// ErrChildListingFailed indicates that neither direct child listing
	// nor the path-query fallback produced a usable result.
	ErrChildListingFailed = errors.New("child listing failed")

	// ErrAuthenticationFailed indicates the repository rejected the
	// supplied credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrInvalidConfig indicates the provided configuration is invalid or incomplete.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Error kinds categorize errors by their type.
const (
	// KindNotFound represents errors where a resource was not found.
	KindNotFound = "not_found"

	// KindValidation represents errors related to input validation.
	KindValidation = "validation"

	// KindResolution represents errors raised while resolving node paths.
	KindResolution = "resolution"

	// KindTransport represents errors raised by the repository transport.
	KindTransport = "transport"

	// KindAuthentication represents errors related to session tickets and
	// credentials.
	KindAuthentication = "authentication"

	// KindConfiguration represents errors related to configuration.
	KindConfiguration = "configuration"

	// KindInternal represents internal SDK errors.
	KindInternal = "internal"
)

// SDKError is a structured error type that wraps underlying errors with
// additional context about the operation that failed and the category of error.
//
// SDKError implements the error interface and supports error unwrapping,
// making it compatible with errors.Is() and errors.As().
//
// Example usage:
//
//	err := &SDKError{
//		Op:   "Client.ListChildren",
//		Kind: KindResolution,
//		Err:  ErrUnresolvableParent,
//	}
type SDKError struct {
	// Op is the operation that failed (e.g., "Client.Authenticate").
	Op string

	// Kind categorizes the error (e.g., KindNotFound, KindResolution).
	Kind string

	// Err is the underlying error that caused this error.
	Err error

	// Context provides additional context about the error (optional).
	// This can include node references, usernames, or other debugging
	// information.
	Context map[string]any
}

// Error implements the error interface, returning a formatted error message
// that includes the operation, kind, and underlying error.
func (e *SDKError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("sdk: %s: %s", e.Op, e.Kind)
	}

	if len(e.Context) > 0 {
		return fmt.Sprintf("sdk: %s (%s): %v [context: %+v]", e.Op, e.Kind, e.Err, e.Context)
	}

	return fmt.Sprintf("sdk: %s (%s): %v", e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying error, allowing errors.Is() and errors.As()
// to work correctly with wrapped errors.
func (e *SDKError) Unwrap() error {
	return e.Err
}

// Is implements error matching for SDKError, allowing comparison based on
// the underlying error or the SDKError itself.
func (e *SDKError) Is(target error) bool {
	if target == nil {
		return false
	}

	// Check if target is an SDKError with matching Kind
	if t, ok := target.(*SDKError); ok {
		// Match if both Op and Kind are the same, or if Kind matches and Op is empty in target
		if t.Kind != "" && e.Kind == t.Kind {
			if t.Op == "" || e.Op == t.Op {
				return true
			}
		}
	}

	// Delegate to underlying error
	return errors.Is(e.Err, target)
}

// WithContext returns a new SDKError with the provided context added.
// This is useful for adding debugging information to errors.
//
// Example:
//
//	err := &SDKError{
//		Op:   "Client.ListChildren",
//		Kind: KindResolution,
//		Err:  ErrUnresolvableParent,
//	}
//	err = err.WithContext(map[string]any{
//		"ref": "workspace://SpacesStore/abc-123",
//	})
func (e *SDKError) WithContext(ctx map[string]any) *SDKError {
	newErr := *e
	if newErr.Context == nil {
		newErr.Context = make(map[string]any)
	}
	for k, v := range ctx {
		newErr.Context[k] = v
	}
	return &newErr
}

// NewNotFoundError creates a new SDKError with KindNotFound.
func NewNotFoundError(op string, err error) *SDKError {
	return &SDKError{
		Op:   op,
		Kind: KindNotFound,
		Err:  err,
	}
}

// NewValidationError creates a new SDKError with KindValidation.
func NewValidationError(op string, err error) *SDKError {
	return &SDKError{
		Op:   op,
		Kind: KindValidation,
		Err:  err,
	}
}

// NewResolutionError creates a new SDKError with KindResolution.
func NewResolutionError(op string, err error) *SDKError {
	return &SDKError{
		Op:   op,
		Kind: KindResolution,
		Err:  err,
	}
}

// NewTransportError creates a new SDKError with KindTransport.
func NewTransportError(op string, err error) *SDKError {
	return &SDKError{
		Op:   op,
		Kind: KindTransport,
		Err:  err,
	}
}

// NewAuthenticationError creates a new SDKError with KindAuthentication.
func NewAuthenticationError(op string, err error) *SDKError {
	return &SDKError{
		Op:   op,
		Kind: KindAuthentication,
		Err:  err,
	}
}

// NewConfigurationError creates a new SDKError with KindConfiguration.
func NewConfigurationError(op string, err error) *SDKError {
	return &SDKError{
		Op:   op,
		Kind: KindConfiguration,
		Err:  err,
	}
}

// NewInternalError creates a new SDKError with KindInternal.
func NewInternalError(op string, err error) *SDKError {
	return &SDKError{
		Op:   op,
		Kind: KindInternal,
		Err:  err,
	}
}

// CloseWithLog attempts to close the provided resource and logs any error
// at warning level. This is intended for use in defer statements to ensure
// cleanup errors are not silently ignored.
//
// The name parameter should describe the resource being closed (e.g.,
// "transport", "session store"). If logger is nil, slog.Default() is used.
//
// Example usage:
//
//	defer sdk.CloseWithLog(store, logger, "session store")
func CloseWithLog(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}

	if logger == nil {
		logger = slog.Default()
	}

	if err := closer.Close(); err != nil {
		logger.Warn("failed to close resource",
			"resource", name,
			"error", err)
	}
}
