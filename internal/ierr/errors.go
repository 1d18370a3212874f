package ierr

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource conflict")
	ErrInternalServer = errors.New("internal server error")

	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")

	// Key validation failures. ErrKeyInactive and ErrExpiredKey are
	// variants of an invalid key; callers that do not care about the
	// distinction can match ErrInvalidKey via errors.Is on all three.
	ErrInvalidKey         = errors.New("api key invalid")
	ErrKeyInactive        = errors.New("api key inactive")
	ErrExpiredKey         = errors.New("api key expired")
	ErrScopeDenied        = errors.New("scope not granted to api key")
	ErrProviderNotAllowed = errors.New("provider not allowed for api key")
	ErrModelNotAllowed    = errors.New("model not allowed for api key")

	// Admission failures.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrCostCapExceeded   = errors.New("cost cap exceeded")

	// Secret resolution failures. Scope denial is deliberately
	// distinguishable from not-found: resolvers operate inside a single
	// tenant's namespace.
	ErrSecretNotFound    = errors.New("tenant secret not found")
	ErrSecretScopeDenied = errors.New("tenant secret not authorized for scope")

	// ErrUsageRecordingFailed is retryable: the usage write is idempotent
	// per correlation id.
	ErrUsageRecordingFailed = errors.New("usage recording failed")
)
