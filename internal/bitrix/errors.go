package bitrix

import "errors"

// Error kinds returned by the provider client. Callers match on these with
// errors.Is to distinguish recoverable from fatal outcomes instead of
// parsing error text.
var (
	// ErrInvalidArgument means the caller supplied malformed input, for
	// example a user lookup with no identifier at all.
	ErrInvalidArgument = errors.New("bitrix: invalid argument")

	// ErrNotFound means the provider returned zero matches for a lookup.
	ErrNotFound = errors.New("bitrix: not found")

	// ErrUnavailable means the provider answered with a non-2xx status or
	// the transport failed after retries.
	ErrUnavailable = errors.New("bitrix: provider unavailable")

	// ErrDataMissing means a 2xx response lacked the expected result
	// payload entirely.
	ErrDataMissing = errors.New("bitrix: response missing result payload")

	// ErrProtocol means the response envelope did not match the documented
	// shape for the method.
	ErrProtocol = errors.New("bitrix: unexpected response envelope")
)
