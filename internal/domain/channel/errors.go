package channel

import "errors"

var (
	// ErrTransientFetch indicates a network-level failure talking to the
	// order-management platform. Retryable by the caller.
	ErrTransientFetch = errors.New("channel: transient fetch failure")

	// ErrAuth indicates authentication with the platform failed even after
	// the single in-run re-authentication attempt. Not retried within a run.
	ErrAuth = errors.New("channel: platform authentication failed")

	// ErrTokenExpired indicates the cached session token was rejected by the
	// platform. Internal to the client; callers see ErrAuth if re-login fails.
	ErrTokenExpired = errors.New("channel: session token expired")

	// ErrSchema indicates the platform returned a response whose shape could
	// not be parsed. Aborts only the affected page.
	ErrSchema = errors.New("channel: unexpected platform response shape")

	// ErrRateLimited indicates the platform rejected the request for quota
	ErrRateLimited = errors.New("channel: rate limited by platform")

	// ErrTrackingUpload indicates a tracking-number upload was rejected
	ErrTrackingUpload = errors.New("channel: tracking upload rejected")
)
