package rate

import "errors"

var (
	// ErrRateLimited reports that the login attempt budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable reports that the backing Redis could not be reached.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
