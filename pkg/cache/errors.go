package cache

import "errors"

// ErrNetwork is returned when a remote backend cannot be reached. Redis
// failures wrap it so callers can tell a broken cache from a bad key.
var ErrNetwork = errors.New("network error")
