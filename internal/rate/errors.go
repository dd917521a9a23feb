package rate

import "errors"

// ErrRedisUnavailable wraps every redis failure seen by Counter.
var ErrRedisUnavailable = errors.New("redis unavailable")
