package cache

import "errors"

// ErrCacheMiss can be returned by helpers that turn a miss into an error.
var ErrCacheMiss = errors.New("cache miss")
