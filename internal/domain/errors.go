package domain

import "errors"

var (
	// ErrFoodNotFound is returned when a food id does not exist in the store
	ErrFoodNotFound = errors.New("food not found")

	// ErrAisleNotFound is returned when an aisle id does not exist in the store
	ErrAisleNotFound = errors.New("aisle not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrStoreFailure is returned when a query against the food store fails
	ErrStoreFailure = errors.New("food store request failed")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")
)
