// errors.go
package winddown

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input parameters")
	ErrNotFound           = errors.New("record not found")
	ErrStorageUnavailable = errors.New("storage backend unavailable")
	ErrCacheUnavailable   = errors.New("cache backend unavailable")
	ErrAlreadyInitialized = errors.New("manager already initialized")
)
