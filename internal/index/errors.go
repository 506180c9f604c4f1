package index

import "errors"

var (
	ErrNotReady = errors.New("index not ready")
	ErrNoImages = errors.New("no cover images indexed")
	ErrStale    = errors.New("cached index does not match catalog")

	ErrCacheDisabled = errors.New("index cache disabled")
)
