// Package remotecache defines the optional L2 RemoteCache capability (spec
// §4.3). When present, the CacheLayer consults it on an L1 miss and
// promotes a hit back into L1 with the original TTL clipped to the
// remaining time.
package remotecache

import (
	"context"
	"time"
)

// RemoteCache is the L2 capability contract. Implementations must be safe
// for concurrent use.
type RemoteCache interface {
	// Get returns the value and its remaining TTL, or ok=false on miss.
	Get(ctx context.Context, key string) (value []byte, remaining time.Duration, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
