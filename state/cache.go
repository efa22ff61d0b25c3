package state

import (
	"github.com/VictoriaMetrics/fastcache"
	"golang.org/x/sync/singleflight"

	"github.com/luxfi/hybridvm/types"
)

// CachedResolver memoizes Resolver lookups for the duration of one block's
// execution, avoiding a repeated trie descent for hot keys (resources,
// modules, accounts read multiple times by the same or concurrent
// transactions). Grounded on the per-key memoization the Move execution
// layer does around its resolver: a Move value miss is looked up once and
// every concurrent caller for the same key waits on that single lookup
// instead of racing the trie. Account lookups are memoized but not
// deduplicated.
type CachedResolver struct {
	inner   *Resolver
	cache   *fastcache.Cache
	inflight singleflight.Group
}

// NewCachedResolver wraps resolver with an sizeBytes-capacity memo cache.
func NewCachedResolver(resolver *Resolver, sizeBytes int) *CachedResolver {
	return &CachedResolver{inner: resolver, cache: fastcache.New(sizeBytes)}
}

// Clear drops every memoized entry. The cache is only valid for the
// resolver's root at construction time.
func (c *CachedResolver) Clear() {
	c.cache.Reset()
}

func (c *CachedResolver) GetMoveValue(key []byte) (*types.StateValue, bool, error) {
	cacheKey := append([]byte("mv:"), key...)
	if hit, found := c.cache.HasGet(nil, cacheKey); found {
		if len(hit) == 0 {
			return nil, false, nil
		}
		var sv types.StateValue
		if err := sv.UnmarshalBinary(hit); err != nil {
			return nil, false, err
		}
		return &sv, true, nil
	}

	v, err, _ := c.inflight.Do(string(cacheKey), func() (interface{}, error) {
		sv, ok, err := c.inner.GetMoveValue(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			c.cache.Set(cacheKey, nil)
			return (*types.StateValue)(nil), nil
		}
		enc, err := sv.MarshalBinary()
		if err != nil {
			return nil, err
		}
		c.cache.Set(cacheKey, enc)
		return sv, nil
	})
	if err != nil {
		return nil, false, err
	}
	sv, _ := v.(*types.StateValue)
	return sv, sv != nil, nil
}

// PutMoveValue writes through to the underlying resolver and refreshes the
// cached entry.
func (c *CachedResolver) PutMoveValue(key []byte, value types.StateValue) error {
	if err := c.inner.PutMoveValue(key, value); err != nil {
		return err
	}
	enc, err := value.MarshalBinary()
	if err != nil {
		return err
	}
	c.cache.Set(append([]byte("mv:"), key...), enc)
	return nil
}

func (c *CachedResolver) GetAccount(addr types.Address) (types.AccountInfo, bool, error) {
	cacheKey := append([]byte("ac:"), addr.Bytes()...)
	if hit, found := c.cache.HasGet(nil, cacheKey); found {
		if len(hit) == 0 {
			return types.EmptyAccount(), false, nil
		}
		var info types.AccountInfo
		if err := info.UnmarshalBinary(hit); err != nil {
			return types.AccountInfo{}, false, err
		}
		return info, true, nil
	}

	info, ok, err := c.inner.GetAccount(addr)
	if err != nil {
		return types.AccountInfo{}, false, err
	}
	if !ok {
		c.cache.Set(cacheKey, nil)
		return info, false, nil
	}
	enc, err := info.MarshalBinary()
	if err != nil {
		return types.AccountInfo{}, false, err
	}
	c.cache.Set(cacheKey, enc)
	return info, true, nil
}

// PutAccount writes through to the underlying resolver and refreshes the
// cached entry.
func (c *CachedResolver) PutAccount(addr types.Address, info types.AccountInfo) error {
	if err := c.inner.PutAccount(addr, info); err != nil {
		return err
	}
	enc, err := info.MarshalBinary()
	if err != nil {
		return err
	}
	c.cache.Set(append([]byte("ac:"), addr.Bytes()...), enc)
	return nil
}
