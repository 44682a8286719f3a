package config

import (
	"time"
)

// Cache is an explicit TTL cache capability (get/set/invalidate) backed by
// Redis. It replaces the old in-process map-with-TTL: invalidation is an
// explicit call made by the code that changes the underlying data, never an
// implicit side effect.
type Cache struct {
	Prefix string
	TTL    time.Duration
}

func NewCache(prefix string, ttl time.Duration) *Cache {
	return &Cache{Prefix: prefix, TTL: ttl}
}

func (c *Cache) key(k string) string {
	return c.Prefix + ":" + k
}

// Get unmarshals the cached object into dest. Misses are (false, nil); a cold
// Redis behaves as an always-miss cache.
func (c *Cache) Get(k string, dest interface{}) (bool, error) {
	return GetRedisObject(c.key(k), dest)
}

func (c *Cache) Set(k string, obj interface{}) error {
	return SetRedisObject(c.key(k), obj, c.TTL)
}

func (c *Cache) Invalidate(keys ...string) error {
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, c.key(k))
	}
	return RemoveRedisKey(full...)
}
