package redis

import (
	"strconv"
	"strings"
)

// DefaultPrefix namespaces every key written by the backend.
const DefaultPrefix = "clipflow"

// Keys builds the Redis key layout under one prefix:
//
//	<prefix>:entry:<id>       JSON-encoded entry
//	<prefix>:entries:recent   ZSET of ids scored by copied_at (unix micros)
//	<prefix>:hash:<hash>      id of the entry holding that content hash
//	<prefix>:entries:seq      id counter
type Keys struct {
	prefix string
}

// NewKeys returns the layout for prefix, or DefaultPrefix when empty.
func NewKeys(prefix string) Keys {
	prefix = strings.TrimSuffix(prefix, ":")
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return Keys{prefix: prefix}
}

// Entry returns the key for an entry by ID
func (k Keys) Entry(id int64) string {
	return k.prefix + ":entry:" + strconv.FormatInt(id, 10)
}

// Recent returns the recency index key
func (k Keys) Recent() string {
	return k.prefix + ":entries:recent"
}

// Hash returns the dedup key for a content hash
func (k Keys) Hash(hash string) string {
	return k.prefix + ":hash:" + hash
}

// Seq returns the id counter key
func (k Keys) Seq() string {
	return k.prefix + ":entries:seq"
}

// Pattern matches every key under the prefix
func (k Keys) Pattern() string {
	return k.prefix + ":*"
}
