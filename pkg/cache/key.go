package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Collection names used in cache keys.
const (
	CollectionJournals   = "journals"
	CollectionCategories = "categories"
	CollectionTags       = "tags"
)

// Operation names used in cache keys.
const (
	OpList   = "list"
	OpDetail = "detail"
	OpSearch = "search"
)

// Key represents a unique identifier for a cached API response.
type Key struct {
	// Collection is the content collection (e.g., "journals")
	Collection string

	// Operation is the logical operation (e.g., "list", "detail")
	Operation string

	// Params are the normalized request parameters. Multi-valued
	// parameters are supported; insertion order never affects the key.
	Params url.Values
}

// String generates a deterministic cache key string.
// Format: collection:operation for parameterless operations, otherwise
// collection:operation:hash where hash is an MD5 digest of the
// lexicographically sorted parameter set.
//
// Example:
//
//	journals:list:0d8f3a1c9e4b7f2a6d5c8e1b3f7a9d2c
func (k Key) String() string {
	if len(k.Params) == 0 {
		return fmt.Sprintf("%s:%s", k.Collection, k.Operation)
	}

	names := make([]string, 0, len(k.Params))
	for name := range k.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		values := k.Params[name]
		if len(values) > 1 {
			// Copy before sorting so the caller's slice is untouched.
			values = append([]string(nil), values...)
			sort.Strings(values)
		}
		pairs = append(pairs, fmt.Sprintf("%s=%s", name, strings.Join(values, ",")))
	}

	sum := md5.Sum([]byte(strings.Join(pairs, "&")))
	return fmt.Sprintf("%s:%s:%s", k.Collection, k.Operation, hex.EncodeToString(sum[:]))
}

// Prefix returns the collection:operation prefix shared by all keys of the
// same logical query family. Invalidation evicts by this prefix.
func (k Key) Prefix() string {
	return fmt.Sprintf("%s:%s", k.Collection, k.Operation)
}

// ListQuery is the normalized parameter set for collection list endpoints.
// Using a fixed shape instead of an open parameter map keeps key stability
// visible at compile time.
type ListQuery struct {
	Page     int
	Limit    int
	Status   string
	Category string
	Tag      string
	Search   string
}

// Values converts the query to url.Values, omitting zero-valued fields so
// that a default query and an empty query produce the same cache key.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Tag != "" {
		v.Set("tag", q.Tag)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	return v
}

// JournalListKey builds the cache key for a journal list request.
// Queries carrying a search term are keyed under the search operation,
// which has its own shorter-lived cache policy.
func JournalListKey(q ListQuery) Key {
	op := OpList
	if q.Search != "" {
		op = OpSearch
	}
	return Key{Collection: CollectionJournals, Operation: op, Params: q.Values()}
}

// JournalKey builds the cache key for a single journal lookup.
func JournalKey(slug string) Key {
	return Key{
		Collection: CollectionJournals,
		Operation:  OpDetail,
		Params:     url.Values{"slug": []string{slug}},
	}
}

// CategoryListKey builds the cache key for the category listing.
func CategoryListKey() Key {
	return Key{Collection: CollectionCategories, Operation: OpList}
}

// TagListKey builds the cache key for the tag listing.
func TagListKey(hideEmpty bool) Key {
	k := Key{Collection: CollectionTags, Operation: OpList}
	if hideEmpty {
		k.Params = url.Values{"hideEmpty": []string{"true"}}
	}
	return k
}
