package batch

import (
	"strings"

	"fontana/internal/store"
)

// DefaultChunkSize is the number of records requested per bulk lookup.
const DefaultChunkSize = 10

const overdrivePrefix = "overdrive-"

// Group is every chunk for one catalog key, in input order.
type Group struct {
	Key    string
	Chunks [][]*store.Item
}

// CatalogKey returns the chunk key for an item: "evergreen", or
// "overdrive-<library>" for lending-platform items.
func CatalogKey(item *store.Item) string {
	if item.Collection == store.CollectionOverdrive {
		return overdrivePrefix + strings.ToLower(strings.TrimSpace(item.Library))
	}
	return string(store.CollectionEvergreen)
}

// LibraryFromKey extracts the library from an overdrive chunk key.
func LibraryFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, overdrivePrefix) {
		return "", false
	}
	return strings.TrimPrefix(key, overdrivePrefix), true
}

// Chunk groups items by catalog key and splits each group into chunks of at
// most size. Keys appear in order of first occurrence and items keep their
// relative order.
func Chunk(items []*store.Item, size int) []Group {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var (
		order  []string
		byKey  = map[string][]*store.Item{}
		groups []Group
	)
	for _, item := range items {
		if item == nil {
			continue
		}
		key := CatalogKey(item)
		if _, ok := byKey[key]; !ok {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], item)
	}
	for _, key := range order {
		members := byKey[key]
		group := Group{Key: key}
		for start := 0; start < len(members); start += size {
			end := min(start+size, len(members))
			group.Chunks = append(group.Chunks, members[start:end])
		}
		groups = append(groups, group)
	}
	return groups
}
