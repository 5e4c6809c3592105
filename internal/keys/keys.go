package keys

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// Sep separates a namespace from the caller's key.
const Sep = ":"

// Join returns ns + ":" + key.
func Join(ns, key string) string { return ns + Sep + key }

// Prefix returns the key prefix owned by ns.
func Prefix(ns string) string { return ns + Sep }

// Strip removes the ns prefix from a storage key. ok=false when k is not in ns.
func Strip(ns, k string) (string, bool) {
	return strings.CutPrefix(k, Prefix(ns))
}

// Safe bounds a storage key to max bytes for backends with a fixed key width.
// Longer keys keep a readable head, cut on a rune boundary, and end with
// "#" + the xxhash of the full key.
// max <= 0 disables bounding.
func Safe(k string, max int) string {
	if max <= 0 || len(k) <= max {
		return k
	}
	sum := "#" + strconv.FormatUint(xxhash.Sum64String(k), 16)
	if max <= len(sum) {
		return sum[:max]
	}
	head := max - len(sum)
	for head > 0 && !utf8.RuneStart(k[head]) {
		head--
	}
	return k[:head] + sum
}

// Uniq returns keys with duplicates removed, preserving first-seen order.
func Uniq(ks []string) []string {
	seen := make(map[string]struct{}, len(ks))
	out := make([]string, 0, len(ks))
	for _, k := range ks {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
