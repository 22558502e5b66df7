package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key derives a stable cache key from an endpoint, a parameter set, and an
// entry type. Parameter names are sorted before serialization so equivalent
// parameter sets hash identically regardless of insertion order. The embedded
// endpoint and type are a debugging aid; the hash is not collision-resistant
// and does not need to be.
func Key(endpoint string, params map[string]string, typ EntryType) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for i, name := range names {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
	}

	return fmt.Sprintf("%s:%s:%08x", typ, endpoint, hash32(b.String()))
}

// hash32 is the rolling multiply-and-subtract hash (h*31 + c, computed as
// (h<<5)-h+c) carried over from the original caching layer. Stable within a
// process; no guarantee across processes.
func hash32(s string) uint32 {
	var h uint32
	for _, c := range []byte(s) {
		h = (h << 5) - h + uint32(c)
	}
	return h
}
