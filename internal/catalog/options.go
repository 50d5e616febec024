package catalog

import (
	"sort"
	"strings"
)

// EncodeOptions renders an option set in a canonical form so two identically
// configured products compare equal regardless of map iteration order.
func EncodeOptions(options map[string]string) string {
	if len(options) == 0 {
		return ""
	}
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(options[k])
	}
	return b.String()
}

// SameOptions reports whether two option sets are exactly equal.
func SameOptions(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
