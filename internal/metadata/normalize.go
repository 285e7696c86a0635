package metadata

import (
	"sort"
	"strings"
)

// DefaultFilterPatterns drops the SSH key material duplicated under the
// public-keys/0 sub-tree so it is not re-emitted under several aliases.
var DefaultFilterPatterns = []string{"public-keys-0"}

// Normalizer converts a raw URI-keyed table into flat fact names.
//
// Naming convention: the path relative to the base URI has its separators
// converted to hyphens, the namespace prefix is prepended, and finally every
// colon and hyphen becomes an underscore, so emitted keys contain only
// alphanumerics and underscores.
type Normalizer struct {
	Prefix  string   // namespace token, e.g. "ec2"
	Filters []string // keys containing any of these patterns are dropped
}

// NewNormalizer creates a Normalizer with the default filter patterns.
func NewNormalizer(prefix string) *Normalizer {
	return &Normalizer{Prefix: prefix, Filters: DefaultFilterPatterns}
}

// Normalize flattens raw into prefixed fact names. Keys are processed in
// sorted order at every stage, so two paths colliding on the same name —
// whether before or after sanitization — resolve identically on every run
// (last write wins).
func (n *Normalizer) Normalize(raw map[string]string, baseURI string) map[string]string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mid := make(map[string]string, len(raw))
	for _, k := range keys {
		segments := strings.Split(strings.TrimPrefix(k, baseURI), "/")
		name := segments[0]
		if len(segments) > 1 && segments[1] != "" {
			name = strings.Join(segments, "-")
		}
		mid[n.Prefix+"_"+name] = raw[k]
	}

	// Filtering runs on the hyphenated names, before sanitization.
	for _, pattern := range n.Filters {
		for k := range mid {
			if strings.Contains(k, pattern) {
				delete(mid, k)
			}
		}
	}

	// The sanitize pass can introduce collisions of its own ("a:b" and
	// "a-b" both become "a_b"), so it runs in sorted order too.
	midKeys := make([]string, 0, len(mid))
	for k := range mid {
		midKeys = append(midKeys, k)
	}
	sort.Strings(midKeys)

	facts := make(map[string]string, len(mid))
	for _, k := range midKeys {
		facts[sanitizeName(k)] = mid[k]
	}
	return facts
}

// FactName builds the sanitized, prefixed fact name for a leaf that lives
// outside the recursive tree (user-data, public-key). Filters do not apply.
func (n *Normalizer) FactName(name string) string {
	return sanitizeName(n.Prefix + "_" + name)
}

// sanitizeName rewrites ':' and '-' to '_' so the result is a valid
// identifier in downstream templating systems. Idempotent.
func sanitizeName(name string) string {
	return strings.NewReplacer(":", "_", "-", "_").Replace(name)
}
