package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Table returns the digest of a fact table over a canonical serialization
// (sorted "name=value" lines), so equal tables always hash equally.
func Table(facts map[string]string) string {
	names := make([]string, 0, len(facts))
	for name := range facts {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(facts[name])
		b.WriteByte('\n')
	}
	return Sum([]byte(b.String()))
}
