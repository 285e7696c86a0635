// Package testutil provides shared test helpers: a temp snapshot store and
// a fake metadata service seeded from a nested map tree.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"testing"

	"github.com/arnstad/hugin/internal/store"
)

// TestStore creates a temporary SQLite snapshot store that is automatically
// cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "hugin-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// FakeMetadata serves a metadata tree over the newline-listing protocol:
// directory nodes list their children (sub-directories suffixed with "/"),
// leaf nodes return their content. The user-data and SSH key endpoints live
// outside the tree, matching the real service layout.
type FakeMetadata struct {
	srv *httptest.Server
}

// NewFakeMetadata starts a fake metadata server. tree values are either
// string (leaf content) or map[string]any (sub-directory). Empty userData
// or publicKey makes the corresponding endpoint unavailable.
func NewFakeMetadata(t *testing.T, tree map[string]any, userData, publicKey string) *FakeMetadata {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/meta-data/", func(w http.ResponseWriter, r *http.Request) {
		node := lookup(tree, strings.TrimPrefix(r.URL.Path, "/meta-data/"))
		switch n := node.(type) {
		case string:
			_, _ = w.Write([]byte(n))
		case map[string]any:
			_, _ = w.Write([]byte(listing(n)))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/user-data", func(w http.ResponseWriter, r *http.Request) {
		if userData == "" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(userData))
	})
	mux.HandleFunc("/openssh-key", func(w http.ResponseWriter, r *http.Request) {
		if publicKey == "" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(publicKey))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &FakeMetadata{srv: srv}
}

// BaseURI returns the root of the recursive tree, with trailing separator.
func (f *FakeMetadata) BaseURI() string {
	return f.srv.URL + "/meta-data/"
}

// UserDataURI returns the user-data endpoint.
func (f *FakeMetadata) UserDataURI() string {
	return f.srv.URL + "/user-data"
}

// PublicKeyURI returns the SSH public key endpoint.
func (f *FakeMetadata) PublicKeyURI() string {
	return f.srv.URL + "/openssh-key"
}

// lookup walks rel through the nested tree; nil means not found.
func lookup(tree map[string]any, rel string) any {
	rel = strings.Trim(rel, "/")
	if rel == "" {
		return tree
	}
	var cur any = tree
	for _, seg := range strings.Split(rel, "/") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[seg]
		if !ok {
			return nil
		}
	}
	return cur
}

// listing renders a directory node as the newline-delimited child list,
// sorted for determinism.
func listing(m map[string]any) string {
	names := make([]string, 0, len(m))
	for name, child := range m {
		if _, isDir := child.(map[string]any); isDir {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "\n")
}
