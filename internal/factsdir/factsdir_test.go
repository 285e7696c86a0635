package factsdir

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testDir(t *testing.T) (*Dir, string) {
	t.Helper()
	root := t.TempDir()
	d, err := New(root, slog.Default())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, root
}

func TestLoad_YAMLAndPlain(t *testing.T) {
	d, root := testDir(t)
	writeFile(t, root, "roles.yaml", "role: webserver\ntier: 2\n")
	writeFile(t, root, "site.txt", "# site facts\ndatacenter=ams1\n\nrack = r12\n")

	facts, err := d.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := map[string]string{
		"role":       "webserver",
		"tier":       "2",
		"datacenter": "ams1",
		"rack":       "r12",
	}
	for k, v := range want {
		if facts[k] != v {
			t.Errorf("facts[%q] = %q, want %q", k, facts[k], v)
		}
	}
	if len(facts) != len(want) {
		t.Errorf("len(facts) = %d, want %d", len(facts), len(want))
	}
}

func TestLoad_SkipsMalformedAndUnknownFiles(t *testing.T) {
	d, root := testDir(t)
	writeFile(t, root, "good.yaml", "ok: yes\n")
	writeFile(t, root, "nested.yaml", "parent:\n  child: 1\n")
	writeFile(t, root, "broken.yaml", ": not : valid : {{{\n")
	writeFile(t, root, "ignored.json", `{"k":"v"}`)

	facts, err := d.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(facts) != 1 || facts["ok"] == "" {
		t.Errorf("facts = %v, want only the good file", facts)
	}
}

func TestLoad_LaterFileWins(t *testing.T) {
	d, root := testDir(t)
	writeFile(t, root, "a.yaml", "dup: first\n")
	writeFile(t, root, "z.txt", "dup=last\n")

	facts, err := d.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if facts["dup"] != "last" {
		t.Errorf("dup = %q, want last", facts["dup"])
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	d, _ := testDir(t)
	facts, err := d.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("len(facts) = %d, want 0", len(facts))
	}
}

func TestNew_MissingDir(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "absent"), nil); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestParsePlain_MalformedLines(t *testing.T) {
	facts := parsePlain([]byte("no-equals-here\n=novalue\nkey=ok\n"))
	if len(facts) != 1 || facts["key"] != "ok" {
		t.Errorf("facts = %v", facts)
	}
}
