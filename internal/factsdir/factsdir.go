// Package factsdir reads an optional local facts directory (facts.d): a
// flat directory of .yaml and .txt files whose keys are merged into the
// fact table alongside metadata-derived facts.
package factsdir

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Dir reads fact files from a single directory. No recursion: facts.d is
// flat by convention.
type Dir struct {
	root   string // absolute path to the facts directory
	logger *slog.Logger
}

// New creates a Dir rooted at the given directory. The directory must
// already exist.
func New(root string, logger *slog.Logger) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("factsdir: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("factsdir: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("factsdir: root is not a directory: %s", abs)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dir{root: abs, logger: logger}, nil
}

// Root returns the absolute directory path.
func (d *Dir) Root() string {
	return d.root
}

// Load reads every recognized fact file and returns the merged key→value
// map. Files are read in lexical order, so a key defined in two files
// resolves deterministically (later file wins). A file that cannot be read
// or parsed is logged and skipped; Load only fails on a directory error.
func (d *Dir) Load() (map[string]string, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("factsdir: read dir: %w", err)
	}

	facts := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" && ext != ".txt" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(d.root, name))
		if err != nil {
			d.logger.Warn("factsdir: read failed", slog.String("file", name), slog.String("error", err.Error()))
			continue
		}

		var parsed map[string]string
		if ext == ".txt" {
			parsed = parsePlain(data)
		} else {
			parsed, err = parseYAML(data)
			if err != nil {
				d.logger.Warn("factsdir: parse failed", slog.String("file", name), slog.String("error", err.Error()))
				continue
			}
		}
		for k, v := range parsed {
			facts[k] = v
		}
	}
	return facts, nil
}
