package factsdir

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseYAML decodes a flat YAML mapping. Scalar values are stringified;
// nested values are rejected so a fact stays a single line of text.
func parseYAML(data []byte) (map[string]string, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch v.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("key %q: nested values are not supported", k)
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out, nil
}

// parsePlain reads "key=value" lines. Blank lines and lines starting with
// '#' are ignored; lines without '=' are skipped.
func parsePlain(data []byte) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = strings.TrimSpace(value)
	}
	return out
}
