// Package testdata provides controller response fixtures for fabric tests.
package testdata

import (
	"embed"
	"encoding/json"
	"path"
	"testing"
)

// FS embeds all JSON fixture files.
//
//go:embed */*.json
var FS embed.FS

// LoadFixture reads and returns fixture content as string.
// The path is relative to the testdata directory (e.g., "topology/pods.json").
func LoadFixture(t *testing.T, name string) string {
	t.Helper()

	data, err := FS.ReadFile(path.Clean(name))
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", name, err)
	}

	return string(data)
}

// LoadFixtureJSON reads fixture and unmarshals into provided value.
func LoadFixtureJSON(t *testing.T, name string, v any) {
	t.Helper()

	data := LoadFixture(t, name)
	if err := json.Unmarshal([]byte(data), v); err != nil {
		t.Fatalf("failed to unmarshal fixture %s: %v", name, err)
	}
}
