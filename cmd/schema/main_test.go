package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCatalogSchemaDescribesDocument(t *testing.T) {
	schema := catalogSchema()
	if schema.Title != "Grid Tactics Catalog" {
		t.Fatalf("unexpected title %q", schema.Title)
	}

	data, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("marshal schema: %v", err)
	}
	for _, name := range []string{"Class", "Skill", "StatusEffectDefinition", "Encounter"} {
		if !strings.Contains(string(data), `"`+name+`"`) {
			t.Fatalf("schema missing definition %s", name)
		}
	}
	if !strings.Contains(string(data), `"maximum":100`) {
		t.Fatalf("expected probability bound in schema")
	}
}

func TestWriteSchemaReplacesFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "catalog.schema.json")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(out, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := writeSchema(out, catalogSchema()); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read schema: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("schema is not valid json: %v", err)
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}
