package datasource

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/TimurManjosov/goflagship/internal/datastore/memstore"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

func writeTestDataFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "flags.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write test data file: %v", err)
	}
	return path
}

func TestFile_Start_LoadsFlagsAndSegments(t *testing.T) {
	path := writeTestDataFile(t, `
flags:
  - key: my-flag
    version: 1
    on: true
    variations: [false, true]
    fallthrough:
      variation: 1
segments:
  - key: internal-users
    version: 1
    included: [u1]
`)

	store := memstore.New()
	f := NewFile(path, store)
	if err := f.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.Close()

	flags, err := store.All(context.Background(), ldmodel.KindFlag)
	if err != nil || len(flags) != 1 {
		t.Fatalf("All(flags) = %v, %v; want exactly one flag", flags, err)
	}
	segments, err := store.All(context.Background(), ldmodel.KindSegment)
	if err != nil || len(segments) != 1 {
		t.Fatalf("All(segments) = %v, %v; want exactly one segment", segments, err)
	}

	initialized, _ := store.Initialized(context.Background())
	if !initialized {
		t.Fatalf("expected the store to be initialized after Start")
	}
}

func TestFile_Start_MissingFile(t *testing.T) {
	f := NewFile("/nonexistent/path/flags.yaml", memstore.New())
	if err := f.Start(context.Background()); err == nil {
		t.Fatal("expected an error for a missing test-data file")
	}
}

func TestFile_Start_MalformedYAML(t *testing.T) {
	path := writeTestDataFile(t, "flags: [this is not valid: yaml: content")
	f := NewFile(path, memstore.New())
	if err := f.Start(context.Background()); err == nil {
		t.Fatal("expected an error for a malformed test-data file")
	}
}
