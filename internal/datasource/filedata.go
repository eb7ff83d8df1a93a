package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/goflagship/internal/datastore"
	"github.com/TimurManjosov/goflagship/ldmodel"
)

// FileFormat is the on-disk shape of a flag/segment test-data file,
// grounded on goflagship's ExportFormat (cmd/flagship/commands/export.go)
// generalized from a flat []store.Flag to ldmodel's Flag/Segment pair so
// a single file can seed both collections.
type FileFormat struct {
	Flags    []ldmodel.Flag    `yaml:"flags" json:"flags"`
	Segments []ldmodel.Segment `yaml:"segments" json:"segments"`
}

// File is a one-shot, non-streaming DataSource that loads a fixed
// flags/segments file into the Data Store once and never updates it --
// the "file-based test data source" spec.md keeps out of the core's
// scope, useful here only for exercising the evaluator without a live
// control plane (cmd/ldflags's offline mode).
type File struct {
	path  string
	store datastore.Store
}

func NewFile(path string, store datastore.Store) *File {
	return &File{path: path, store: store}
}

// Start reads the file once and initializes the Data Store. There is no
// polling or watching: Close is a no-op and the returned DataSource never
// reports INTERRUPTED.
func (f *File) Start(ctx context.Context) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("read test-data file: %w", err)
	}

	// Decode the YAML generically and round-trip it through JSON so the
	// ldmodel types' json tags (camelCase keys such as offVariation, and
	// the rule's inlined variation/rollout) apply to the file as well.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse test-data file: %w", err)
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("parse test-data file: %w", err)
	}
	var parsed FileFormat
	if err := json.Unmarshal(asJSON, &parsed); err != nil {
		return fmt.Errorf("parse test-data file: %w", err)
	}

	items := map[ldmodel.Kind]map[string]ldmodel.ItemDescriptor{
		ldmodel.KindFlag:    {},
		ldmodel.KindSegment: {},
	}
	for i := range parsed.Flags {
		flag := parsed.Flags[i]
		items[ldmodel.KindFlag][flag.Key] = ldmodel.ItemDescriptor{Version: flag.Version, Flag: &flag}
	}
	for i := range parsed.Segments {
		segment := parsed.Segments[i]
		items[ldmodel.KindSegment][segment.Key] = ldmodel.ItemDescriptor{Version: segment.Version, Segment: &segment}
	}

	return f.store.Init(ctx, items)
}

func (f *File) Close() error { return nil }
