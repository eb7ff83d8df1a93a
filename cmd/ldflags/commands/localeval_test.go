package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/TimurManjosov/goflagship/internal/evaluator"
)

const testDataYAML = `
flags:
  - key: bool-flag
    version: 1
    on: true
    variations: [false, true]
    offVariation: 0
    fallthrough:
      variation: 1
`

func writeLocalTestDataFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flags.yaml")
	if err := os.WriteFile(path, []byte(testDataYAML), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestEvalLocal_EvaluatesFlagFromFile(t *testing.T) {
	path := writeLocalTestDataFile(t)

	row, err := evalLocal(path, "bool-flag", "user-1", false)
	if err != nil {
		t.Fatalf("evalLocal() error: %v", err)
	}
	if row.Value != true {
		t.Errorf("Value = %v, want true", row.Value)
	}
}

func TestEvalLocal_UnknownFlagReturnsDefaultWithError(t *testing.T) {
	path := writeLocalTestDataFile(t)

	row, err := evalLocal(path, "missing-flag", "user-1", "fallback")
	if err != nil {
		t.Fatalf("evalLocal() error: %v", err)
	}
	if row.Value != "fallback" {
		t.Errorf("Value = %v, want fallback", row.Value)
	}
	if row.Detail.Reason.Kind != evaluator.ReasonError || row.Detail.Reason.ErrorKind != evaluator.ErrorKindFlagNotFound {
		t.Errorf("Reason = %+v, want ErrorKindFlagNotFound", row.Detail.Reason)
	}
}

func TestEvalLocal_MissingDataFileErrors(t *testing.T) {
	_, err := evalLocal(filepath.Join(t.TempDir(), "nope.yaml"), "bool-flag", "user-1", false)
	if err == nil {
		t.Fatal("expected an error for a missing test-data file")
	}
}

func TestAllFlagsLocal_ReturnsEveryFlagInFile(t *testing.T) {
	path := writeLocalTestDataFile(t)

	rows, err := allFlagsLocal(path, "user-1")
	if err != nil {
		t.Fatalf("allFlagsLocal() error: %v", err)
	}
	if len(rows) != 1 || rows[0].Key != "bool-flag" {
		t.Fatalf("rows = %+v, want exactly one bool-flag row", rows)
	}
	if rows[0].Value != true {
		t.Errorf("Value = %v, want true", rows[0].Value)
	}
}
