package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/goflagship/ldclient"
)

// OutputFormat specifies the output format for CLI commands.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// EvalRow is one flag key's evaluation result, the unit cmd/ldflags prints.
type EvalRow struct {
	Key    string          `json:"key" yaml:"key"`
	Value  any             `json:"value" yaml:"value"`
	Detail ldclient.EvalDetail `json:"detail" yaml:"detail"`
}

// PrintEvalRows outputs evaluation results in the specified format.
func PrintEvalRows(rows []EvalRow, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string][]EvalRow{"evaluations": rows})
	case FormatYAML:
		return printYAML(rows)
	case FormatTable:
		return printTable(rows)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintEvalRow outputs a single flag's evaluation result.
func PrintEvalRow(row EvalRow, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(row)
	case FormatYAML:
		return printYAML(row)
	case FormatTable:
		return printTable([]EvalRow{row})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(data any) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

// printTable renders via text/tabwriter -- the teacher's tablewriter
// dependency has no home in this module's go.mod, and no other example
// repo in the pack pulls in a third-party table-rendering library, so this
// stays on the standard library rather than reaching for one.
func printTable(rows []EvalRow) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tVALUE\tVARIATION\tREASON")
	for _, row := range rows {
		variation := "-"
		if row.Detail.VariationIndex != nil {
			variation = fmt.Sprintf("%d", *row.Detail.VariationIndex)
		}
		fmt.Fprintf(w, "%s\t%v\t%s\t%s\n", row.Key, row.Value, variation, row.Detail.Reason.Kind)
	}
	return w.Flush()
}
