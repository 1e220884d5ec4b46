package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/finfluencer-cli/internal/batch"
	"github.com/sells-group/finfluencer-cli/internal/export"
	"github.com/sells-group/finfluencer-cli/internal/metadata"
	"github.com/sells-group/finfluencer-cli/internal/parser"
	"github.com/sells-group/finfluencer-cli/internal/table"
)

const (
	schemaStocks = "stocks"
	schemaSurvey = "survey"
)

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse LLM answers into stock or survey rows",
	Long: `Reads the query_response column of --in and extracts labeled fields.
--schema stocks writes one row per stock mention; --schema survey writes one row
per input row with "<question> - <field>" columns.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("parse"); err != nil {
			return err
		}
		in, _ := cmd.Flags().GetString("in")
		out, _ := cmd.Flags().GetString("out")
		schema, _ := cmd.Flags().GetString("schema")
		xlsxPath, _ := cmd.Flags().GetString("xlsx")
		questionsPath, _ := cmd.Flags().GetString("questions")
		idCol, _ := cmd.Flags().GetString("id-col")
		textCol, _ := cmd.Flags().GetString("text-col")

		if in == "" {
			return eris.New("parse: --in is required")
		}
		if out == "" {
			out = strings.TrimSuffix(in, filepath.Ext(in)) + "_" + schema + ".csv"
		}

		rows, err := table.ReadFile(in)
		if err != nil {
			return eris.Wrap(err, "parse: load responses")
		}
		if !rows.HasColumn(textCol) {
			return eris.Errorf("parse: %s has no %s column", in, textCol)
		}

		var questions []string
		if questionsPath != "" {
			if questions, err = metadata.LoadLines(questionsPath); err != nil {
				return err
			}
		}

		n, err := parseResponses(rows, schema, idCol, textCol, questions, out, xlsxPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %d %s rows to %s\n", n, schema, out)
		return nil
	},
}

// parseResponses writes the parsed rows to out (CSV) and, when xlsxPath is
// set, to a workbook. It returns the number of rows written.
func parseResponses(rows *table.Table, schema, idCol, textCol string, questions []string, out, xlsxPath string) (int, error) {
	switch schema {
	case schemaStocks:
		mentions := parser.ParseStockTable(rows, idCol, textCol)
		if err := export.WriteCSV(out, mentions); err != nil {
			return 0, err
		}
		if xlsxPath != "" {
			if err := export.WriteRowsXLSX(xlsxPath, schemaStocks, mentions); err != nil {
				return 0, err
			}
		}
		return len(mentions), nil

	case schemaSurvey:
		survey := parser.ParseSurveyTable(rows, idCol, textCol, questions)
		if err := survey.WriteFile(out); err != nil {
			return 0, err
		}
		if xlsxPath != "" {
			if err := export.WriteXLSX(xlsxPath, schemaSurvey, survey); err != nil {
				return 0, err
			}
		}
		return survey.Len(), nil
	}
	return 0, eris.Errorf("parse: unknown schema %q (want stocks or survey)", schema)
}

func init() {
	parseCmd.Flags().String("in", "", "CSV with a response column (output of query)")
	parseCmd.Flags().String("out", "", "output CSV (default <in>_<schema>.csv)")
	parseCmd.Flags().String("schema", schemaStocks, "response schema: stocks or survey")
	parseCmd.Flags().String("xlsx", "", "also write an XLSX workbook to this path")
	parseCmd.Flags().String("questions", "", "survey questions file, one per line (fixes column order)")
	parseCmd.Flags().String("id-col", batch.ColCustomID, "column identifying each response")
	parseCmd.Flags().String("text-col", batch.ColResponse, "column holding the response text")
	rootCmd.AddCommand(parseCmd)
}
