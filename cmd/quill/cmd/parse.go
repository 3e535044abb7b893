package cmd

import (
	"fmt"

	"github.com/quill-lang/quill/internal/errors"
	"github.com/quill-lang/quill/internal/parser"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a Quill script and print its AST",
	Long: `Parse a Quill program and print the resulting AST, or report every
syntax error found.

Examples:
  quill parse script.ql
  quill parse -e "if x: y = 1"`,
	Args: cobra.MaximumNArgs(1),
	RunE: parseScript,
}

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "parse inline code instead of reading from file")
}

func parseScript(_ *cobra.Command, args []string) error {
	input, _, err := readSource(args)
	if err != nil {
		return err
	}

	mod, errs := parser.ParseModule(input)
	if len(errs) > 0 {
		for _, e := range errs {
			rec := errors.SyntaxErrorRecord(e.Pos, e.Message, input)
			fmt.Println(rec.Caret())
		}
		return fmt.Errorf("found %d syntax error(s)", len(errs))
	}
	for _, stmt := range mod.Body {
		fmt.Println(stmt.String())
	}
	return nil
}
