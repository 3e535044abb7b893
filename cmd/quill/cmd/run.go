package cmd

import (
	"fmt"

	"github.com/quill-lang/quill/internal/interp"
	"github.com/quill-lang/quill/pkg/quill"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run a Quill script",
	Long: `Execute a Quill program from a file or inline expression.

Examples:
  quill run script.ql
  quill run -e "print(1 + 2)"
  quill run --config quill.yaml script.ql`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScript,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "evaluate inline code instead of reading from file")
}

func runScript(_ *cobra.Command, args []string) error {
	input, _, err := readSource(args)
	if err != nil {
		return err
	}

	opts, err := loadOptions()
	if err != nil {
		return err
	}
	ctx := interp.NewContext(opts)

	outcome := quill.Run(input, ctx)
	fmt.Print(ctx.Output.String())

	switch {
	case outcome.Error != nil:
		return fmt.Errorf("%s", outcome.Error.Caret())
	case outcome.Suspended:
		fmt.Println("(suspended)")
	}
	return nil
}
