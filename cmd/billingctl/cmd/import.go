package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/billing/internal/core"
)

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import billing records from a CSV file",
		Long: `Import reads a CSV file with the columns of the import template and
creates one record per valid row. Rows that fail are listed with their row
number; the others are still imported.`,
		Args: cobra.ExactArgs(1),
		RunE: a.withService(func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := a.service.Import(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return core.NewUserError(err)
			}

			out := cmd.OutOrStdout()
			for _, s := range report.Successes {
				fmt.Fprintln(out, s)
			}
			for _, e := range report.Errors {
				fmt.Fprintln(out, e)
			}
			fmt.Fprintf(out, "\n%d imported, %d failed\n", len(report.Successes), len(report.Errors))
			return nil
		}),
	}
}
