package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/billing/internal/billing"
	"github.com/JonMunkholm/billing/internal/core"
	"github.com/JonMunkholm/billing/internal/csvio"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		out    string
		status string
		opts   core.ListOptions
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export billing records as CSV",
		Long: `Export writes the matching records, newest first, in the same CSV
layout as the server download. Without --out the CSV goes to stdout.`,
		Args: cobra.NoArgs,
		RunE: a.withService(func(cmd *cobra.Command, args []string) error {
			if status != "" {
				st, ok := billing.ParseStatus(status)
				if !ok {
					return fmt.Errorf("invalid status %q (use pending, paid or overdue)", status)
				}
				opts.Filter.Status = st
			}

			if out == "" {
				if _, err := a.service.Export(cmd.Context(), opts, cmd.OutOrStdout()); err != nil {
					return core.NewUserError(err)
				}
				return nil
			}

			objs, err := a.service.ExportObjects(cmd.Context(), opts)
			if err != nil {
				return core.NewUserError(err)
			}
			if err := csvio.WriteFile(out, objs); err != nil {
				return err
			}
			slog.Info("export written", "path", out, "records", len(objs))
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", len(objs), out)
			return nil
		}),
	}

	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "", "output file (default stdout)")
	f.StringVar(&status, "status", "", "only records with this status")
	f.StringVar(&opts.Search, "search", "", "match employee, project or client name")
	f.StringVar(&opts.Filter.UserID, "user", "", "only records of this user id")
	f.StringVar(&opts.Filter.ProjectID, "project", "", "only records of this project id")
	f.StringVar(&opts.Filter.StartDate, "from", "", "first date, YYYY-MM-DD")
	f.StringVar(&opts.Filter.EndDate, "to", "", "last date, YYYY-MM-DD")
	return cmd
}
