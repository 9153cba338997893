package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newDirectoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "directory",
		Short: "Print the users and projects records refer to",
		Long: `Directory prints the active users and projects as YAML, in the layout
accepted by DIRECTORY_PATH.`,
		Args: cobra.NoArgs,
		RunE: a.withService(func(cmd *cobra.Command, args []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(a.service.Directory()); err != nil {
				return err
			}
			return enc.Close()
		}),
	}
}
