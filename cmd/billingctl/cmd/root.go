// Package cmd provides the billingctl commands.
package cmd

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/billing/internal/config"
	"github.com/JonMunkholm/billing/internal/core"
	"github.com/JonMunkholm/billing/internal/directory"
	"github.com/JonMunkholm/billing/internal/logging"
	"github.com/JonMunkholm/billing/internal/store"
)

// app is the state shared by subcommands. cfg is loaded in
// PersistentPreRunE; service exists only while a withService command runs.
type app struct {
	envFile string
	debug   bool

	cfg     *config.Config
	service *core.Service

	openStore func(context.Context, config.StoreConfig) (store.Repository, error)
}

// NewRootCmd builds the command tree. Tests build a fresh tree per run.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{openStore: store.Open})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "billingctl",
		Short: "Import, export and inspect billing records",
		Long: `billingctl works on the same store as the billing server.

Example:
  billingctl template --out billing_import_template.csv
  billingctl import records.csv
  billingctl export --status pending --out pending.csv`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "env file to load (default .env if present)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newImportCmd(a),
		newExportCmd(a),
		newTemplateCmd(),
		newDirectoryCmd(a),
	)
	return root
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) setup() error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil {
			return err
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.Logging.Level
	if a.debug {
		level = "debug"
	}
	slog.SetDefault(logging.New(os.Stderr, level, cfg.Logging.Format))
	return nil
}

// withService opens the store for the duration of run and closes it when
// run returns, including on error. cobra skips post-run hooks after a
// failed RunE.
func (a *app) withService(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		dir := directory.Default()
		if a.cfg.Directory.Path != "" {
			if dir, err = directory.LoadFile(a.cfg.Directory.Path); err != nil {
				return err
			}
		}

		repo, err := a.openStore(cmd.Context(), a.cfg.Store)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := repo.Close(); cerr != nil && err == nil {
				err = cerr
			}
			a.service = nil
		}()

		a.service = core.NewService(repo, dir, a.cfg.Import)
		return run(cmd, args)
	}
}
