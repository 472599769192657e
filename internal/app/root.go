package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gedcom2csv/internal/config"
	"gedcom2csv/internal/logging"
)

// Version is set at build time with -ldflags "-X gedcom2csv/internal/app.Version=...".
var Version = "dev"

const rootShortDescription = `Convert a GEDCOM file into three CSV tables`
const rootLongDescription = `gedcom2csv reads a GEDCOM genealogy file and writes
individuals.csv, families.csv and other.csv into the output directory.

Every file has a header row followed by one row per record. Columns are the
union of the fields of all records in the table; NAME and MARRIAGE/DATE come
first. Existing files are overwritten.

Settings come from flags, GEDCOM2CSV_* environment variables, an optional
.env file and an optional --config file.
`

// rootCommand carries state shared by all subcommands.
type rootCommand struct {
	cmd        *cobra.Command
	configFile string
	cfg        *config.Config
	logger     *zap.Logger
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root := &rootCommand{}
	root.cmd = &cobra.Command{
		Use:           "gedcom2csv <file>",
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Version:       Version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return root.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if root.logger != nil {
				_ = root.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.runConvert(cmd, args[0])
		},
	}

	flags := root.cmd.PersistentFlags()
	flags.StringVar(&root.configFile, "config", "", "config file (yaml, json or toml)")
	flags.StringP("out-dir", "o", ".", "directory receiving the CSV files")
	flags.String("source", "gedcom_file", "input source type, see the sources command")
	flags.String("dialect", "legacy", "CSV dialect: legacy or rfc4180")
	flags.Duration("timeout", config.DefaultTimeout, "timeout of a single conversion")
	flags.String("data-dir", "", "directory of the run history (default ~/.local/share/gedcom2csv)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "console", "log format: console or json")

	root.cmd.AddCommand(
		convertCommand(root),
		watchCommand(root),
		scheduleCommand(root),
		previewCommand(root),
		exportCommand(root),
		historyCommand(root),
		sourcesCommand(root),
		passwordCommand(root),
		mcpCommand(root),
	)
	return root.cmd
}

// setup loads the configuration and installs the logger.
func (r *rootCommand) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Flags(), r.configFile)
	if err != nil {
		return err
	}
	logger, err := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	r.cfg = cfg
	r.logger = logger
	return nil
}

// withApp opens the app for the duration of fn.
func (r *rootCommand) withApp(fn func(a *App) error) error {
	a, err := New(r.cfg)
	if err != nil {
		return err
	}
	defer a.Shutdown()
	return fn(a)
}

// Execute runs the command line and returns the first error.
// SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return NewRootCommand().ExecuteContext(ctx)
}

// Main is the process entry point. It returns the exit status.
func Main() int {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
