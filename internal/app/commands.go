package app

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"gedcom2csv/internal/domain"
	"gedcom2csv/internal/etl"
)

// ── convert ────────────────────────────────────────────────

func convertCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <file>",
		Short: "Convert a GEDCOM file into individuals.csv, families.csv and other.csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.runConvert(cmd, args[0])
		},
	}
}

func (r *rootCommand) runConvert(cmd *cobra.Command, input string) error {
	return r.withApp(func(a *App) error {
		result, err := a.Convert(cmd.Context(), input)
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), r.cfg.OutDir, result)
		return nil
	})
}

func printResult(w io.Writer, outDir string, result *etl.Result) {
	for _, t := range result.Tables {
		fmt.Fprintf(w, "%s\t%d rows\t%d columns\n", filepath.Join(outDir, t.Category.FileName()), t.Rows, len(t.Columns))
	}
}

// ── watch / schedule ───────────────────────────────────────

func watchCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Convert a file now and again whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(func(a *App) error {
				return a.Watch(cmd.Context(), args[0])
			})
		},
	}
}

func scheduleCommand(root *rootCommand) *cobra.Command {
	var expr string
	cmd := &cobra.Command{
		Use:   "schedule --cron <expr> <file>",
		Short: "Convert a file on a cron schedule",
		Long: `Convert a file on a cron schedule until interrupted.

The expression uses the five standard cron fields or a descriptor such as
"@hourly" or "@every 30m".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(func(a *App) error {
				return a.Schedule(cmd.Context(), expr, args[0])
			})
		},
	}
	cmd.Flags().StringVar(&expr, "cron", "", "cron expression")
	_ = cmd.MarkFlagRequired("cron")
	return cmd
}

// ── preview ────────────────────────────────────────────────

func previewCommand(root *rootCommand) *cobra.Command {
	var (
		category string
		rows     int
	)
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Print one table of a file without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ok := etl.ParseCategory(category)
			if !ok {
				return fmt.Errorf("unknown category %q, want individuals, families or other", category)
			}
			return root.withApp(func(a *App) error {
				table, err := a.Preview(cmd.Context(), args[0], c, rows)
				if err != nil {
					return err
				}
				if table.Document != "" {
					fmt.Fprintln(cmd.OutOrStdout(), table.Document)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", string(etl.CategoryIndividuals), "individuals, families or other")
	cmd.Flags().IntVar(&rows, "rows", 10, "maximum data rows, 0 for all")
	return cmd
}

// ── export ─────────────────────────────────────────────────

func exportCommand(root *rootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Convert a file into tables of a database",
		Long: `Convert a file into the individuals, families and other tables of a
sqlite, mysql, postgres or mongodb database.

The password is read from GEDCOM2CSV_SECRET_<DRIVER>_<USER>_<HOST> or, on
macOS, from the keychain entry "<driver>/<user>@<host>" of the
gedcom2csv-export service. For sqlite, --host is the database file and for
mongodb it may be a full mongodb:// URI.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(func(a *App) error {
				result, err := a.Export(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				for _, t := range result.Tables {
					fmt.Fprintf(w, "%s%s\t%d rows\n", root.cfg.Export.Prefix, t.Category, t.Rows)
				}
				return nil
			})
		},
	}

	flags := cmd.Flags()
	targetFlags(flags)
	flags.Int("port", 0, "database port (default: driver default)")
	flags.String("database", "", "database name")
	flags.String("ssl-mode", "", "postgres sslmode")
	flags.String("mode", string(etl.SyncReplace), "replace or append")
	flags.String("table-prefix", "", "prefix of table and collection names")
	_ = cmd.MarkFlagRequired("driver")
	return cmd
}

// targetFlags registers the flags that identify an export target and its
// saved password.
func targetFlags(flags *pflag.FlagSet) {
	flags.String("driver", "", "sqlite, mysql, postgres or mongodb")
	flags.String("host", "", "database host, sqlite file or mongodb URI")
	flags.String("user", "", "database user")
}

// ── password ───────────────────────────────────────────────

func passwordCommand(root *rootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Save or delete export passwords in the macOS keychain",
	}

	set := &cobra.Command{
		Use:   "set --driver <driver> --host <host> --user <user>",
		Short: "Save the password read from the first line of standard input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin())
			if err != nil {
				return err
			}
			return root.withApp(func(a *App) error {
				if err := a.SavePassword(password); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "password saved")
				return nil
			})
		},
	}
	del := &cobra.Command{
		Use:   "delete --driver <driver> --host <host> --user <user>",
		Short: "Delete a saved password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(func(a *App) error {
				return a.DeletePassword()
			})
		},
	}
	for _, c := range []*cobra.Command{set, del} {
		targetFlags(c.Flags())
		_ = c.MarkFlagRequired("driver")
		_ = c.MarkFlagRequired("host")
		_ = c.MarkFlagRequired("user")
	}

	cmd.AddCommand(set, del)
	return cmd
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("no password on standard input")
	}
	return password, nil
}

// ── history / sources ──────────────────────────────────────

func historyCommand(root *rootCommand) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(func(a *App) error {
				runs, err := a.Runs(limit)
				if err != nil {
					return err
				}
				return printRuns(cmd.OutOrStdout(), runs)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

func printRuns(w io.Writer, runs []domain.ConversionRun) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tTRIGGER\tINPUT\tOUTPUT\tINDIVIDUALS\tFAMILIES\tOTHER\tDURATION")
	for _, r := range runs {
		status := string(r.Status)
		if r.Error != "" {
			status += ": " + r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format(time.DateTime),
			status,
			r.Trigger,
			r.Input,
			r.Output,
			r.Individuals,
			r.Families,
			r.Other,
			r.Duration().Round(time.Millisecond),
		)
	}
	return tw.Flush()
}

func sourcesCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List input source types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, s := range etl.ListSources() {
				keys := make([]string, 0, len(s.ConfigFields))
				for _, f := range s.ConfigFields {
					keys = append(keys, f.Key)
				}
				fmt.Fprintf(w, "%-12s %-14s %s\n", s.Type, s.Label, strings.Join(keys, ", "))
			}
			return nil
		},
	}
}

// ── mcp ────────────────────────────────────────────────────

func mcpCommand(root *rootCommand) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve conversions as MCP tools on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.withApp(func(a *App) error {
				return a.ServeMCP(cmd.Context(), Version)
			})
		},
	}
}
