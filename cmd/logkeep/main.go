// Command logkeep runs the log persistence engine standalone and offers
// maintenance subcommands over an existing data directory.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/logkeep/logkeep/internal/config"
	"github.com/logkeep/logkeep/internal/engine"
	"github.com/logkeep/logkeep/internal/query"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var dataDir string

	loadOptions := func() (config.Options, error) {
		var opts config.Options
		var err error
		if configPath != "" {
			opts, err = config.LoadFile(configPath)
			if err != nil {
				return opts, err
			}
		} else {
			opts = config.Defaults()
		}
		if dataDir != "" {
			opts.DataDir = dataDir
		}
		return opts, nil
	}

	root := &cobra.Command{
		Use:           "logkeep",
		Short:         "Multi-stream log persistence engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to JSON options document")
	root.PersistentFlags().StringVarP(&dataDir, "data", "d", "", "data directory (overrides config)")

	root.AddCommand(
		newServeCmd(loadOptions),
		newStatusCmd(loadOptions),
		newSearchCmd(loadOptions),
		newCleanCmd(loadOptions),
		newExportCmd(loadOptions),
		newSendCmd(loadOptions),
	)
	return root
}

type optionsFunc func() (config.Options, error)

func newServeCmd(loadOptions optionsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Ingest records from stdin until EOF or SIGINT",
		Long: `Reads one record per line from stdin:

    <RFC3339 timestamp> <LEVEL> <origin> <text...>

where origin is "core", "plugin/<name>" or "-" for unrouted records.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			eng, err := engine.New(opts, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			eng.Start(ctx)
			logger.Info("logkeep started", "data_dir", opts.DataDir)

			lines := make(chan string)
			go func() {
				defer close(lines)
				sc := bufio.NewScanner(os.Stdin)
				sc.Buffer(make([]byte, 64*1024), 1024*1024)
				for sc.Scan() {
					select {
					case lines <- sc.Text():
					case <-ctx.Done():
						return
					}
				}
			}()

		loop:
			for {
				select {
				case <-ctx.Done():
					break loop
				case line, ok := <-lines:
					if !ok {
						break loop
					}
					if line == "" {
						continue
					}
					eng.Ingest(parseIngestLine(line, time.Now))
				}
			}

			logger.Info("shutting down")
			return eng.Close()
		},
	}
}

// parseIngestLine maps one stdin line to a record. Lines that do not match
// the protocol become INFO-level unrouted records verbatim; a log pipeline
// must not drop what it cannot parse.
func parseIngestLine(line string, now func() time.Time) engine.Record {
	fallback := engine.Record{Time: now(), Level: engine.LevelInfo, Text: line}

	fields := strings.SplitN(line, " ", 4)
	if len(fields) < 4 {
		return fallback
	}
	ts, err := time.Parse(time.RFC3339, fields[0])
	if err != nil {
		return fallback
	}
	level, err := engine.ParseLevel(fields[1])
	if err != nil {
		return fallback
	}

	rec := engine.Record{Time: ts, Level: level, Text: fields[3]}
	switch {
	case fields[2] == "core":
		rec.Source = engine.SourceCore
	case strings.HasPrefix(fields[2], "plugin/"):
		rec.Source = engine.SourcePlugin
		rec.Plugin = strings.TrimPrefix(fields[2], "plugin/")
	default:
		rec.Source = engine.SourceUnrouted
	}
	return rec
}

func newStatusCmd(loadOptions optionsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the on-disk corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions()
			if err != nil {
				return err
			}
			svc := query.NewService(opts.DataDir, nil)
			rep, err := svc.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "files:      %d\n", rep.TotalFiles)
			fmt.Fprintf(out, "total size: %.2f MB\n", mb(rep.TotalBytes))
			fmt.Fprintf(out, "compressed: %d\n", rep.Compressed)
			if !rep.Oldest.IsZero() {
				fmt.Fprintf(out, "oldest:     %s\n", rep.Oldest.Format("2006-01-02 15:04"))
				fmt.Fprintf(out, "newest:     %s\n", rep.Newest.Format("2006-01-02 15:04"))
			}
			for _, st := range rep.Streams {
				fmt.Fprintf(out, "  %-30s %3d files  %8.2f MB\n", st.Stream, st.Files, mb(st.SizeBytes))
			}
			return nil
		},
	}
}

func newSearchCmd(loadOptions optionsFunc) *cobra.Command {
	var stream string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <keyword>",
		Short: "Search the corpus for a keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions()
			if err != nil {
				return err
			}
			svc := query.NewService(opts.DataDir, nil)

			out := cmd.OutOrStdout()
			found := 0
			err = svc.Search(args[0], query.SearchOptions{Stream: stream}, func(m query.Match) bool {
				fmt.Fprintf(out, "[%s:%d] %s\n", m.File, m.Line, m.Text)
				found++
				return limit <= 0 || found < limit
			})
			if err != nil {
				return err
			}
			if found == 0 {
				fmt.Fprintf(out, "no matches for %q\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&stream, "stream", "", "restrict to one stream (all, core, error, plugin:<name>)")
	cmd.Flags().IntVar(&limit, "limit", 50, "stop after this many matches (0 = unlimited)")
	return cmd
}

func newCleanCmd(loadOptions optionsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Force an immediate compression and retention sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions()
			if err != nil {
				return err
			}
			eng, err := engine.New(opts, slog.New(slog.NewTextHandler(os.Stderr, nil)))
			if err != nil {
				return err
			}
			defer eng.Close()

			res := eng.Clean()
			fmt.Fprintf(cmd.OutOrStdout(), "compressed %d, deleted %d, freed %.2f MB\n",
				res.Compressed, res.Deleted, mb(res.FreedBytes))
			return nil
		},
	}
}

func newExportCmd(loadOptions optionsFunc) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Bundle the trailing N days of logs into a zip",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions()
			if err != nil {
				return err
			}
			svc := query.NewService(opts.DataDir, nil)
			b, err := svc.Export(days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d files, %.2f MB)\n", b.Path, b.Files, mb(b.SizeBytes))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "export window in days")
	return cmd
}

func newSendCmd(loadOptions optionsFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "send <all|errors|plugin:<name>>",
		Short: "Package a scope of streams for handoff",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions()
			if err != nil {
				return err
			}
			svc := query.NewService(opts.DataDir, nil)

			scope, err := query.ParseScope(args[0])
			if err != nil {
				return err
			}
			if scope.Kind == query.ScopePlugin {
				res, err := svc.ResolvePlugin(scope.Plugin)
				if err != nil {
					return err
				}
				switch res.Outcome {
				case query.ResolveNotFound:
					return fmt.Errorf("no plugin matches %q; known: %s",
						scope.Plugin, strings.Join(res.Candidates, ", "))
				case query.ResolveAmbiguous:
					return fmt.Errorf("%q is ambiguous: %s",
						scope.Plugin, strings.Join(res.Candidates, ", "))
				}
				scope.Plugin = res.Plugin
			}

			b, err := svc.SendBundle(scope)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d files, %.2f MB)\n", b.Path, b.Files, mb(b.SizeBytes))
			return nil
		},
	}
}

func mb(bytes int64) float64 {
	return float64(bytes) / 1024 / 1024
}
