package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"acspop/internal/platform/config"
	"acspop/internal/population/service"
)

func newIngestCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	ccmd := &cobra.Command{
		Use:   "ingest",
		Short: "Build and publish the relations of every configured level.",
		Long: `Build and publish the relations of every configured level.

Levels run independently: a failing level does not prevent the others
from publishing. The command exits non-zero if any level failed.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runIngest(ctx, cfg, stdout)
		},
	}
	return ccmd
}

func runIngest(ctx context.Context, cfg config.Config, stdout io.Writer) error {
	log := newLogger(cfg)
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Sink == config.SinkMemory {
		log.Warn("publishing to the in-memory sink; relations are discarded on exit")
	}
	ing, err := a.ingester()
	if err != nil {
		return err
	}
	levels, err := a.levels()
	if err != nil {
		return err
	}

	results, runErr := ing.RunAll(ctx, levels)
	printResults(stdout, results)
	return runErr
}

func printResults(w io.Writer, results []*service.LevelResult) {
	for _, res := range results {
		if res == nil {
			continue
		}
		fmt.Fprintf(w, "%s run %s (%s)\n", res.Level, res.RunID, res.Duration.Round(time.Millisecond))
		for _, rel := range res.Relations {
			fmt.Fprintf(w, "  %-28s %8d rows\n", rel.Name, rel.Rows)
		}
	}
}
