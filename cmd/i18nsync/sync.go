package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gpml/i18nsync/internal/reconcile"
	"github.com/gpml/i18nsync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Full sync of every source into the record store",
	Long: `Reconcile every configured source directory with the record store.

For each source this:
  1. Reads every supported file under the source path
  2. Creates records for new or changed entries
  3. Deletes records whose entries disappeared
  4. Prunes records left behind by files removed while nothing was running

Exits with status 1 when any file failed to parse or validate.`,
	Run: func(cmd *cobra.Command, args []string) {
		noPrune, _ := cmd.Flags().GetBool("no-prune")
		cfg := loadConfig()

		database := openStore(cfg)
		defer database.Close()

		recs, err := newReconcilers(cfg, database, nil)
		if err != nil {
			exitf("%v", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		failed := 0
		for _, rec := range recs {
			fmt.Printf("%s Syncing %s from %s...\n", ui.RenderAccent("→"), rec.Namespace(), rec.Root())
			start := time.Now()

			summary, err := rec.FullSync(ctx)
			if err != nil {
				exitf("syncing %s: %v", rec.Namespace(), err)
			}

			pruned := 0
			if !noPrune {
				pruned, err = rec.Prune(ctx, database)
				if err != nil {
					exitf("pruning %s: %v", rec.Namespace(), err)
				}
			}

			printSummary(summary, pruned, time.Since(start))
			failed += len(summary.Failures)
		}

		if failed > 0 {
			fmt.Printf("\n%s %d file(s) failed\n", ui.RenderFail("✗"), failed)
			database.Close()
			closeLog()
			os.Exit(1)
		}
	},
}

func printSummary(summary reconcile.Summary, pruned int, elapsed time.Duration) {
	mark := ui.RenderPass("✓")
	if len(summary.Failures) > 0 {
		mark = ui.RenderWarn("⚠")
	}
	fmt.Printf("%s Sync complete in %v\n", mark, elapsed.Round(time.Millisecond))
	fmt.Printf("   Files: %d (%d ignored)\n", summary.Files, summary.Ignored)
	fmt.Printf("   Created: %d  Deleted: %d  Unchanged: %d\n", summary.Created, summary.Deleted, summary.Unchanged)
	if pruned > 0 {
		fmt.Printf("   Pruned: %d\n", pruned)
	}
	for _, f := range summary.Failures {
		fmt.Printf("   %s %s %s\n", ui.RenderFail(string(f.Kind)), f.Path, ui.RenderMuted(fmt.Sprintf("(%d problem(s))", len(f.Details))))
		for _, d := range f.Details {
			fmt.Printf("      - %s\n", d)
		}
	}
}

func init() {
	syncCmd.Flags().Bool("no-prune", false, "keep records whose files no longer exist")
	rootCmd.AddCommand(syncCmd)
}
