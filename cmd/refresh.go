package cmd

import (
	"fmt"
	"sync"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"folio/internal/clix"
	"folio/internal/models"
	"folio/internal/services"
)

var refreshEnqueue bool

// refreshCmd runs one load cycle in the foreground, or hands it to a worker.
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch, merge and classify projects, then update the cache",
	Long: `Runs one load cycle: reads the cache, lists the GitHub account's repositories,
merges them with the manual catalog and classifies every project that needs it.
With --enqueue the cycle is queued for a worker instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		category, filtered, err := clix.ParseCategory(cmd.Flags(), "category")
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if refreshEnqueue {
			info, err := appInstance.JobClient.EnqueueRefresh(cmd.Context(), "cli")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Refresh queued: task %s on queue %s\n", info.ID, info.Queue)
			return nil
		}

		updates, cancel := appInstance.ProjectService.Subscribe()
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			reportProgress(cmd, updates)
		}()

		err = appInstance.ProjectService.Load(cmd.Context())
		cancel()
		wg.Wait()
		if err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}

		state := appInstance.ProjectService.Snapshot()
		entries := state.Collection
		if filtered {
			entries = services.ByCategory(entries, category)
		}
		renderBanners(out, state)
		renderEntries(out, entries)
		fmt.Fprintf(out, "%d projects\n", len(entries))

		if summary, err := appInstance.CostTracker.Summary(cmd.Context()); err == nil {
			renderCost(out, summary)
		}
		return nil
	},
}

// reportProgress prints phase changes and classification progress until updates closes.
func reportProgress(cmd *cobra.Command, updates <-chan models.State) {
	out := cmd.ErrOrStderr()
	var lastPhase models.Phase
	var lastDone int
	for state := range updates {
		if state.Phase != lastPhase {
			lastPhase = state.Phase
			fmt.Fprintf(out, "%s %s\n", color.CyanString("»"), state.Phase)
		}
		if state.IsClassifying && state.Progress.Done != lastDone {
			lastDone = state.Progress.Done
			fmt.Fprintf(out, "  classified %d/%d\n", state.Progress.Done, state.Progress.Total)
		}
	}
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().String("category", "", "only print projects in this category tab")
	refreshCmd.Flags().BoolVar(&refreshEnqueue, "enqueue", false, "queue the refresh for a worker instead of running it here")
}
