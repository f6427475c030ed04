package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shinyyama/marketplace-backend/internal/service"
	"github.com/spf13/cobra"
)

var (
	grace  time.Duration
	dryRun bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Remove stored images no product references",
	Long: `Remove stored images that no product row references. Images newer
than --grace are kept because their listing may still be in flight.

Examples:
  catalogctl reconcile --dry-run          # List orphans only
  catalogctl reconcile --grace 1h --json  # Delete orphans older than an hour`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCatalog(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer c.close()

		svc := service.NewReconcileService(c.repo, c.store)
		report, err := svc.Reconcile(cmd.Context(), service.ReconcileOptions{Grace: grace, DryRun: dryRun})
		if err != nil {
			return err
		}
		return printReport(cmd, report)
	},
}

func printReport(cmd *cobra.Command, r service.ReconcileReport) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	verb := "removed"
	if dryRun {
		verb = "would remove"
	}
	for _, ref := range r.Orphans {
		fmt.Fprintf(out, "%s  %s\n", verb, ref)
	}
	fmt.Fprintf(out, "scanned=%d referenced=%d kept=%d removed=%d failed=%d\n",
		r.Scanned, r.Referenced, r.Kept, r.Removed, r.Failed)
	return nil
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
	reconcileCmd.Flags().DurationVar(&grace, "grace", 24*time.Hour, "Keep unreferenced images younger than this")
	reconcileCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report orphans without deleting them")
}
