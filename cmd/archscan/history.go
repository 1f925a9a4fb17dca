package main

import (
	"fmt"
	"time"

	"archscan/internal/aggregate"
	"archscan/internal/model"

	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyAll   bool
	diffSave     bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved scan snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		project := projectName(cfg)
		if historyAll {
			project = ""
		}
		runs, err := store.ListSnapshots(cmd.Context(), project, historyLimit)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(w, "No snapshots saved yet. Run 'archscan scan --save' first.")
			return nil
		}
		fmt.Fprintf(w, "%-36s %-16s %-20s %10s %9s\n", "ID", "PROJECT", "CREATED", "COMPONENTS", "ENDPOINTS")
		for _, r := range runs {
			fmt.Fprintf(w, "%-36s %-16s %-20s %10d %9d\n",
				r.ID, r.Project, r.CreatedAt.Local().Format(time.DateTime), r.Components, r.Endpoints)
		}
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff [old-id new-id]",
	Short: "Compare the current project with its latest snapshot, or two snapshots",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("diff takes no arguments or two snapshot ids, got %d", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		var before, after *model.Architecture
		if len(args) == 2 {
			old, err := store.GetSnapshot(ctx, args[0])
			if err != nil {
				return err
			}
			cur, err := store.GetSnapshot(ctx, args[1])
			if err != nil {
				return err
			}
			before, after = old.Architecture, cur.Architecture
		} else {
			latest, err := store.LatestSnapshot(ctx, projectName(cfg))
			if err != nil {
				return err
			}
			out, err := runScan(ctx, cfg)
			if err != nil {
				return err
			}
			before, after = latest.Architecture, out.Architecture
			if diffSave {
				id, err := store.SaveSnapshot(ctx, out.Architecture, out.Report)
				if err != nil {
					return fmt.Errorf("failed to save snapshot: %w", err)
				}
				defer fmt.Fprintf(cmd.OutOrStdout(), "Snapshot saved: %s\n", id)
			}
		}

		printDelta(cmd, aggregate.Diff(before, after))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of snapshots to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "Show snapshots of every project")
	diffCmd.Flags().BoolVar(&diffSave, "save", false, "Save the current scan as a new snapshot")
}

func printDelta(cmd *cobra.Command, d aggregate.Delta) {
	w := cmd.OutOrStdout()
	if d.Empty() {
		fmt.Fprintln(w, "No architecture changes.")
		return
	}
	for _, c := range d.Changes {
		sign := "+"
		if c.Kind == aggregate.Removed {
			sign = "-"
		}
		fmt.Fprintf(w, "%s %-14s %s\n", sign, c.Collection, c.Label)
	}
	fmt.Fprintf(w, "\n%d added, %d removed\n", d.Count("", aggregate.Added), d.Count("", aggregate.Removed))
}
