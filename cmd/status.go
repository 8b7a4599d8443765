package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgretton/pyhamilton-sub000/ledger"
)

func newStatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize per-tracker occupancy across all ledger tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStore(v)
			if err != nil {
				return err
			}
			defer store.Close()

			empty := true
			for _, table := range []ledger.Table{ledger.TableTips, ledger.TableStacks} {
				trackers, err := store.Trackers(cmd.Context(), table)
				if err != nil {
					return err
				}
				for _, tracker := range trackers {
					rows, err := store.Scan(cmd.Context(), table, tracker)
					if err != nil {
						return err
					}
					empty = false
					printTrackerSummary(cmd, table, tracker, rows)
				}
			}
			if empty {
				fmt.Fprintln(cmd.OutOrStdout(), "ledger is empty")
			}

			return nil
		},
	}
}

func printTrackerSummary(cmd *cobra.Command, table ledger.Table, tracker string, rows []ledger.Row) {
	type rackCount struct {
		available int
		total     int
	}

	available := 0
	perRack := make(map[string]*rackCount)
	var rackOrder []string
	for _, row := range rows {
		counts, seen := perRack[row.Rack]
		if !seen {
			counts = &rackCount{}
			perRack[row.Rack] = counts
			rackOrder = append(rackOrder, row.Rack)
		}
		counts.total++
		if row.Occupied {
			counts.available++
			available++
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s/%s: %d/%d available\n", table, tracker, available, len(rows))
	for _, rack := range rackOrder {
		counts := perRack[rack]
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d/%d\n", rack, counts.available, counts.total)
	}
}
