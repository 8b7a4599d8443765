package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dgretton/pyhamilton-sub000/ledger"
)

func newRestoreCmd(v *viper.Viper) *cobra.Command {
	var tableName string

	cmd := &cobra.Command{
		Use:   "restore TRACKER SLOT...",
		Short: "Mark individual slots available after manual intervention",
		Long:  "Marks the given slot indexes of a tracker available again, for example after tips were refilled by hand. Every slot must exist and currently be unavailable; one bad slot fails the whole batch.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := parseTable(tableName)
			if err != nil {
				return err
			}

			store, err := openStore(v)
			if err != nil {
				return err
			}
			defer store.Close()

			tracker := args[0]
			rows := make([]ledger.Row, 0, len(args)-1)
			seen := make(map[int]bool)
			for _, arg := range args[1:] {
				index, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("slot index %q is not a number", arg)
				}
				if seen[index] {
					return fmt.Errorf("slot %d listed twice", index)
				}
				seen[index] = true

				row, found, err := store.Get(cmd.Context(), table, tracker, index)
				if err != nil {
					return err
				}
				if !found {
					return fmt.Errorf("tracker %q has no slot %d in table %s", tracker, index, table)
				}
				if row.Occupied {
					return fmt.Errorf("slot %d of tracker %q is already available", index, tracker)
				}

				row.Occupied = true
				rows = append(rows, row)
			}

			if err := store.PutAll(cmd.Context(), table, rows); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "restored %d slots of %s/%s\n", len(rows), table, tracker)

			return nil
		},
	}

	cmd.Flags().StringVar(&tableName, "table", "tips", "ledger table (tips or stacks)")

	return cmd
}
