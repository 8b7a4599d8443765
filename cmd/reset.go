package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newResetCmd(v *viper.Viper) *cobra.Command {
	var tableName string

	cmd := &cobra.Command{
		Use:   "reset TRACKER",
		Short: "Mark every slot of a tracker available",
		Args:  cobra.ExactArgs(1),
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
			rows, err := store.Scan(cmd.Context(), table, tracker)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("tracker %q has no rows in table %s", tracker, table)
			}

			for i := range rows {
				rows[i].Occupied = true
			}
			if err := store.PutAll(cmd.Context(), table, rows); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "reset %s/%s: %d slots available\n", table, tracker, len(rows))

			return nil
		},
	}

	cmd.Flags().StringVar(&tableName, "table", "tips", "ledger table (tips or stacks)")

	return cmd
}
