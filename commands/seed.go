package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andrewpaige1/stratdesk-api/seed"
)

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the reference catalog into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := seed.LoadFile(file)
			if err != nil {
				return err
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			res, err := seed.Apply(cmd.Context(), db, logger, cat)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d brokers, %d plans, %d new strategies, %d new modules.\n",
				res.Brokers, res.Plans, res.Strategies, res.Modules)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "catalog YAML (default: built-in catalog)")
	return cmd
}
