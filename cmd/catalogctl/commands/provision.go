package commands

import (
	"fmt"

	"github.com/shinyyama/marketplace-backend/internal/db"
	"github.com/spf13/cobra"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create catalog tables if they do not exist",
	Long: `Create the catalog tables if they do not exist. Existing tables are
left untouched, so running it repeatedly is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCatalog(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer c.close()

		if err := db.EnsureSchema(cmd.Context(), c.pool); err != nil {
			return err
		}
		for _, t := range db.Tables() {
			fmt.Fprintf(cmd.OutOrStdout(), "ready  %s\n", t)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd)
}
