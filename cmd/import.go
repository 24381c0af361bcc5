package cmd

import (
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var (
		reportID string
		table    string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-import a remote saved report into a local table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := a.Importer.Import(cmd.Context(), reportID, table)
			if err != nil {
				return err
			}
			cmd.Printf("imported %d rows from report %s into %s\n", rows, reportID, table)
			return nil
		},
	}

	cmd.Flags().StringVar(&reportID, "report", "", "remote saved report ID")
	cmd.Flags().StringVar(&table, "table", "", "local table name to import into")
	_ = cmd.MarkFlagRequired("report")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}
