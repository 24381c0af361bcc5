package cmd

import (
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var stage string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one pipeline stage directly, without a webhook delivery",
		Long: `run executes a stage handler exactly as a webhook delivery would,
which is useful for reprocessing after a failed delivery or for testing a
deployment. Use stage "primary" after a primary crawl has finished, or
"secondary" after the verification crawl has finished.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Router.Handle(cmd.Context(), stage); err != nil {
				return err
			}
			cmd.Printf("stage %s completed\n", stage)
			return nil
		},
	}

	cmd.Flags().StringVar(&stage, "stage", "", `pipeline stage to run ("primary" or "secondary")`)
	_ = cmd.MarkFlagRequired("stage")

	return cmd
}
