package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/siteproof/linkaudit/internal/lifecycle"
)

func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Provision the remote reports, verification audit, and webhooks",
		Long: `setup creates the remote resources the pipeline depends on: the
external-links saved report, the URL-verification audit, its broken-pages
report, and the webhook subscriptions pointing back at this service.
Rerunning it is safe; existing resources are reused.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			sum, err := a.Provisioner.Run(cmd.Context())
			if err != nil {
				return err
			}

			printResult(cmd, "primary saved report", sum.PrimaryReport)
			printResult(cmd, "secondary audit", sum.SecondaryAudit)
			printResult(cmd, "broken-pages report", sum.BrokenReport)
			cmd.Println("webhook subscriptions configured")
			return nil
		},
	}
}

func printResult(cmd *cobra.Command, what string, res lifecycle.EnsureResult) {
	state := "existing"
	if res.Created {
		state = "created"
	}
	cmd.Println(fmt.Sprintf("%-22s %s (%s)", what+":", res.ID, state))
}
