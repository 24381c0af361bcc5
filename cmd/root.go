// Package cmd defines the linkaudit command tree.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/siteproof/linkaudit/internal/app"
	"github.com/siteproof/linkaudit/internal/config"
)

var cfgFile string

type appKeyType struct{}

// newAppFn builds the service container. It is a variable so tests can swap
// in a factory that avoids real backends.
var newAppFn = func(ctx context.Context, cfg config.Config) (*app.App, error) {
	return app.New(ctx, cfg)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "linkaudit",
		Short: "Webhook-driven broken-link audit orchestration",
		Long: `linkaudit drives a two-stage crawl workflow against a hosted crawl
platform: a primary crawl collects every external link on the site, a
secondary crawl verifies those links, and the final report maps each broken
link back to the pages that carry it.`,

		// Build the service container after flags are parsed but before any
		// subcommand runs, and hand it down through the context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			a, err := newAppFn(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("initialize services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKeyType{}, a))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a, ok := cmd.Context().Value(appKeyType{}).(*app.App); ok && a != nil {
				a.Close(cmd.Context())
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: environment only)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newImportCmd())

	return cmd
}

func appFromContext(ctx context.Context) (*app.App, error) {
	a, ok := ctx.Value(appKeyType{}).(*app.App)
	if !ok || a == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return a, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
