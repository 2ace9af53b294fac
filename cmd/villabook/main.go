package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"villabook/internal/app"
	"villabook/internal/config"
)

// loadApp is replaced in tests to run commands against an in-memory database.
var loadApp = func() (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(cfg)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "villabook",
		Short:         "Villabook maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		migrateCmd(),
		seedCmd(),
		jobsCmd(),
		crmCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
