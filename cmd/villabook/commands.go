package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"villabook/internal/app"
	"villabook/internal/database"
)

func withApp(run func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, a, args)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, _ []string) error {
			if err := database.Migrate(a.DB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
			return nil
		}),
	}
}

func seedCmd() *cobra.Command {
	var opts seedOptions
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the admin account and optional demo data",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, _ []string) error {
			if err := database.Migrate(a.DB); err != nil {
				return err
			}
			return seed(cmd.Context(), cmd.OutOrStdout(), a, opts)
		}),
	}
	cmd.Flags().StringVar(&opts.AdminEmail, "admin-email", "", "admin account email")
	cmd.Flags().StringVar(&opts.AdminPassword, "admin-password", "", "admin account password (min 8 chars)")
	cmd.Flags().StringVar(&opts.AdminName, "admin-name", "Administrator", "admin display name")
	cmd.Flags().BoolVar(&opts.Demo, "demo", false, "also create a demo owner with an approved property")
	_ = cmd.MarkFlagRequired("admin-email")
	_ = cmd.MarkFlagRequired("admin-password")
	return cmd
}

func jobsCmd() *cobra.Command {
	jobs := &cobra.Command{
		Use:   "jobs",
		Short: "Scheduled maintenance jobs",
	}
	jobs.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the registered jobs",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, _ []string) error {
			for _, name := range a.Jobs.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		}),
	})
	jobs.AddCommand(&cobra.Command{
		Use:   "run <name>",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(cmd *cobra.Command, a *app.App, args []string) error {
			n, err := a.Jobs.RunOnce(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d affected\n", args[0], n)
			return nil
		}),
	})
	return jobs
}

func crmCmd() *cobra.Command {
	var limit int
	crm := &cobra.Command{
		Use:   "crm",
		Short: "CRM contact synchronisation",
	}
	sync := &cobra.Command{
		Use:   "sync",
		Short: "Push users without a CRM contact to the CRM",
		RunE: withApp(func(cmd *cobra.Command, a *app.App, _ []string) error {
			if !a.CRM.Enabled() {
				return fmt.Errorf("CRM is disabled: set CRM_API_URL")
			}
			n, err := a.CRM.SyncPending(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Synced %d users.\n", n)
			return nil
		}),
	}
	sync.Flags().IntVar(&limit, "limit", 500, "maximum users to sync")
	crm.AddCommand(sync)
	return crm
}
