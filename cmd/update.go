package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alharthydev/compresspro/internal/logging"
	"github.com/alharthydev/compresspro/internal/updater"
)

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var (
		repository string
		prerelease bool
		checkOnly  bool
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update to the latest release",
		Long:  `Checks GitHub for a newer release and replaces the running binary with it. A backup of the current binary is kept for rollback.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "info", Format: "text"})
			logger := logging.GetLogger("updater")

			svc, err := updater.NewService(&updater.Options{
				Repository: repository,
				Prerelease: prerelease,
			})
			if err != nil {
				logger.Error("Could not create update service", "error", err)
				os.Exit(1)
			}
			if !svc.IsEnabled() {
				logger.Error("Update service disabled", "reason", svc.DisabledReason())
				os.Exit(1)
			}

			ctx := context.Background()
			info, err := svc.CheckForUpdate(ctx)
			if err != nil {
				logger.Error("Update check failed", "error", err)
				os.Exit(1)
			}

			fmt.Printf("Current version: %s\n", info.CurrentVersion)
			fmt.Printf("Latest version:  %s\n", info.LatestVersion)

			if !info.UpdateAvailable {
				fmt.Println("Already up to date.")
				return
			}
			if checkOnly {
				fmt.Printf("Update available: %s\n", info.ReleaseURL)
				return
			}

			if err := svc.ApplyUpdate(ctx); err != nil {
				logger.Error("Update failed", "error", err)
				os.Exit(1)
			}
			fmt.Printf("Updated to %s\n", info.LatestVersion)
		},
	}

	cmd.Flags().StringVar(&repository, "repository", "alharthydev/compresspro", "GitHub repository slug")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Include prereleases")
	cmd.Flags().BoolVar(&checkOnly, "check-only", false, "Only check, do not apply")

	return cmd
}
