package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/jlh-tonga/meds/internal/build"
)

// releaseSlug is the GitHub repository that publishes meds releases.
const releaseSlug = "jlh-tonga/meds"

// NewUpdateCmd returns the "update" subcommand that self-updates the binary.
func NewUpdateCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update meds to the latest release",
		Long:  "Check GitHub releases for a newer version of meds and update the binary in place.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), yes)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	return cmd
}

func runUpdate(ctx context.Context, in io.Reader, out io.Writer, skipConfirm bool) error {
	if build.IsDev() {
		return fmt.Errorf("cannot update a dev build; install a tagged release first")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	current := strings.TrimPrefix(build.Version, "v")

	fmt.Fprintf(out, "Current version: %s\n", build.Version)
	fmt.Fprint(out, "Checking for updates... ")

	updater, err := selfupdate.NewUpdater(selfupdate.Config{})
	if err != nil {
		return fmt.Errorf("creating updater: %w", err)
	}

	release, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(releaseSlug))
	if err != nil {
		return fmt.Errorf("checking for updates: %w", err)
	}

	if !found || !release.GreaterThan(current) {
		fmt.Fprintln(out, "already up to date.")
		return nil
	}

	fmt.Fprintf(out, "found %s\n", release.Version())

	if !skipConfirm {
		fmt.Fprintf(out, "Update to %s? [y/N] ", release.Version())
		var input string
		fmt.Fscanln(in, &input) //nolint:errcheck,gosec
		if input != "y" && input != "Y" {
			fmt.Fprintln(out, "Update canceled.")
			return nil
		}
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding current executable: %w", err)
	}

	fmt.Fprintf(out, "Updating to %s...\n", release.Version())
	if err := updater.UpdateTo(ctx, release, exe); err != nil {
		return fmt.Errorf("updating: %w", err)
	}

	fmt.Fprintf(out, "Updated to %s. Restart meds to use the new version.\n", release.Version())
	return nil
}
