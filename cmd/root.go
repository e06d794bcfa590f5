package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jlh-tonga/meds/internal/build"
	"github.com/jlh-tonga/meds/internal/config"
)

// NewRootCmd builds the meds command tree around cfg.
func NewRootCmd(cfg *config.AppConfig) *cobra.Command {
	root := &cobra.Command{
		Use:           "meds",
		Short:         "METAR notifier",
		Long:          "Collects METAR observations, renders them into reports and mails them to the configured recipients.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(NewWebCmd(cfg))
	root.AddCommand(NewSendCmd(cfg))
	root.AddCommand(NewUpdateCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the meds version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.String())
		},
	}
}

// Execute loads configuration and runs the root command.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := NewRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
