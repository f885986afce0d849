/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suparena/storeflow"
)

// NewVersionCommand creates the version subcommand.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := storeflow.GetVersionInfo()
			text := fmt.Sprintf("storeflow %s\n  Git Commit: %s\n  Build Date: %s\n  Go Version: %s",
				info.Version, info.GitCommit, info.BuildDate, info.GoVersion)
			return rootOpts.formatter(cmd).Success(text, info)
		},
	}
}
