/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/suparena/storeflow"
	"github.com/suparena/storeflow/processor"
	"github.com/suparena/storeflow/result"
)

// NewResetCommand creates the reset subcommand.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop every record in memory and in the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			if !confirm {
				return NewExitError(ExitCommandError, "reset drops every record; pass --yes to confirm")
			}
			return rootOpts.withStack(cmd, func(ctx context.Context, s *storeflow.Stack) error {
				if err := result.Await(ctx, processor.ResetStack(ctx, s.Processor(), result.Success(struct{}{}))).Err(); err != nil {
					return WrapExitError(ExitFailure, "reset failed", err)
				}
				return out.Success("Store reset", map[string]any{"backend": s.Config().Store.Backend})
			})
		},
	}

	cmd.Flags().BoolVarP(&confirm, "yes", "y", false, "confirm the reset")

	return cmd
}
