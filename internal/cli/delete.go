/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/suparena/storeflow"
	"github.com/suparena/storeflow/processor"
	"github.com/suparena/storeflow/result"
	"github.com/suparena/storeflow/storagemodels"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	Key string
	All bool
}

// NewDeleteCommand creates the delete subcommand.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{}

	cmd := &cobra.Command{
		Use:   "delete <entity> [values...]",
		Short: "Delete records by primary key and persist the deletion",
		Long: `Delete the records of an entity whose primary key is one of values.
Values that match nothing are ignored.

Examples:
  storeflow delete Note --key id n1 n2
  storeflow delete Note --all`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, rootOpts, opts, args[0], args[1:])
		},
	}

	cmd.Flags().StringVarP(&opts.Key, "key", "k", "id", "primary key field")
	cmd.Flags().BoolVar(&opts.All, "all", false, "delete every record of the entity")

	return cmd
}

func runDelete(cmd *cobra.Command, rootOpts *RootOptions, opts *DeleteOptions, entity string, args []string) error {
	out := rootOpts.formatter(cmd)
	switch {
	case opts.All && len(args) > 0:
		return NewExitError(ExitCommandError, "--all takes no values")
	case !opts.All && len(args) == 0:
		return NewExitError(ExitCommandError, "at least one value or --all is required")
	}

	keys := make([]storagemodels.Key, len(args))
	for i, a := range args {
		keys[i] = storagemodels.Key{Field: opts.Key, Value: parseScalar(a)}
	}

	return rootOpts.withStack(cmd, func(ctx context.Context, s *storeflow.Stack) error {
		p := s.Processor()
		before := s.Count(entity)

		var deleted <-chan result.Result[struct{}]
		if opts.All {
			deleted = processor.DeleteAllInMemory(ctx, p, result.Success(struct{}{}), entity)
		} else {
			deleted = processor.DeleteInMemory(ctx, p, result.Success(keys), entity)
		}
		persisted := result.Then[struct{}, struct{}](ctx, deleted, func(ctx context.Context, _ struct{}) (<-chan result.Result[struct{}], error) {
			return processor.PersistToDB(ctx, p, result.Success(struct{}{})), nil
		})
		if err := result.Await(ctx, persisted).Err(); err != nil {
			return WrapExitError(ExitFailure, "delete failed", err)
		}

		removed := before - s.Count(entity)
		summary := map[string]any{"entity": entity, "deleted": removed, "count": s.Count(entity)}
		return out.Success(fmt.Sprintf("Deleted %d %s record(s)", removed, entity), summary)
	})
}
