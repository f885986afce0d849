/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/suparena/storeflow"
	"github.com/suparena/storeflow/processor"
	"github.com/suparena/storeflow/result"
	"github.com/suparena/storeflow/storagemodels"
)

// UpsertOptions holds flags for the upsert command.
type UpsertOptions struct {
	Key  string
	Data string
	File string
}

// NewUpsertCommand creates the upsert subcommand.
func NewUpsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpsertOptions{}

	cmd := &cobra.Command{
		Use:   "upsert <entity>",
		Short: "Insert or replace records by primary key and persist them",
		Long: `Upsert a JSON array of objects as records of an entity.

A saved record with the same primary key value is replaced; when the
input repeats a key, the last object wins.

Examples:
  storeflow upsert Note --key id --data '[{"id":"n1","score":3}]'
  storeflow upsert Note --key id --file notes.json
  cat notes.json | storeflow upsert Note --key id --file -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpsert(cmd, rootOpts, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Key, "key", "k", "id", "primary key field")
	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "JSON array of objects")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "file with a JSON array of objects (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("data", "file")

	return cmd
}

func runUpsert(cmd *cobra.Command, rootOpts *RootOptions, opts *UpsertOptions, entity string) error {
	out := rootOpts.formatter(cmd)
	if opts.Key == "" {
		return NewExitError(ExitCommandError, "--key must not be empty")
	}

	data, err := readInput(cmd, opts)
	if err != nil {
		return err
	}
	objects, err := decodeObjects(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid input", err)
	}
	values := make([]storagemodels.Value, len(objects))
	for i, o := range objects {
		if _, ok := o[opts.Key]; !ok {
			return NewExitError(ExitCommandError, fmt.Sprintf("object %d has no %q field", i, opts.Key))
		}
		values[i] = storagemodels.NewValue(entity, opts.Key, o)
	}

	return rootOpts.withStack(cmd, func(ctx context.Context, s *storeflow.Stack) error {
		p := s.Processor()
		upserted := processor.UpsertInMemory(ctx, p, result.Success(values))
		persisted := result.Then[struct{}, struct{}](ctx, upserted, func(ctx context.Context, _ struct{}) (<-chan result.Result[struct{}], error) {
			return processor.PersistToDB(ctx, p, result.Success(struct{}{})), nil
		})
		if err := result.Await(ctx, persisted).Err(); err != nil {
			return WrapExitError(ExitFailure, "upsert failed", err)
		}

		summary := map[string]any{"entity": entity, "upserted": len(values), "count": s.Count(entity)}
		return out.Success(fmt.Sprintf("Upserted %d %s record(s); %d saved", len(values), entity, s.Count(entity)), summary)
	})
}

func readInput(cmd *cobra.Command, opts *UpsertOptions) ([]byte, error) {
	switch {
	case opts.Data != "":
		return []byte(opts.Data), nil
	case opts.File == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read stdin", err)
		}
		return data, nil
	case opts.File != "":
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read input file", err)
		}
		return data, nil
	default:
		return nil, NewExitError(ExitCommandError, "one of --data or --file is required")
	}
}
