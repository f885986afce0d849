/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/suparena/storeflow"
	"github.com/suparena/storeflow/predicate"
	"github.com/suparena/storeflow/request"
	"github.com/suparena/storeflow/result"
	"github.com/suparena/storeflow/storagemodels"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	Where string
	Sort  []string
	Limit int
}

// NewFetchCommand creates the fetch subcommand.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch <entity>",
		Short: "Fetch saved records of an entity",
		Long: `Fetch the records of an entity saved in the store.

Examples:
  storeflow fetch Note
  storeflow fetch Note --where 'score > 10' --sort -score --limit 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd, rootOpts, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Where, "where", "w", "", "filter expression over the record fields")
	cmd.Flags().StringSliceVarP(&opts.Sort, "sort", "s", nil, "sort fields, prefix with - for descending")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum number of records (0 means all)")

	return cmd
}

func runFetch(cmd *cobra.Command, rootOpts *RootOptions, opts *FetchOptions, entity string) error {
	out := rootOpts.formatter(cmd)
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "limit must not be negative")
	}

	var where predicate.Predicate = predicate.MatchAll()
	if opts.Where != "" {
		expr, err := predicate.CompileExpr(opts.Where)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --where", err)
		}
		where = expr
	}
	sorts, err := parseSorts(opts.Sort)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --sort", err)
	}

	req := request.NewBuilder().
		WithOperation(request.OpFetch).
		WithEntityName(entity).
		WithPredicate(where).
		WithSortDescriptors(sorts...).
		WithFetchLimit(opts.Limit).
		WithDescription("cli fetch " + entity).
		Build()

	return rootOpts.withStack(cmd, func(ctx context.Context, s *storeflow.Stack) error {
		records, err := result.Await(ctx, s.Processor().ExecuteRecords(ctx, req)).Get()
		if err != nil {
			return WrapExitError(ExitFailure, "fetch failed", err)
		}

		views := make([]recordView, len(records))
		lines := make([]string, len(records))
		for i, r := range records {
			views[i] = viewOf(r)
			lines[i] = formatRecord(r)
		}
		text := strings.Join(append(lines, fmt.Sprintf("%d record(s)", len(records))), "\n")
		return out.Success(text, views)
	})
}

func parseSorts(raws []string) ([]storagemodels.SortDescriptor, error) {
	sorts := make([]storagemodels.SortDescriptor, 0, len(raws))
	for _, raw := range raws {
		field, desc := strings.CutPrefix(strings.TrimSpace(raw), "-")
		field = strings.TrimPrefix(field, "+")
		if field == "" {
			return nil, fmt.Errorf("empty sort field in %q", raw)
		}
		if desc {
			sorts = append(sorts, storagemodels.Desc(field))
		} else {
			sorts = append(sorts, storagemodels.Asc(field))
		}
	}
	return sorts, nil
}
