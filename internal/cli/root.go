/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/suparena/storeflow"
	"github.com/suparena/storeflow/config"
	"github.com/suparena/storeflow/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	EnvFile    string
	Format     string // "json" | "text"
	Verbose    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the storeflow CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "storeflow",
		Short: "storeflow - persistence requests against an embedded store",
		Long: `Run persistence requests against a storeflow stack.

The stack is configured from --config and STOREFLOW_* environment
variables; --env-file loads variables from a dotenv file first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.EnvFile != "" {
				if err := godotenv.Load(opts.EnvFile); err != nil {
					return WrapExitError(ExitCommandError, "failed to load env file", err)
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "dotenv file loaded before the config")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(NewVersionCommand(opts))
	cmd.AddCommand(NewFetchCommand(opts))
	cmd.AddCommand(NewUpsertCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))

	return cmd
}

// formatter returns the output formatter of cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openStack loads the configuration and opens a stack. The caller closes it.
func (o *RootOptions) openStack(ctx context.Context, cmd *cobra.Command) (*storeflow.Stack, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	level := cfg.Logging.Level
	if o.Verbose {
		level = "debug"
	}
	l := logger.NewWithWriter(level, cfg.Logging.Format, cmd.ErrOrStderr())
	logger.For(l, logger.ComponentCLI).Debugw("config loaded", "path", o.ConfigPath, "backend", cfg.Store.Backend)

	stack, err := storeflow.Open(ctx, cfg, storeflow.WithLogger(l))
	if err != nil {
		_ = l.Sync()
		return nil, WrapExitError(ExitCommandError, "failed to open stack", err)
	}
	return stack, nil
}

// withStack opens a stack, runs fn and closes the stack.
func (o *RootOptions) withStack(cmd *cobra.Command, fn func(ctx context.Context, s *storeflow.Stack) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := o.openStack(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			logger.For(s.Logger(), logger.ComponentCLI).Warnw("close stack", zap.Error(cerr))
		}
		_ = s.Logger().Sync()
	}()
	return fn(ctx, s)
}
