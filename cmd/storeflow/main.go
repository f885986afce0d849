/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/suparena/storeflow/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd := cli.NewRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		out := &cli.OutputFormatter{Format: formatOf(cmd.PersistentFlags().Lookup("format").Value.String()), Writer: os.Stdout, ErrWriter: os.Stderr}
		out.Error(err)
		os.Exit(cli.GetExitCode(err))
	}
}

func formatOf(f string) string {
	if f == "json" {
		return f
	}
	return "text"
}
