package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/myrjola/aivisibility/cmd/cli/local"
	"github.com/myrjola/aivisibility/cmd/cli/remote"
	"github.com/myrjola/aivisibility/internal/errors"
	"github.com/spf13/cobra"
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.PersistentFlags().Bool("verbose", false, "log debug messages")
	rootCmd.AddGroup(remote.Group, local.Group)
	rootCmd.AddCommand(remote.Queries, remote.Analyze, remote.Report)
	rootCmd.AddCommand(local.DevBackend, local.Contacts)
}

var rootCmd = &cobra.Command{
	Use:          "aivisibility-cli",
	Long:         `Command line utilities for measuring how AI assistants see a brand`,
	SilenceUsage: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func main() {
	Execute()
}
