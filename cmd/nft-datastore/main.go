package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/feral-file/nft-datastore/internal/adapter"
	"github.com/feral-file/nft-datastore/internal/cli"
	"github.com/feral-file/nft-datastore/internal/config"
)

func main() {
	config.ChdirRepoRoot()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd(cli.Dependencies{
		OpenStore:  cli.OpenConfiguredStore,
		JSON:       adapter.NewJSON(),
		FileSystem: adapter.NewFileSystem(),
	})
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
