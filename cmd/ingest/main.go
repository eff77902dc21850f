// Command ingest pulls daily OHLCV bars for the configured symbols, writes a
// Parquet snapshot per run and appends it to the warehouse staging table.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path"
	"syscall"
	_ "time/tzdata"

	"github.com/google/subcommands"

	"PriceLakehouse/internal/config"
)

var configPath = flag.String("config", "", "path to the YAML config (default $CONFIG_PATH or configs/config.yaml)")

func main() {
	config.LoadDotenv()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := commander.Execute(ctx)
	stop()
	os.Exit(int(code))
}
