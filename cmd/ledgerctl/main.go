package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ledgerdesk/internal/client/config"

	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var g globalFlags
	global := pflag.NewFlagSet("ledgerctl", pflag.ContinueOnError)
	global.SetInterspersed(false)
	global.StringVar(&g.configPath, "config", config.DefaultPath(), "config file")
	global.StringVar(&g.apiURL, "api-url", "", "backend base URL (overrides config)")
	global.StringVar(&g.credsPath, "credentials", "", "credentials file (overrides config)")
	global.BoolVarP(&g.verbose, "verbose", "v", false, "log requests to stderr")
	if err := global.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var a *app
	lazy := func() (*app, error) {
		if a != nil {
			return a, nil
		}
		var err error
		a, err = newApp(g)
		return a, err
	}

	root := rootCommand(ctx, lazy)
	err := root.Execute(global.Args())
	if a != nil {
		_ = a.logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", explain(err))
		os.Exit(1)
	}
}

// appFunc builds the app on first use so --help works without a config.
type appFunc func() (*app, error)

func rootCommand(ctx context.Context, getApp appFunc) *Command {
	return &Command{
		Name:    "ledgerctl",
		Summary: "LedgerDesk command line client",
		Subcommands: []*Command{
			loginCommand(ctx, getApp),
			registerCommand(ctx, getApp),
			logoutCommand(ctx, getApp),
			whoamiCommand(ctx, getApp),
			waitCommand(ctx, getApp),
			sessionsCommand(ctx, getApp),
			walletCommand(ctx, getApp),
			reportCommand(ctx, getApp),
			passwordCommand(ctx, getApp),
			employeesCommand(ctx, getApp),
		},
	}
}
