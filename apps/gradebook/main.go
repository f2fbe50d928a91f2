package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/gradebook/apps/shared"
	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/services/gateway"
	logsvc "github.com/trezcool/gradebook/services/logger"
	"github.com/trezcool/gradebook/services/notifier"
)

var readPasswordFunc = term.ReadPassword // mockable

func main() {
	conf := core.NewConfig()
	logger := logsvc.New("GRADEBOOK : ", conf)

	if conf.Gateway.Token == "" && term.IsTerminal(int(syscall.Stdin)) {
		fmt.Fprint(os.Stderr, "API token:")
		token, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			logger.Fatal(fmt.Sprintf("reading token: %v", err), err)
		}
		conf.Gateway.Token = string(token)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validate, translator := shared.NewValidator()
	cli := commandLine{
		conf:       conf,
		gateway:    gatewaysvc.NewFromConfig(conf, logger),
		notifier:   notifysvc.NewConsoleNotifier(os.Stderr, logger),
		logger:     logger,
		validate:   validate,
		translator: translator,
		in:         bufio.NewReader(os.Stdin),
		out:        os.Stdout,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		os.Exit(1)
	}
}
