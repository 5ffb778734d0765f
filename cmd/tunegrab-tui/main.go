package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/handiism/tunegrab/internal/config"
	"github.com/handiism/tunegrab/internal/tui"
)

func main() {
	configFlag := flag.String("config", "", "Path to config file (.json, .toml, .yaml)")
	flag.Parse()

	settings, err := config.LoadWithEnv(*configFlag)
	if err == nil {
		err = settings.Validate()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tui.Run(ctx, settings, strings.Join(flag.Args(), " ")); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
