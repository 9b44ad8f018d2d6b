package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/prowlfs/prowl/internal/app"
	"github.com/prowlfs/prowl/internal/config"
	"github.com/prowlfs/prowl/internal/logging"
)

func main() {
	startPath := flag.String("path", "", "Directory to open (default: last path or home)")
	configPath := flag.String("config", "", "Config file location (default: ~/.config/prowl/config.json)")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	mgr := config.NewManager()
	if err := mgr.Load(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	cfg := mgr.Get()

	logCfg := logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if *debug {
		logCfg.Level = "debug"
	}
	if err := logging.Init(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.Sync()

	if perr := mgr.ParseError(); perr != nil {
		logging.L().Warn("config malformed, running on defaults", zap.Error(perr))
	}

	a, err := app.New(cfg, logging.L())
	if err != nil {
		logging.L().Fatal("startup failed", zap.Error(err))
	}
	if err := a.Start(*startPath); err != nil {
		logging.L().Fatal("could not open start directory", zap.Error(err))
	}
	defer a.Close()

	shell := app.NewShell(a, os.Stdin, os.Stdout)
	if err := shell.Run(); err != nil {
		logging.L().Error("shell terminated", zap.Error(err))
	}
}
