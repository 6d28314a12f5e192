// Command rlmd runs the navigator daemon against a single project root.
//
// Usage:
//
//	rlmd --root <path> [--port 9177] [--idle-timeout 300] [--config rlmd.toml]
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/seanrobertwright/rlm-navigator/internal/config"
	"github.com/seanrobertwright/rlm-navigator/internal/navigator"
	"github.com/seanrobertwright/rlm-navigator/internal/rlmlog"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := flag.String("root", "", "project root directory (required)")
	port := flag.Int("port", 9177, "bind port (probes the next 19 on failure)")
	idleTimeout := flag.Int("idle-timeout", 300, "idle shutdown timeout in seconds (0 disables)")
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	if *root == "" {
		fmt.Fprintln(os.Stderr, "rlmd: --root is required")
		return 1
	}
	absRoot, err := filepath.Abs(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rlmd: resolve root: %v\n", err)
		return 1
	}

	var cfg *config.Config
	if *configPath != "" {
		cfg, err = config.Load(*configPath, absRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rlmd: load config: %v\n", err)
			return 1
		}
	} else {
		cfg = config.DefaultConfig(absRoot)
	}

	if isSet("port") {
		cfg.Service.Port = *port
	}
	if isSet("idle-timeout") {
		cfg.Service.IdleTimeoutSecs = *idleTimeout
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "rlmd: invalid configuration: %v\n", err)
		return 1
	}
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "rlmd: %v\n", err)
		return 1
	}

	log := rlmlog.Setup(cfg)
	defer rlmlog.Stop()

	fmt.Printf("rlmd: navigating %s\n", absRoot)

	nav, err := navigator.New(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to construct navigator")
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info().Msg("shutdown signal received")
		nav.Stop()
	}()

	if err := nav.Run(); err != nil {
		log.Error().Err(err).Msg("navigator exited with error")
		return 1
	}
	return 0
}

func isSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
