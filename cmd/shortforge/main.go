// Shortforge - Autonomous Short-Form Video Studio
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shortforge

// Package main is the entry point for the shortforge daemon and its
// admin CLI.
//
// Shortforge autonomously produces short-form videos for a set of managed
// channels. The daemon wakes on a per-channel cadence, drafts a candidate
// through the external script generator, gates it through the decision
// brain, renders and uploads approved candidates, then tracks platform
// metrics at bounded checkpoints so outcomes feed back into the learners.
//
// Usage:
//
//	shortforge run [-config path]      run the daemon in the foreground
//	shortforge status [-addr host]     per-channel state and learning summary
//	shortforge force-tick [-addr host] run one scheduling pass ignoring cadence
//	shortforge pause <channel>         stop producing for a channel
//	shortforge resume <channel>        reactivate a paused or failed channel
//	shortforge stop [-addr host]       graceful daemon shutdown
//
// Configuration is loaded via koanf in three layers (highest wins):
// environment variables (SHORTFORGE_*), a YAML config file, built-in
// defaults. The config file is found via SHORTFORGE_CONFIG or the
// standard search paths.
//
// Exit codes: 0 normal shutdown, 1 configuration error, 2 persistent
// store unreachable.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/shortforge/internal/api"
	"github.com/tomtom215/shortforge/internal/brain"
	"github.com/tomtom215/shortforge/internal/config"
	"github.com/tomtom215/shortforge/internal/daemon"
	"github.com/tomtom215/shortforge/internal/logging"
	"github.com/tomtom215/shortforge/internal/models"
	"github.com/tomtom215/shortforge/internal/monitor"
	"github.com/tomtom215/shortforge/internal/pipeline"
	"github.com/tomtom215/shortforge/internal/store"
	"github.com/tomtom215/shortforge/internal/supervisor"
)

const (
	exitOK          = 0
	exitConfigError = 1
	exitStoreError  = 2
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		os.Exit(exitConfigError)
	}

	switch args[0] {
	case "run":
		os.Exit(runDaemon(args[1:]))
	case "status", "force-tick", "pause", "resume", "stop":
		os.Exit(runClient(args[0], args[1:]))
	case "-h", "--help", "help":
		usage()
		os.Exit(exitOK)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		os.Exit(exitConfigError)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `shortforge - autonomous short-form video studio

Commands:
  run         run the daemon in the foreground
  status      per-channel state and learning summary
  force-tick  run one scheduling pass ignoring cadence
  pause       pause a channel (shortforge pause <channel>)
  resume      resume a channel (shortforge resume <channel>)
  stop        graceful daemon shutdown
`)
}

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file path (default: search standard locations)")
	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitConfigError
	}
	logging.Init(cfg.Logging)
	log := logging.Logger()

	st, err := openStore(cfg.Store)
	if err != nil {
		log.Error().Err(err).Msg("persistent store unreachable")
		return exitStoreError
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := mergeChannels(ctx, cfg, st); err != nil {
		log.Error().Err(err).Msg("merging configured channels failed")
		return exitStoreError
	}

	br := brain.New(cfg, st)
	gen := pipeline.NewHTTPGenerator(cfg.Collaborators, cfg.Timeouts.Generate)
	ren := pipeline.NewHTTPRenderer(cfg.Collaborators, cfg.Timeouts.Render)
	up := pipeline.NewHTTPUploader(cfg.Collaborators, cfg.Timeouts.Upload)
	mc := pipeline.NewHTTPMetricsClient(cfg.Collaborators, cfg.Timeouts.CheckpointFetch)

	d := daemon.New(cfg, st, br, gen, ren, up)
	mon := monitor.New(monitorConfig(cfg), st, mc, br)
	srv := api.NewServer(cfg.Admin, d, br, st, cancel)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddProductionService(d)
	tree.AddProductionService(mon)
	tree.AddAPIService(srv)

	log.Info().
		Str("admin_addr", cfg.Admin.ListenAddr).
		Int("channels", len(cfg.Channels)).
		Msg("shortforge starting")

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("supervisor exited")
		return exitConfigError
	}
	log.Info().Msg("shortforge stopped")
	return exitOK
}

func openStore(cfg config.StoreConfig) (store.Store, error) {
	if cfg.Path == "" {
		logging.Logger().Warn().Msg("no store path configured, using in-memory store")
		return store.NewMemory(), nil
	}
	return store.OpenBadger(cfg.Path)
}

// monitorConfig maps the file-level monitor settings onto the monitor's
// typed config.
func monitorConfig(cfg *config.Config) monitor.Config {
	mc := monitor.DefaultConfig()
	if len(cfg.Monitor.Offsets) > 0 {
		offsets := make([]models.CheckpointOffset, 0, len(cfg.Monitor.Offsets))
		for _, d := range cfg.Monitor.Offsets {
			offsets = append(offsets, models.CheckpointOffset(d))
		}
		mc.Offsets = offsets
	}
	if cfg.Monitor.AbandonAfter > 0 {
		mc.AbandonAfter = cfg.Monitor.AbandonAfter
	}
	if cfg.Monitor.HistoryWindow > 0 {
		mc.HistoryWindow = cfg.Monitor.HistoryWindow
	}
	if cfg.Monitor.PollInterval > 0 {
		mc.PollInterval = cfg.Monitor.PollInterval
	}
	if cfg.Timeouts.CheckpointFetch > 0 {
		mc.FetchTimeout = cfg.Timeouts.CheckpointFetch
	}
	return mc
}

// mergeChannels upserts configured channels into the store. Runtime state
// already in the store (pauses, error counters, upload timestamps) wins
// over the file; the file contributes identity, theme, format, and cadence.
func mergeChannels(ctx context.Context, cfg *config.Config, st store.Store) error {
	for _, cc := range cfg.Channels {
		incoming := cfg.Channel(cc)
		if err := incoming.Validate(); err != nil {
			return err
		}

		existing, err := st.GetChannel(ctx, cc.ID)
		switch {
		case err == nil:
			existing.Theme = incoming.Theme
			existing.Format = incoming.Format
			existing.Cadence = incoming.Cadence
			if err := st.SaveChannel(ctx, existing); err != nil {
				return err
			}
		case errors.Is(err, store.ErrNotFound):
			if err := st.SaveChannel(ctx, &incoming); err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}
