package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sshwatch/internal/api"
	"sshwatch/internal/collector"
	"sshwatch/internal/config"
	"sshwatch/internal/exclude"
	"sshwatch/internal/logging"
	"sshwatch/internal/publish"
	"sshwatch/internal/stats"
	"sshwatch/internal/storage"
	"sshwatch/internal/tail"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to yaml or json config file")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(config.ResolvePath(*configPath))
		if err != nil {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting sshwatch", "version", version, "log_path", cfg.Tail.Path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ips := append([]string(nil), cfg.Exclusions.IPs...)
	if cfg.Exclusions.IncludeLastHosts {
		known := exclude.GatherKnownIPs(ctx)
		logger.Info("harvested known hosts", "count", len(known))
		ips = append(ips, known...)
	}
	filter := exclude.New(ips)
	logger.Info("exclusion set loaded", "size", filter.Size())

	source := tail.New(cfg.Tail.Path)
	if err := source.Open(); err != nil {
		// Not fatal: the collector retries on every tick until the log shows up.
		logger.Warn("log open failed", "path", cfg.Tail.Path, "err", err)
	}
	defer source.Close()

	archive, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("storage init error", "err", err)
		os.Exit(1)
	}
	if archive != nil {
		if err := archive.Init(ctx); err != nil {
			logger.Error("storage migration error", "err", err)
			os.Exit(1)
		}
		defer archive.Close()
		logger.Info("storage enabled", "driver", cfg.Storage.Driver)
	}

	coll := collector.New(cfg, source, filter, stats.NewStore(cfg.Collector.RetentionHours), archive, logger)

	if pub := publish.NewKafka(cfg.Publish.Kafka, logger); pub != nil {
		coll.Subscribe(pub.Publish)
		defer pub.Close()
	}

	api.Start(ctx, cfg, coll, logger, version)

	done := make(chan struct{})
	go func() {
		coll.Run(ctx)
		close(done)
	}()

	<-sigChan
	logger.Info("shutting down")
	cancel()
	<-done
}
