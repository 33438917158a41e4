package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"bookbrief/internal/book"
	"bookbrief/internal/checkpoint"
	"bookbrief/internal/config"
	"bookbrief/internal/fleet"
	"bookbrief/internal/gencache"
	"bookbrief/internal/generate"
	"bookbrief/internal/render"
	"bookbrief/internal/source"
	"bookbrief/internal/summarizer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "summarize the input directory once and exit")
	stdout := flag.Bool("stdout", false, "also print summaries to stdout")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Build backend client
	client := generate.NewClient(
		cfg.Backend.URL,
		cfg.Backend.Model,
		time.Duration(cfg.Backend.TimeoutSeconds)*time.Second,
		logger,
	)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		pingCancel()
		logger.Fatal("backend unreachable", zap.String("url", cfg.Backend.URL), zap.Error(err))
	}
	pingCancel()

	var gen generate.Generator = client
	var cache *gencache.Cache
	if cfg.Backend.CachePath != "" {
		cache, err = gencache.Open(cfg.Backend.CachePath, cfg.Backend.Model, client, logger)
		if err != nil {
			logger.Fatal("failed to open completion cache", zap.Error(err))
		}
		defer cache.Close()
		gen = cache
	}

	opts := generate.Options{
		Temperature:     cfg.Backend.Temperature,
		ContextWindow:   cfg.Backend.ContextWindow,
		MaxOutputTokens: cfg.Backend.MaxOutputTokens,
	}
	reducer := summarizer.NewReducer(
		gen,
		cfg.Language,
		cfg.Chunking.MaxChars,
		cfg.Chunking.OverlapChars,
		cfg.Sampling.Ratio,
		opts,
		logger,
	)

	// Build renderers
	renderers := []render.Renderer{render.NewMarkdownRenderer(cfg.OutputDir, logger)}
	if *stdout {
		renderers = append(renderers, render.NewStdoutRenderer())
	}

	store := checkpoint.NewStore(cfg.CheckpointDir, logger)
	orchestrator := book.NewOrchestrator(reducer, store, renderers, cfg.Backend.Model, logger)
	scheduler := fleet.NewScheduler(orchestrator, cfg.MaxParallel, logger)
	loader := source.NewMarkdownLoader(cfg.MinWords, logger)

	run := func(ctx context.Context) {
		paths, err := source.ScanDir(cfg.InputDir, []string{".md", ".txt"})
		if err != nil {
			logger.Error("failed to scan input directory", zap.Error(err))
			return
		}
		if len(paths) == 0 {
			logger.Info("no documents found", zap.String("dir", cfg.InputDir))
			return
		}

		var docs []*source.Document
		for _, path := range paths {
			doc, err := loader.Load(ctx, path)
			if err != nil {
				logger.Error("failed to load document", zap.String("path", path), zap.Error(err))
				continue
			}
			docs = append(docs, doc)
		}

		stats := scheduler.Run(ctx, docs)
		if stats.Failed > 0 {
			logger.Warn("run finished with failures",
				zap.Int("failed", stats.Failed),
				zap.Int("succeeded", stats.Succeeded))
		}
	}

	// Single-run mode: summarize everything once and exit
	if *once {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		run(ctx)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RunOnStart {
		run(ctx)
	}

	// A run can outlast the schedule interval; overlapping runs would
	// put two orchestrators on the same document's checkpoint.
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.PrintfLogger(zap.NewStdLog(logger))),
	))
	_, err = c.AddFunc(cfg.Schedule, func() {
		logger.Info("cron triggered")
		run(ctx)
	})
	if err != nil {
		logger.Fatal("failed to set up cron schedule",
			zap.String("schedule", cfg.Schedule), zap.Error(err))
	}
	c.Start()
	logger.Info("watching input directory",
		zap.String("dir", cfg.InputDir),
		zap.String("schedule", cfg.Schedule))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	cancel()
	cronCtx := c.Stop()
	<-cronCtx.Done()
}
