package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cryptonews/internal/analysis"
	"cryptonews/internal/config"
	"cryptonews/internal/digest"
	"cryptonews/internal/export"
	"cryptonews/internal/notify"
	"cryptonews/internal/rss"
	"cryptonews/internal/service"
	"cryptonews/internal/storage"
)

const usage = `usage: cryptonews <command>

commands:
  fetch     ingest every enabled source into the store
  export    write undelivered articles to the handoff file and flag them
  notify    send the handoff file to the webhook
  digest    render the HTML digest of recent articles
  pending   list undelivered articles
  run       fetch, export, notify and digest once
  serve     serve HTTP and run on CRON_SPEC
`

func main() {
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logger := log.New(os.Stdout, "[cryptonews] ", log.LstdFlags)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, flag.Arg(0), cfg, logger); err != nil {
		logger.Fatalf("%s failed: %v", flag.Arg(0), err)
	}
}

func run(ctx context.Context, cmd string, cfg config.Config, logger *log.Logger) error {
	switch cmd {
	case "fetch", "export", "notify", "digest", "pending", "run", "serve":
	default:
		flag.Usage()
		os.Exit(2)
	}

	// notify only reads the handoff file and must fail fast without a
	// webhook, before the store is opened.
	if cmd == "notify" {
		_, err := newNotifier(cfg, logger).Notify(ctx)
		return err
	}

	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.DBDriver, err)
	}
	defer store.Close()

	if cmd == "pending" {
		items, err := store.FetchUndelivered(ctx)
		if err != nil {
			return err
		}
		return digest.Table(os.Stdout, items)
	}

	svc, err := newService(cfg, store, logger)
	if err != nil {
		return err
	}

	switch cmd {
	case "fetch":
		svc.Fetch(ctx)
		return nil
	case "export":
		_, err := svc.Export(ctx)
		return err
	case "digest":
		return svc.Digest(ctx)
	case "run":
		return svc.RunOnce(ctx)
	default:
		return svc.Run(ctx)
	}
}

func newService(cfg config.Config, store storage.Store, logger *log.Logger) (*service.Service, error) {
	specs, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}
	sources, err := rss.MergeSources(rss.DefaultSources(), specs)
	if err != nil {
		return nil, err
	}
	registry := rss.NewRegistry()
	if err := rss.RegisterSources(registry, sources, &http.Client{Timeout: cfg.FetchTimeout}); err != nil {
		return nil, err
	}

	mode, err := export.ParseMarkMode(cfg.MarkMode)
	if err != nil {
		return nil, err
	}
	if mode == export.MarkAll {
		logger.Println("warning: EXPORT_MARK_MODE=all flags articles inserted during an export without exporting them")
	}

	return service.NewService(
		rss.NewIngester(registry, store, logger),
		export.NewExporter(store, export.Options{HandoffPath: cfg.HandoffPath, MarkMode: mode}, logger),
		newNotifier(cfg, logger),
		store,
		logger,
		cfg,
	), nil
}

func newNotifier(cfg config.Config, logger *log.Logger) *notify.Notifier {
	var summarizer notify.Summarizer
	if cfg.OpenAIKey != "" {
		summarizer = analysis.NewClient(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIBase, logger)
	}
	return notify.NewNotifier(notify.Config{
		WebhookURL:      cfg.WebhookURL,
		HandoffPath:     cfg.HandoffPath,
		BatchSize:       cfg.BatchSize,
		BatchDelay:      cfg.BatchDelay,
		MaxRetries:      cfg.MaxRetries,
		RetryDelay:      cfg.RetryDelay,
		Timeout:         cfg.NotifyTimeout,
		SummaryMinRunes: cfg.SummaryMinRunes,
	}, summarizer, logger)
}
