// Package service runs the fetch, export, notify and digest cycle, once or on
// a cron schedule behind a small HTTP server.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"cryptonews/internal/article"
	"cryptonews/internal/config"
	"cryptonews/internal/digest"
	"cryptonews/internal/export"
	"cryptonews/internal/notify"
	"cryptonews/internal/rss"
	"cryptonews/internal/storage"

	"github.com/robfig/cron/v3"
)

// Service ties the pipeline stages to one store.
type Service struct {
	ingester *rss.Ingester
	exporter *export.Exporter
	notifier *notify.Notifier
	store    storage.Store
	logger   *log.Logger
	cfg      config.Config

	// mu keeps cycles from overlapping, whether started by cron or by hand.
	mu sync.Mutex
}

// NewService creates a Service instance.
func NewService(ingester *rss.Ingester, exporter *export.Exporter, notifier *notify.Notifier, store storage.Store, logger *log.Logger, cfg config.Config) *Service {
	return &Service{
		ingester: ingester,
		exporter: exporter,
		notifier: notifier,
		store:    store,
		logger:   logger,
		cfg:      cfg,
	}
}

// Fetch ingests every registered source.
func (s *Service) Fetch(ctx context.Context) []rss.Report {
	reports := s.ingester.Run(ctx)
	var inserted int
	for _, r := range reports {
		inserted += r.Inserted
	}
	s.logger.Printf("fetched %d sources, %d new articles", len(reports), inserted)
	return reports
}

// Export moves undelivered articles into the handoff file.
func (s *Service) Export(ctx context.Context) (export.Result, error) {
	return s.exporter.Export(ctx)
}

// Notify sends the handoff file to the webhook.
func (s *Service) Notify(ctx context.Context) (notify.Report, error) {
	return s.notifier.Notify(ctx)
}

// Digest rewrites the HTML digest from the most recent articles.
func (s *Service) Digest(ctx context.Context) error {
	items, err := s.store.ListRecent(ctx, s.cfg.DigestLimit)
	if err != nil {
		return fmt.Errorf("list recent: %w", err)
	}
	if err := digest.WriteFile(s.cfg.DigestPath, items); err != nil {
		return err
	}
	s.logger.Printf("digest with %d articles written to %s", len(items), s.cfg.DigestPath)
	return nil
}

// RunOnce runs fetch, export, notify and digest in order. A missing webhook
// skips notification but not the digest; the handoff file keeps its records
// for the next cycle.
func (s *Service) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Println("cycle started")
	start := time.Now()

	s.Fetch(ctx)

	var errs []error
	if _, err := s.Export(ctx); err != nil {
		errs = append(errs, fmt.Errorf("export: %w", err))
	} else if _, err := s.Notify(ctx); errors.Is(err, notify.ErrWebhookNotConfigured) {
		s.logger.Printf("skipping notifications: %v", err)
	} else if err != nil {
		errs = append(errs, fmt.Errorf("notify: %w", err))
	}
	if err := s.Digest(ctx); err != nil {
		errs = append(errs, fmt.Errorf("digest: %w", err))
	}

	s.logger.Printf("cycle finished in %s", time.Since(start).Round(time.Millisecond))
	return errors.Join(errs...)
}

// Run serves HTTP and runs a cycle now and then on cfg.CronSpec until ctx is
// cancelled. A cycle still running when the next one is due is skipped.
func (s *Service) Run(ctx context.Context) error {
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(s.logger))))
	if _, err := sched.AddFunc(s.cfg.CronSpec, func() { s.cycle(ctx) }); err != nil {
		return fmt.Errorf("parse CRON_SPEC %q: %w", s.cfg.CronSpec, err)
	}

	srv := &http.Server{
		Addr:    s.cfg.BindAddr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		s.logger.Printf("HTTP server listening on %s", s.cfg.BindAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("http server error: %v", err)
		}
	}()

	// Kick off an initial cycle.
	s.cycle(ctx)

	sched.Start()
	s.logger.Printf("scheduled cycles on %q", s.cfg.CronSpec)
	<-ctx.Done()
	s.logger.Println("stopping service, context cancelled")
	<-sched.Stop().Done()
	return nil
}

func (s *Service) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Printf("cycle failed: %v", err)
	}
}

// Handler serves /healthz, /articles as JSON and / as the live digest page.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/articles", s.articlesHandler)
	mux.HandleFunc("/", s.digestHandler)
	return mux
}

func (s *Service) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type articleView struct {
	Title           string  `json:"title"`
	Link            string  `json:"link"`
	Description     string  `json:"description"`
	PublicationDate *string `json:"publication_date"`
	ContentURL      string  `json:"content_url"`
	Delivered       bool    `json:"delivered"`
	Source          string  `json:"source,omitempty"`
}

func newArticleView(a article.Article) articleView {
	r := export.NewRecord(a)
	return articleView{
		Title:           r.Title,
		Link:            r.Link,
		Description:     r.Description,
		PublicationDate: r.PublicationDate,
		ContentURL:      r.ContentURL,
		Delivered:       r.Delivered,
		Source:          a.Source,
	}
}

func (s *Service) articlesHandler(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListRecent(r.Context(), s.cfg.DigestLimit)
	if err != nil {
		s.logger.Printf("list recent failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	views := make([]articleView, 0, len(items))
	for _, a := range items {
		views = append(views, newArticleView(a))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(struct {
		Count int           `json:"count"`
		Items []articleView `json:"items"`
	}{
		Count: len(views),
		Items: views,
	}); err != nil {
		s.logger.Printf("write articles response failed: %v", err)
	}
}

func (s *Service) digestHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	items, err := s.store.ListRecent(r.Context(), s.cfg.DigestLimit)
	if err != nil {
		s.logger.Printf("list recent failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := digest.Render(&buf, items); err != nil {
		s.logger.Printf("render digest failed: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
