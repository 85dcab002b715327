package service

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"cryptonews/internal/config"
	"cryptonews/internal/export"
	"cryptonews/internal/notify"
	"cryptonews/internal/pubdate"
	"cryptonews/internal/rss"
	"cryptonews/internal/storage"

	"github.com/google/go-cmp/cmp"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test feed</title>
    <item>
      <title>Newer</title>
      <link>https://n.example/newer</link>
      <description>Second.</description>
      <pubDate>Tue, 02 Jan 2024 10:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Older</title>
      <link>https://n.example/older</link>
      <description>First.</description>
      <pubDate>Mon, 01 Jan 2024 10:00:00 +0000</pubDate>
    </item>
    <item>
      <title>No link</title>
      <description>Skipped.</description>
    </item>
  </channel>
</rss>`

type hook struct {
	mu     sync.Mutex
	titles []string
}

func (h *hook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var p notify.Payload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, e := range p.Embeds {
		h.titles = append(h.titles, e.Title)
	}
	w.WriteHeader(http.StatusNoContent)
}

func newTestService(t *testing.T, webhookURL string) (*Service, storage.Store, config.Config) {
	t.Helper()

	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = io.WriteString(w, feedXML)
	}))
	t.Cleanup(feed.Close)

	dir := t.TempDir()
	cfg := config.Config{
		WebhookURL:  webhookURL,
		HandoffPath: filepath.Join(dir, "unsent.json"),
		DigestPath:  filepath.Join(dir, "news.html"),
		DigestLimit: 100,
		CronSpec:    "*/15 * * * *",
	}
	logger := log.New(io.Discard, "", 0)
	store := storage.NewMemStore()

	registry := rss.NewRegistry()
	src := rss.Source{Name: "Test", URL: feed.URL, DateFormat: pubdate.RFC822Numeric, Enabled: true}
	if err := rss.RegisterSources(registry, []rss.Source{src}, feed.Client()); err != nil {
		t.Fatal(err)
	}

	ncfg := notify.DefaultConfig()
	ncfg.WebhookURL = cfg.WebhookURL
	ncfg.HandoffPath = cfg.HandoffPath
	ncfg.RetryDelay = 0
	ncfg.MaxRetries = 1

	svc := NewService(
		rss.NewIngester(registry, store, logger),
		export.NewExporter(store, export.Options{HandoffPath: cfg.HandoffPath}, logger),
		notify.NewNotifier(ncfg, nil, logger),
		store, logger, cfg,
	)
	return svc, store, cfg
}

func TestRunOnce(t *testing.T) {
	t.Parallel()

	h := &hook{}
	srv := httptest.NewServer(h)
	defer srv.Close()

	svc, store, cfg := newTestService(t, srv.URL)
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(h.titles, []string{"Older", "Newer"}); diff != "" {
		t.Fatalf("notified titles (-got +want):\n%s", diff)
	}
	pending, err := store.FetchUndelivered(context.Background())
	if err != nil || len(pending) != 0 {
		t.Fatalf("undelivered = %v, %v", pending, err)
	}
	left, err := export.ReadHandoff(cfg.HandoffPath)
	if err != nil || len(left) != 0 {
		t.Fatalf("handoff = %v, %v", left, err)
	}
	page, err := os.ReadFile(cfg.DigestPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Index(string(page), "Newer") > strings.Index(string(page), "Older") {
		t.Fatal("digest is not newest first")
	}

	// A second cycle finds nothing new and sends nothing.
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.titles) != 2 {
		t.Fatalf("second cycle resent articles: %v", h.titles)
	}
}

func TestRunOnceWithoutWebhook(t *testing.T) {
	t.Parallel()

	svc, store, cfg := newTestService(t, "")
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	left, err := export.ReadHandoff(cfg.HandoffPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 2 {
		t.Fatalf("handoff has %d records, want 2 kept for the next cycle", len(left))
	}
	if _, ok, _ := store.Get(context.Background(), "https://n.example/older"); !ok {
		t.Fatal("article not stored")
	}
	if _, err := os.Stat(cfg.DigestPath); err != nil {
		t.Fatalf("digest not written: %v", err)
	}
}

func TestHandler(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, "")
	svc.Fetch(context.Background())
	h := svc.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("/healthz = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/articles", nil))
	var got struct {
		Count int `json:"count"`
		Items []struct {
			Title           string  `json:"title"`
			PublicationDate *string `json:"publication_date"`
			Source          string  `json:"source"`
		} `json:"items"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Count != 2 || got.Items[0].Title != "Newer" || got.Items[0].Source != "Test" {
		t.Fatalf("/articles = %+v", got)
	}
	if got.Items[0].PublicationDate == nil || *got.Items[0].PublicationDate != "2024-01-02 10:00:00" {
		t.Fatalf("publication_date = %v", got.Items[0].PublicationDate)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "https://n.example/older") {
		t.Fatalf("/ = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("/missing = %d, want 404", rec.Code)
	}
}

func TestRunRejectsBadCronSpec(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, "")
	svc.cfg.CronSpec = "not a spec"
	if err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}
