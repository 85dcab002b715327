// Package notify delivers handoff records to a Discord-style webhook as
// embeds, in paced batches with bounded retry.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"cryptonews/internal/export"
)

// ErrWebhookNotConfigured aborts a notify cycle before anything is sent.
var ErrWebhookNotConfigured = errors.New("webhook URL is not set, please set DISCORD_WEBHOOK_URL")

const (
	maxTitleRunes       = 256
	maxDescriptionRunes = 4096
	maxErrorBody        = 1 << 10
)

// Config tunes delivery.
type Config struct {
	WebhookURL  string
	HandoffPath string
	// BatchSize records are sent before each BatchDelay pause.
	BatchSize  int
	BatchDelay time.Duration
	// MaxRetries is the number of attempts per record, not the number of
	// extra attempts.
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
	// SummaryMinRunes is the description length above which a ready
	// Summarizer condenses it.
	SummaryMinRunes int
}

// DefaultConfig returns the stock pacing: batches of 10 with a 5s pause, 3
// attempts 5s apart.
func DefaultConfig() Config {
	return Config{
		HandoffPath:     "unsent_to_discord.json",
		BatchSize:       10,
		BatchDelay:      5 * time.Second,
		MaxRetries:      3,
		RetryDelay:      5 * time.Second,
		Timeout:         15 * time.Second,
		SummaryMinRunes: 600,
	}
}

// Summarizer condenses long descriptions.
type Summarizer interface {
	Ready() bool
	Summarize(ctx context.Context, title, text string) (string, error)
}

// StatusError is a non-2xx webhook response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Body)
}

// Report summarizes one notify cycle.
type Report struct {
	Sent int
	// Failed lists the links of records that exhausted their attempts.
	Failed []string
}

// Notifier sends records one at a time.
type Notifier struct {
	cfg        Config
	client     *http.Client
	summarizer Summarizer
	logger     *log.Logger

	// Tests replace these.
	sleep func(ctx context.Context, d time.Duration) bool
	color func() int
}

// NewNotifier creates a Notifier. summarizer may be nil. Zero tuning values
// in cfg fall back to DefaultConfig.
func NewNotifier(cfg Config, summarizer Summarizer, logger *log.Logger) *Notifier {
	def := DefaultConfig()
	if cfg.HandoffPath == "" {
		cfg.HandoffPath = def.HandoffPath
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Notifier{
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.Timeout},
		summarizer: summarizer,
		logger:     logger,
		sleep:      sleep,
		color:      func() int { return rand.IntN(0xFFFFFF + 1) },
	}
}

// Notify delivers every record in the handoff file and then clears it.
// Records that fail are reported and dropped. A missing handoff file is
// logged and treated as empty.
func (n *Notifier) Notify(ctx context.Context) (Report, error) {
	if n.cfg.WebhookURL == "" {
		return Report{}, ErrWebhookNotConfigured
	}

	records, err := export.ReadHandoff(n.cfg.HandoffPath)
	if errors.Is(err, fs.ErrNotExist) {
		n.logger.Printf("file not found: %s", n.cfg.HandoffPath)
		return Report{}, nil
	}
	if err != nil {
		return Report{}, err
	}

	report := n.Deliver(ctx, records)
	// An interrupted cycle keeps the file so the rest is sent next time.
	if err := ctx.Err(); err != nil {
		return report, err
	}
	if err := export.ClearHandoff(n.cfg.HandoffPath); err != nil {
		return report, err
	}
	n.logger.Printf("notify done, sent=%d failed=%d", report.Sent, len(report.Failed))
	return report, nil
}

// Deliver sends records in order, pausing after every BatchSize records.
// It stops early only when ctx is cancelled.
func (n *Notifier) Deliver(ctx context.Context, records []export.Record) Report {
	report := Report{Failed: []string{}}
	for i, r := range records {
		if ctx.Err() != nil {
			return report
		}
		if err := n.send(ctx, Payload{Embeds: []Embed{n.Render(ctx, r)}}); err != nil {
			n.logger.Printf("failed to send article: %s: %v", r.Title, err)
			report.Failed = append(report.Failed, r.Link)
		} else {
			n.logger.Printf("sent article %d of %d: %s", i+1, len(records), r.Title)
			report.Sent++
		}

		done := i + 1
		if done%n.cfg.BatchSize == 0 && done < len(records) {
			if !n.sleep(ctx, n.cfg.BatchDelay) {
				return report
			}
		}
	}
	return report
}

// send posts payload, retrying every failure kind under the same policy.
func (n *Notifier) send(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	for attempt := 1; ; attempt++ {
		err = n.post(ctx, body)
		if err == nil {
			return nil
		}
		n.logger.Printf("%s: %v - attempt %d of %d", describe(err), err, attempt, n.cfg.MaxRetries)
		if attempt >= n.cfg.MaxRetries {
			return err
		}
		if !n.sleep(ctx, n.cfg.RetryDelay) {
			return ctx.Err()
		}
	}
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// describe names the failure kind for the attempt log line.
func describe(err error) string {
	var statusErr *StatusError
	var netErr net.Error
	var opErr *net.OpError
	switch {
	case errors.As(err, &statusErr):
		return "HTTP error occurred"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout error occurred"
	case errors.As(err, &opErr):
		return "connection error occurred"
	default:
		return "error sending request"
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// truncate shortens s to at most limit runes, ending in "…" when cut.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
