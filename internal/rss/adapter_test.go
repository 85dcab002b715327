package rss

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"cryptonews/internal/article"
	"cryptonews/internal/pubdate"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/gofeed"
)

const testFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
<channel>
  <title>Test Feed</title>
  <link>https://news.example</link>
  <image><url>https://news.example/logo.png</url><title>Test Feed</title><link>https://news.example</link></image>
  <item>
    <title>Media content</title>
    <link>https://news.example/a</link>
    <description><![CDATA[<p>Bitcoin <b>jumps</b>. Traders cheer.</p>]]></description>
    <pubDate>Tue, 10 Jun 2003 04:00:00 -0500</pubDate>
    <media:content url="https://img.example/content.jpg" medium="image"/>
    <media:thumbnail url="https://img.example/thumb.jpg"/>
  </item>
  <item>
    <title>Thumbnail only</title>
    <link>https://news.example/b</link>
    <description>Plain text</description>
    <pubDate>Tue, 10 Jun 2003 04:00:00 EST</pubDate>
    <media:thumbnail url="https://img.example/thumb-b.jpg"/>
  </item>
  <item>
    <title>Enclosure</title>
    <link>https://news.example/c</link>
    <pubDate>not a date</pubDate>
    <enclosure url="https://img.example/enc.jpg" type="image/jpeg" length="100"/>
  </item>
  <item>
    <title>Inline image</title>
    <link>https://news.example/d</link>
    <description><![CDATA[<img src="https://img.example/inline.png"/> Ether slides.]]></description>
  </item>
  <item>
    <title>No link</title>
    <description>dropped</description>
  </item>
</channel>
</rss>`

func parseTestFeed(t *testing.T, doc string) []Entry {
	t.Helper()
	feed, err := gofeed.NewParser().ParseString(doc)
	if err != nil {
		t.Fatal(err)
	}
	return Entries(feed)
}

func TestMapFirstEntry(t *testing.T) {
	t.Parallel()

	entries := parseTestFeed(t, testFeed)
	a := NewFeedAdapter(Source{
		Name:            "Test",
		DateFormat:      pubdate.RFC822Numeric,
		HTMLDescription: true,
		Images:          []ImageRule{ImageMediaContent},
	}, nil)

	got, err := a.Map(entries[0])
	if err != nil {
		t.Fatal(err)
	}
	want := article.Article{
		Title:       "Media content",
		Link:        "https://news.example/a",
		Description: "Bitcoin jumps. Traders cheer.",
		PublishedAt: "2003-06-10 09:00:00",
		ContentURL:  "https://img.example/content.jpg",
		Source:      "Test",
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("(-got +want):\n%s", diff)
	}
}

func TestMapImageRules(t *testing.T) {
	t.Parallel()

	entries := parseTestFeed(t, testFeed)
	cases := map[string]struct {
		entry int
		rules []ImageRule
		want  string
	}{
		"media content wins":          {entry: 0, rules: DefaultImageRules, want: "https://img.example/content.jpg"},
		"thumbnail when asked first":  {entry: 0, rules: []ImageRule{ImageMediaThumbnail, ImageMediaContent}, want: "https://img.example/thumb.jpg"},
		"thumbnail fallback":          {entry: 1, rules: []ImageRule{ImageMediaContent, ImageMediaThumbnail}, want: "https://img.example/thumb-b.jpg"},
		"enclosure":                   {entry: 2, rules: DefaultImageRules, want: "https://img.example/enc.jpg"},
		"description src":             {entry: 3, rules: DefaultImageRules, want: "https://img.example/inline.png"},
		"feed image fallback":         {entry: 2, rules: []ImageRule{ImageMediaContent, ImageFeed}, want: "https://news.example/logo.png"},
		"rule not offered by source":  {entry: 1, rules: []ImageRule{ImageEnclosure}, want: article.NoImage},
		"description src not present": {entry: 1, rules: []ImageRule{ImageDescriptionSrc}, want: article.NoImage},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			a := NewFeedAdapter(Source{Name: "Test", Images: tc.rules}, nil)
			got, err := a.Map(entries[tc.entry])
			if err != nil {
				t.Fatal(err)
			}
			if got.ContentURL != tc.want {
				t.Fatalf("ContentURL = %q, want %q", got.ContentURL, tc.want)
			}
		})
	}
}

func TestMapEscapedDescription(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		desc      string
		wantDesc  string
		wantImage string
	}{
		"escaped image": {
			desc:      `&lt;img src=&quot;https://img.example/x.png&quot;&gt; hello`,
			wantDesc:  "hello",
			wantImage: "https://img.example/x.png",
		},
		"escaped text beside real markup": {
			desc:      `<p><img src="https://img.example/y.png"> Use a &lt;div&gt; wrapper</p>`,
			wantDesc:  "Use a <div> wrapper",
			wantImage: "https://img.example/y.png",
		},
		"escaped text without image": {
			desc:      "<p>Fees &lt; 1%</p>",
			wantDesc:  "Fees < 1%",
			wantImage: article.NoImage,
		},
	}
	a := NewFeedAdapter(Source{Name: "Escaped", HTMLDescription: true, Images: []ImageRule{ImageDescriptionSrc}}, nil)
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := a.Map(Entry{Item: &gofeed.Item{Title: "T", Link: "https://news.example/e", Description: tc.desc}})
			if err != nil {
				t.Fatal(err)
			}
			if got.Description != tc.wantDesc || got.ContentURL != tc.wantImage {
				t.Fatalf("Map = desc %q image %q, want desc %q image %q", got.Description, got.ContentURL, tc.wantDesc, tc.wantImage)
			}
		})
	}
}

func TestMapNoImageAnywhere(t *testing.T) {
	t.Parallel()

	entries := parseTestFeed(t, `<rss version="2.0"><channel><title>T</title>
<item><title>Bare</title><link>https://news.example/bare</link><description>Nothing to see</description></item>
</channel></rss>`)
	a := NewFeedAdapter(Source{Name: "Test"}, nil)
	got, err := a.Map(entries[0])
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentURL != article.NoImage {
		t.Fatalf("ContentURL = %q, want %q", got.ContentURL, article.NoImage)
	}
}

func TestMapDescriptionOptions(t *testing.T) {
	t.Parallel()

	entries := parseTestFeed(t, testFeed)

	first := NewFeedAdapter(Source{Name: "Potato", HTMLDescription: true, FirstSentence: true}, nil)
	got, err := first.Map(entries[0])
	if err != nil {
		t.Fatal(err)
	}
	if got.Description != "Bitcoin jumps." {
		t.Fatalf("first sentence description = %q", got.Description)
	}

	raw := NewFeedAdapter(Source{Name: "Raw"}, nil)
	got, err = raw.Map(entries[0])
	if err != nil {
		t.Fatal(err)
	}
	if got.Description != "<p>Bitcoin <b>jumps</b>. Traders cheer.</p>" {
		t.Fatalf("plain-text source changed description: %q", got.Description)
	}

	skip := NewFeedAdapter(Source{Name: "Investing", SkipDescription: true}, nil)
	got, err = skip.Map(entries[0])
	if err != nil {
		t.Fatal(err)
	}
	if got.Description != "" {
		t.Fatalf("skipped description = %q, want empty", got.Description)
	}
}

func TestMapDates(t *testing.T) {
	t.Parallel()

	entries := parseTestFeed(t, testFeed)

	named := NewFeedAdapter(Source{Name: "Defiant", DateFormat: pubdate.RFC822Named}, nil)
	got, err := named.Map(entries[1])
	if err != nil {
		t.Fatal(err)
	}
	if got.PublishedAt != "2003-06-10 09:00:00" {
		t.Fatalf("PublishedAt = %q", got.PublishedAt)
	}

	// An unparseable date keeps the rest of the entry.
	bad := NewFeedAdapter(Source{Name: "Any", DateFormat: pubdate.Auto}, nil)
	got, err = bad.Map(entries[2])
	if err != nil {
		t.Fatal(err)
	}
	if got.PublishedAt != "" || got.Link != "https://news.example/c" {
		t.Fatalf("unexpected article for bad date: %+v", got)
	}
}

func TestMapRejectsMissingLink(t *testing.T) {
	t.Parallel()

	entries := parseTestFeed(t, testFeed)
	a := NewFeedAdapter(Source{Name: "Test"}, nil)
	if _, err := a.Map(entries[4]); !errors.Is(err, ErrMissingLink) {
		t.Fatalf("Map error = %v, want ErrMissingLink", err)
	}
	if _, err := a.Map(Entry{}); !errors.Is(err, ErrNilEntry) {
		t.Fatalf("Map error = %v, want ErrNilEntry", err)
	}
}

func TestFetch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(testFeed))
	}))
	defer srv.Close()

	a := NewFeedAdapter(Source{Name: "Test", URL: srv.URL + "/feed"}, srv.Client())
	entries, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 5 {
		t.Fatalf("got %d entries, want 5", len(entries))
	}
	if entries[0].FeedImage != "https://news.example/logo.png" {
		t.Fatalf("FeedImage = %q", entries[0].FeedImage)
	}

	missing := NewFeedAdapter(Source{Name: "Gone", URL: srv.URL + "/gone"}, srv.Client())
	if _, err := missing.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for 404 feed")
	}
}
