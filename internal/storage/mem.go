package storage

import (
	"context"
	"sort"
	"sync"

	"cryptonews/internal/article"
)

// MemStore is an in-memory Store. It is used by tests and by DB_DRIVER=memory.
type MemStore struct {
	mu   sync.Mutex
	rows []article.Article
	idx  map[string]int
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{idx: make(map[string]int)}
}

func (s *MemStore) EnsureSchema(context.Context) error { return nil }

func (s *MemStore) Close() error { return nil }

func (s *MemStore) InsertIfAbsent(_ context.Context, a article.Article) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.idx[a.Link]; ok {
		return false, nil
	}
	a.Delivered = false
	s.idx[a.Link] = len(s.rows)
	s.rows = append(s.rows, a)
	return true, nil
}

func (s *MemStore) FetchUndelivered(context.Context) ([]article.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []article.Article
	for _, a := range s.rows {
		if !a.Delivered {
			out = append(out, a)
		}
	}
	// Undated first, then ascending; insertion order breaks ties.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt < out[j].PublishedAt
	})
	return out, nil
}

func (s *MemStore) MarkDelivered(_ context.Context, links []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, link := range links {
		i, ok := s.idx[link]
		if !ok || s.rows[i].Delivered {
			continue
		}
		s.rows[i].Delivered = true
		n++
	}
	return n, nil
}

func (s *MemStore) MarkAllUndeliveredAsDelivered(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.rows {
		if !s.rows[i].Delivered {
			s.rows[i].Delivered = true
			n++
		}
	}
	return n, nil
}

func (s *MemStore) ListRecent(_ context.Context, limit int) ([]article.Article, error) {
	s.mu.Lock()
	out := append([]article.Article(nil), s.rows...)
	s.mu.Unlock()

	// Newest first, undated last; later inserts win ties.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].PublishedAt, out[j].PublishedAt
		if (a == "") != (b == "") {
			return b == ""
		}
		return a > b
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) Get(_ context.Context, link string) (article.Article, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.idx[link]
	if !ok {
		return article.Article{}, false, nil
	}
	return s.rows[i], true, nil
}

var _ Store = (*MemStore)(nil)
