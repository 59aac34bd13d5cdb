package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// OpenFunc opens a book session.
type OpenFunc func(ctx context.Context, bookID string) *Book

// Store keeps open books keyed by identifier. A book that is not used for
// the TTL, or the least recently used one once capacity is reached, is
// evicted, which ends its session; the next request reopens it.
type Store struct {
	cache *ttlcache.Cache[string, *Book]
	open  OpenFunc
	mu    sync.Mutex
}

// NewStore creates a store. capacity 0 leaves the number of open books
// unbounded.
func NewStore(ttl time.Duration, capacity int, open OpenFunc) *Store {
	cacheOpts := []ttlcache.Option[string, *Book]{
		ttlcache.WithTTL[string, *Book](ttl),
	}
	if capacity > 0 {
		cacheOpts = append(cacheOpts,
			ttlcache.WithCapacity[string, *Book](uint64(capacity)))
	}

	s := &Store{
		cache: ttlcache.New(cacheOpts...),
		open:  open,
	}

	s.cache.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Book]) {
		reasonStr := "unknown"
		switch reason {
		case ttlcache.EvictionReasonExpired:
			reasonStr = "expired"
		case ttlcache.EvictionReasonCapacityReached:
			reasonStr = "capacity reached"
		case ttlcache.EvictionReasonDeleted:
			reasonStr = "deleted"
		}
		activeSessions.Dec()
		slog.Info("Book session ended", "book", item.Key(), "reason", reasonStr)
	})

	return s
}

// Start runs the expiry loop until Stop is called.
func (s *Store) Start() {
	s.cache.Start()
}

// Stop ends the expiry loop and every open session.
func (s *Store) Stop() {
	s.cache.Stop()
	s.cache.DeleteAll()
}

// Get returns the open book for bookID, opening it on first use. Access
// extends the book's lifetime.
func (s *Store) Get(ctx context.Context, bookID string) *Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item := s.cache.Get(bookID); item != nil {
		return item.Value()
	}
	// drop an expired entry the loop has not collected yet
	s.cache.Delete(bookID)

	b := s.open(context.WithoutCancel(ctx), bookID)
	s.cache.Set(bookID, b, ttlcache.DefaultTTL)
	activeSessions.Inc()
	return b
}

// Len is the number of open books.
func (s *Store) Len() int {
	return s.cache.Len()
}
