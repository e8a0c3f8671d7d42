package output

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type CacheConfig struct {
	BlobTTL        time.Duration
	BlobMaxEntries int
	ListTTL        time.Duration
	ListMaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		BlobTTL:        5 * time.Minute,
		BlobMaxEntries: 256,
		ListTTL:        30 * time.Second,
		ListMaxEntries: 64,
	}
}

type CacheStats struct {
	BlobHits     uint64
	BlobMisses   uint64
	ListHits     uint64
	ListMisses   uint64
	OriginWrites uint64
}

// CachedStore is a read-through cache in front of a remote Store. Writes go
// to the origin first and refresh the cache.
type CachedStore struct {
	origin Store
	blobs  *expirable.LRU[string, []byte]
	lists  *expirable.LRU[string, []string]

	blobHits, blobMisses atomic.Uint64
	listHits, listMisses atomic.Uint64
	originWrites         atomic.Uint64
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.BlobTTL <= 0 {
		cfg.BlobTTL = def.BlobTTL
	}
	if cfg.BlobMaxEntries <= 0 {
		cfg.BlobMaxEntries = def.BlobMaxEntries
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	if cfg.ListMaxEntries <= 0 {
		cfg.ListMaxEntries = def.ListMaxEntries
	}
	return &CachedStore{
		origin: origin,
		blobs:  expirable.NewLRU[string, []byte](cfg.BlobMaxEntries, nil, cfg.BlobTTL),
		lists:  expirable.NewLRU[string, []string](cfg.ListMaxEntries, nil, cfg.ListTTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, runID, name string, content []byte) error {
	id, clean, err := key(runID, name)
	if err != nil {
		return err
	}
	s.originWrites.Add(1)
	if err := s.origin.Put(ctx, id, clean, content); err != nil {
		return err
	}
	s.blobs.Add(id+"/"+clean, append([]byte(nil), content...))
	s.lists.Remove(id)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, runID, name string) ([]byte, error) {
	id, clean, err := key(runID, name)
	if err != nil {
		return nil, err
	}
	k := id + "/" + clean
	if raw, ok := s.blobs.Get(k); ok {
		s.blobHits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.blobMisses.Add(1)
	raw, err := s.origin.Get(ctx, id, clean)
	if err != nil {
		return nil, err
	}
	s.blobs.Add(k, append([]byte(nil), raw...))
	return raw, nil
}

func (s *CachedStore) List(ctx context.Context, runID string) ([]string, error) {
	id, err := checkRunID(runID)
	if err != nil {
		return nil, err
	}
	if list, ok := s.lists.Get(id); ok {
		s.listHits.Add(1)
		return append([]string(nil), list...), nil
	}
	s.listMisses.Add(1)
	list, err := s.origin.List(ctx, id)
	if err != nil {
		return nil, err
	}
	s.lists.Add(id, append([]string(nil), list...))
	return list, nil
}

// Location is not cached; presigned URLs expire on their own schedule.
func (s *CachedStore) Location(ctx context.Context, runID, name string) (string, error) {
	return s.origin.Location(ctx, runID, name)
}

func (s *CachedStore) Stats() CacheStats {
	return CacheStats{
		BlobHits:     s.blobHits.Load(),
		BlobMisses:   s.blobMisses.Load(),
		ListHits:     s.listHits.Load(),
		ListMisses:   s.listMisses.Load(),
		OriginWrites: s.originWrites.Load(),
	}
}
