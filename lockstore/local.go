package lockstore

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/cachekit/internal/util"
)

// LocalStore keeps markers in-process.
// An optional sweep loop drops markers left behind by writers that never
// unlocked (panics, abandoned goroutines).
type LocalStore struct {
	mu      sync.RWMutex
	markers map[string]time.Time // key -> locked at
	ticker  *time.Ticker
	stopCh  chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates a store. With sweepInterval and retention both > 0 a
// background loop prunes markers older than retention.
func NewLocalStore(sweepInterval, retention time.Duration) *LocalStore {
	s := &LocalStore{markers: make(map[string]time.Time)}
	if sweepInterval > 0 && retention > 0 {
		s.ticker = time.NewTicker(sweepInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Cleanup(retention)
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *LocalStore) Lock(_ context.Context, key string) error {
	now := time.Now()
	s.mu.Lock()
	s.markers[key] = now
	s.mu.Unlock()
	return nil
}

func (s *LocalStore) Unlock(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.markers, key)
	s.mu.Unlock()
	return nil
}

func (s *LocalStore) IsLocked(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	_, ok := s.markers[key]
	s.mu.RUnlock()
	return ok, nil
}

func (s *LocalStore) LockedUnder(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.markers {
		if util.UnderPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Len returns the number of live markers.
func (s *LocalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.markers)
}

func (s *LocalStore) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	for k, at := range s.markers {
		if at.Before(cutoff) {
			delete(s.markers, k)
		}
	}
	s.mu.Unlock()
}

// Close stops the sweep loop. Safe to call multiple times.
func (s *LocalStore) Close(_ context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			close(s.stopCh)
			s.ticker.Stop()
			s.wg.Wait()
		}
	})
	return nil
}
