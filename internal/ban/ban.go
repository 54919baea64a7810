// Package ban maintains the durable set of banned network addresses. Bans
// expire automatically after a fixed duration unless explicitly lifted first;
// every change rewrites the backing file.
package ban

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// How often the cache janitor sweeps out expired entries. Membership checks
// apply expiry lazily, so this only bounds how long the file can lag behind
// an automatic unban.
const cleanupInterval = time.Minute

// Store is the set of banned addresses, backed by a TTL cache and a file.
type Store struct {
	mu     sync.Mutex // serializes file writes
	cache  *gocache.Cache
	path   string
	expiry time.Duration
	logger *logrus.Logger
}

// NewStore loads any previously persisted bans from path and returns a store
// whose entries expire after the given duration. Previously persisted
// addresses are re-banned with a fresh expiry.
func NewStore(path string, expiry time.Duration, logger *logrus.Logger) (*Store, error) {
	s := &Store{
		cache:  gocache.New(expiry, cleanupInterval),
		path:   path,
		expiry: expiry,
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if err == nil {
		var addrs []string
		if err := json.Unmarshal(data, &addrs); err != nil {
			return nil, fmt.Errorf("error parsing ban file %s: %w", path, err)
		}
		for _, addr := range addrs {
			s.cache.Set(addr, true, gocache.DefaultExpiration)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("error reading ban file %s: %w", path, err)
	}

	// Expired entries are swept out by the janitor on its own goroutine;
	// persist here so the file tracks automatic unbans too.
	s.cache.OnEvicted(func(addr string, _ interface{}) {
		s.logger.Infof("ban on %s lifted", addr)
		if err := s.persist(); err != nil {
			s.logger.Warnf("error persisting ban list: %s", err)
		}
	})

	return s, nil
}

// Banned reports whether addr is currently denied connection.
func (s *Store) Banned(addr string) bool {
	_, found := s.cache.Get(addr)
	return found
}

// Ban adds addr to the set and schedules its automatic removal after the
// store's expiry duration. Re-banning an address restarts its timer.
func (s *Store) Ban(addr string) error {
	s.cache.Set(addr, true, gocache.DefaultExpiration)
	s.logger.Infof("banned %s for %s", addr, s.expiry)
	return s.persist()
}

// Unban removes addr from the set immediately. Removing an address that is
// not banned is a no-op.
func (s *Store) Unban(addr string) {
	// Delete fires the eviction hook, which persists the file.
	s.cache.Delete(addr)
}

// Addresses returns the currently banned addresses in sorted order.
func (s *Store) Addresses() []string {
	items := s.cache.Items()
	addrs := make([]string, 0, len(items))
	for addr := range items {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}

func (s *Store) persist() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(s.Addresses())
	if err != nil {
		return fmt.Errorf("error encoding ban list: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("error writing ban file %s: %w", s.path, err)
	}
	return nil
}
