package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager coordinates the memory and disk tiers: reads fall through L1 to
// L2 and promote disk hits, writes land in L1 at once and on disk in the
// background.
type Manager struct {
	l1  *MemoryCache
	l2  *DiskCache
	cfg Config
	log *log.Logger

	writes sync.WaitGroup
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	stats ManagerStats
}

// ManagerStats aggregates hits across tiers.
type ManagerStats struct {
	Hits        int64
	Misses      int64
	L1Hits      int64
	L2Hits      int64
	HitRate     float64
	CleanupRuns int64
	LastCleanup time.Time

	Memory Stats
	Disk   Stats
}

// NewManager creates a cache manager. An empty DiskPath defaults to the
// user cache directory.
func NewManager(cfg Config, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.DiskPath == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get cache directory: %w", err)
		}
		cfg.DiskPath = filepath.Join(dir, "narrator", "audio")
	}
	if cfg.DiskCapacity <= 0 {
		cfg.DiskCapacity = DefaultConfig().DiskCapacity
	}

	l1, err := NewMemoryCache(cfg.MemoryEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	l2, err := NewDiskCache(cfg.DiskPath, cfg.DiskCapacity, cfg.CompressionLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create disk cache: %w", err)
	}

	m := &Manager{
		l1:  l1,
		l2:  l2,
		cfg: cfg,
		log: logger.WithPrefix("cache"),
	}
	if cfg.CleanupInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		m.done = make(chan struct{})
		go m.cleanupLoop(ctx)
	}
	return m, nil
}

// Get checks L1, then L2. Disk hits are promoted to memory.
func (m *Manager) Get(key string) (Entry, bool) {
	if e, ok := m.l1.Get(key); ok {
		m.record(LevelMemory, true)
		return e, true
	}
	if e, ok := m.l2.Get(key); ok {
		m.record(LevelDisk, true)
		_ = m.l1.Put(key, e)
		return e, true
	}
	m.record(LevelMemory, false)
	return Entry{}, false
}

func (m *Manager) record(level Level, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !hit {
		m.stats.Misses++
		return
	}
	m.stats.Hits++
	switch level {
	case LevelMemory:
		m.stats.L1Hits++
	case LevelDisk:
		m.stats.L2Hits++
	}
}

// Put stores entry in memory and schedules the disk write.
func (m *Manager) Put(key string, entry Entry) error {
	if entry.Created.IsZero() {
		entry.Created = time.Now()
	}
	if err := m.l1.Put(key, entry); err != nil {
		return fmt.Errorf("L1 cache error: %w", err)
	}

	m.writes.Add(1)
	go func() {
		defer m.writes.Done()
		if err := m.l2.Put(key, entry); err != nil && err != ErrItemTooLarge && err != ErrClosed {
			m.log.Warn("disk cache write failed", "key", shortKey(key), "err", err)
		}
	}()
	return nil
}

// Delete removes an entry from both tiers.
func (m *Manager) Delete(key string) error {
	_ = m.l1.Delete(key)
	return m.l2.Delete(key)
}

// Clear empties both tiers.
func (m *Manager) Clear() error {
	m.writes.Wait()
	_ = m.l1.Clear()
	if err := m.l2.Clear(); err != nil {
		return fmt.Errorf("L2 clear: %w", err)
	}
	return nil
}

// Len returns the number of entries on disk, which holds every entry.
func (m *Manager) Len() int {
	return m.l2.Len()
}

// Flush waits for pending disk writes.
func (m *Manager) Flush() {
	m.writes.Wait()
}

// Stats returns aggregated statistics from both tiers.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	stats := m.stats
	m.mu.Unlock()

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	stats.Memory = m.l1.Stats()
	stats.Disk = m.l2.Stats()
	return stats
}

// Dir returns the disk cache directory.
func (m *Manager) Dir() string {
	return m.cfg.DiskPath
}

// Cleanup removes expired entries and enforces the disk size limit.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	m.stats.CleanupRuns++
	m.stats.LastCleanup = time.Now()
	m.mu.Unlock()

	if m.cfg.TTL > 0 {
		if removed := m.l2.RemoveOlderThan(time.Now().Add(-m.cfg.TTL)); removed > 0 {
			m.log.Debug("expired cache entries", "count", removed)
		}
		m.l1.Prune(m.cfg.TTL)
	}
	if m.l2.Size() > m.cfg.DiskCapacity {
		m.l2.EvictLRU()
	}
}

func (m *Manager) cleanupLoop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Cleanup()
		case <-ctx.Done():
			return
		}
	}
}

// Close stops cleanup, finishes pending writes and saves the disk index.
func (m *Manager) Close() error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
	m.writes.Wait()
	if err := m.l2.Close(); err != nil {
		return fmt.Errorf("failed to close disk cache: %w", err)
	}
	return nil
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
