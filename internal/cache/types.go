package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrClosed is returned when writing to a closed cache
	ErrClosed = errors.New("cache closed")
)

// Level represents the cache tier
type Level int

const (
	// LevelMemory is the L1 memory cache (fastest)
	LevelMemory Level = iota

	// LevelDisk is the L2 disk cache (persistent)
	LevelDisk
)

// String returns the string representation of the cache level
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "L1-Memory"
	case LevelDisk:
		return "L2-Disk"
	default:
		return "Unknown"
	}
}

// Entry is one cached audio payload.
type Entry struct {
	MIMEType string
	Data     []byte
	Created  time.Time
}

// Stats holds cache performance metrics
type Stats struct {
	Capacity  int64 // Maximum capacity (entries for L1, bytes for L2)
	Size      int64 // Current size in bytes
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64 // hits / (hits + misses)

	LastAccess time.Time
	LastEvict  time.Time
}

func (s *Stats) updateHitRate() {
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
}

// Config holds configuration for the cache manager
type Config struct {
	// Memory cache (L1)
	MemoryEntries int

	// Disk cache (L2)
	DiskPath         string
	DiskCapacity     int64 // Bytes
	CompressionLevel int   // Zstd level (0 disables, 1-22)

	// Cleanup
	TTL             time.Duration // Age after which disk entries expire
	CleanupInterval time.Duration // How often to run cleanup (0 disables)
}

// DefaultConfig returns default cache configuration
func DefaultConfig() Config {
	return Config{
		MemoryEntries:    64,
		DiskCapacity:     100 * 1024 * 1024, // 100MB
		CompressionLevel: 3,
		TTL:              7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Cache defines the operations shared by every tier
type Cache interface {
	Get(key string) (Entry, bool)
	Put(key string, entry Entry) error
	Delete(key string) error
	Clear() error
	Len() int
	Stats() Stats
}

// Key derives a cache key from its parts.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}
