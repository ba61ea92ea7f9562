package cache

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const indexFile = "cache.index"

// DiskCache is the L2 cache. Payloads live in one file each, zstd
// compressed when that makes them smaller, with a gob index beside them.
type DiskCache struct {
	basePath string
	capacity int64 // Maximum size in bytes
	size     int64 // Current size on disk

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index  map[string]*diskEntry
	closed bool

	mu    sync.Mutex
	stats Stats
}

// diskEntry is one record of the disk cache index
type diskEntry struct {
	Key          string
	File         string // Relative to basePath
	MIMEType     string
	Size         int64 // Size on disk
	OriginalSize int64
	Created      time.Time
	LastAccess   time.Time
	Hits         int64
	Compressed   bool
}

// NewDiskCache opens or creates a disk cache at basePath.
func NewDiskCache(basePath string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		basePath: basePath,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if compressionLevel > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		dc.decoder, err = zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
	}

	if err := dc.loadIndex(); err != nil {
		// A broken index only costs the cached files.
		dc.index = make(map[string]*diskEntry)
	}
	for _, e := range dc.index {
		dc.size += e.Size
	}

	return dc, nil
}

// Get retrieves an entry from disk.
func (dc *DiskCache) Get(key string) (Entry, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	e, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return Entry{}, false
	}

	data, err := os.ReadFile(dc.path(e))
	if err == nil && e.Compressed {
		if dc.decoder == nil {
			err = ErrClosed
		} else {
			data, err = dc.decoder.DecodeAll(data, nil)
		}
	}
	if err != nil {
		// Missing or corrupted file
		dc.removeLocked(key)
		dc.stats.Misses++
		return Entry{}, false
	}

	e.LastAccess = time.Now()
	e.Hits++
	dc.stats.Hits++
	dc.stats.LastAccess = e.LastAccess

	return Entry{MIMEType: e.MIMEType, Data: data, Created: e.Created}, true
}

// Put writes an entry to disk, evicting least recently used entries to
// stay within capacity.
func (dc *DiskCache) Put(key string, entry Entry) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.closed {
		return ErrClosed
	}

	data := entry.Data
	compressed := false
	// Only compress if > 1KB and it actually helps
	if dc.encoder != nil && len(data) > 1024 {
		if c := dc.encoder.EncodeAll(data, nil); len(c) < len(data) {
			data, compressed = c, true
		}
	}

	diskSize := int64(len(data))
	if diskSize > dc.capacity {
		return ErrItemTooLarge
	}

	dc.removeLocked(key)
	for dc.size+diskSize > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	created := entry.Created
	if created.IsZero() {
		created = time.Now()
	}
	e := &diskEntry{
		Key:          key,
		File:         key + ".cache",
		MIMEType:     entry.MIMEType,
		Size:         diskSize,
		OriginalSize: int64(len(entry.Data)),
		Created:      created,
		LastAccess:   time.Now(),
		Compressed:   compressed,
	}
	if err := writeFile(dc.path(e), data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	dc.index[key] = e
	dc.size += diskSize
	return nil
}

// Delete removes an entry from disk.
func (dc *DiskCache) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	dc.removeLocked(key)
	return nil
}

// Clear removes every entry and saves the empty index.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for key := range dc.index {
		dc.removeLocked(key)
	}
	return dc.saveIndex()
}

// Len returns the number of entries on disk.
func (dc *DiskCache) Len() int {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return len(dc.index)
}

// Size returns the bytes used on disk.
func (dc *DiskCache) Size() int64 {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.size
}

// Stats returns cache statistics.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	stats := dc.stats
	stats.Size = dc.size
	stats.ItemCount = int64(len(dc.index))
	stats.updateHitRate()
	return stats
}

// RemoveOlderThan removes entries created before cutoff.
func (dc *DiskCache) RemoveOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for key, e := range dc.index {
		if e.Created.Before(cutoff) {
			dc.removeLocked(key)
			removed++
		}
	}
	return removed
}

// EvictLRU frees space down to 90% of capacity.
func (dc *DiskCache) EvictLRU() int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	target := dc.capacity * 90 / 100
	evicted := 0
	for dc.size > target && len(dc.index) > 0 {
		dc.evictOldest()
		evicted++
	}
	return evicted
}

// Close saves the index. The cache rejects writes afterwards.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.closed {
		return nil
	}
	dc.closed = true
	if dc.encoder != nil {
		dc.encoder.Close()
	}
	return dc.saveIndex()
}

func (dc *DiskCache) path(e *diskEntry) string {
	return filepath.Join(dc.basePath, e.File)
}

func (dc *DiskCache) removeLocked(key string) {
	e, ok := dc.index[key]
	if !ok {
		return
	}
	os.Remove(dc.path(e))
	delete(dc.index, key)
	dc.size -= e.Size
}

func (dc *DiskCache) evictOldest() {
	entries := make([]*diskEntry, 0, len(dc.index))
	for _, e := range dc.index {
		entries = append(entries, e)
	}
	oldest := slices.MinFunc(entries, func(a, b *diskEntry) int {
		return a.LastAccess.Compare(b.LastAccess)
	})

	dc.removeLocked(oldest.Key)
	dc.stats.Evictions++
	dc.stats.LastEvict = time.Now()
}

func writeFile(path string, data []byte) error {
	// Write to temp file first, then rename
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		os.Remove(tempPath)
		return err
	}
	return os.Rename(tempPath, path)
}

func (dc *DiskCache) loadIndex() error {
	file, err := os.Open(filepath.Join(dc.basePath, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(&dc.index)
}

func (dc *DiskCache) saveIndex() error {
	indexPath := filepath.Join(dc.basePath, indexFile)
	tempPath := indexPath + ".tmp"

	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(file).Encode(dc.index)
	closeErr := file.Close()

	if err != nil {
		os.Remove(tempPath)
		return err
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}
	return os.Rename(tempPath, indexPath)
}
