package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func entry(s string) Entry {
	return Entry{MIMEType: "audio/wav", Data: []byte(s)}
}

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache, err := NewMemoryCache(4)
	if err != nil {
		t.Fatalf("NewMemoryCache failed: %v", err)
	}

	key := "test-key"
	if err := cache.Put(key, entry("test-value")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := cache.Get(key)
	if !ok {
		t.Fatal("Get failed: key not found")
	}
	if string(got.Data) != "test-value" || got.MIMEType != "audio/wav" {
		t.Errorf("Retrieved entry mismatch: %+v", got)
	}
	if got.Created.IsZero() {
		t.Error("Created should be set on Put")
	}

	if !cache.Contains(key) {
		t.Error("Contains returned false for existing key")
	}
	if size := cache.Stats().Size; size != int64(len("test-value")) {
		t.Errorf("Size mismatch: got %d", size)
	}

	if err := cache.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if cache.Contains(key) {
		t.Error("Key still exists after delete")
	}
	if size := cache.Stats().Size; size != 0 {
		t.Errorf("Size not zero after delete: %d", size)
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	cache, _ := NewMemoryCache(3)

	for i := 0; i < 3; i++ {
		cache.Put(fmt.Sprintf("key%d", i), entry("value"))
	}

	// Touch key0 so key1 becomes least recently used
	cache.Get("key0")
	cache.Put("key3", entry("value"))

	if !cache.Contains("key0") {
		t.Error("Recently used key0 was evicted")
	}
	if cache.Contains("key1") {
		t.Error("Least recently used key1 should be evicted")
	}

	stats := cache.Stats()
	if stats.Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", stats.Evictions)
	}
	if stats.ItemCount != 3 {
		t.Errorf("Expected 3 items, got %d", stats.ItemCount)
	}
	if stats.Size != 15 {
		t.Errorf("Expected size 15, got %d", stats.Size)
	}
}

func TestMemoryCache_UpdateExisting(t *testing.T) {
	cache, _ := NewMemoryCache(4)

	cache.Put("key", entry("short"))
	cache.Put("key", entry("much longer value"))

	got, _ := cache.Get("key")
	if string(got.Data) != "much longer value" {
		t.Errorf("Expected updated value, got %s", got.Data)
	}
	if size := cache.Stats().Size; size != int64(len("much longer value")) {
		t.Errorf("Size not updated correctly: %d", size)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache, _ := NewMemoryCache(10)
	for i := 0; i < 5; i++ {
		cache.Put(fmt.Sprintf("key%d", i), entry("v"))
	}

	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if cache.Len() != 0 {
		t.Errorf("Expected empty cache, got %d items", cache.Len())
	}
	if size := cache.Stats().Size; size != 0 {
		t.Errorf("Expected size 0, got %d", size)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache, _ := NewMemoryCache(10)
	cache.Put("key1", entry("value1"))

	cache.Get("key1")
	cache.Get("key1")
	cache.Get("missing")

	stats := cache.Stats()
	if stats.Hits != 2 {
		t.Errorf("Expected 2 hits, got %d", stats.Hits)
	}
	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}
	if expected := 2.0 / 3.0; stats.HitRate != expected {
		t.Errorf("Expected hit rate %.2f, got %.2f", expected, stats.HitRate)
	}
	if stats.Capacity != 10 {
		t.Errorf("Expected capacity 10, got %d", stats.Capacity)
	}
}

func TestMemoryCache_Prune(t *testing.T) {
	cache, _ := NewMemoryCache(10)

	old := entry("old")
	old.Created = time.Now().Add(-2 * time.Hour)
	cache.Put("old", old)
	cache.Put("new", entry("new"))

	if pruned := cache.Prune(time.Hour); pruned != 1 {
		t.Errorf("Expected 1 pruned, got %d", pruned)
	}
	if cache.Contains("old") || !cache.Contains("new") {
		t.Error("Prune removed the wrong entries")
	}
}

func TestMemoryCache_DefaultCapacity(t *testing.T) {
	cache, err := NewMemoryCache(0)
	if err != nil {
		t.Fatalf("NewMemoryCache failed: %v", err)
	}
	if got := cache.Stats().Capacity; got != int64(DefaultConfig().MemoryEntries) {
		t.Errorf("Expected default capacity, got %d", got)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache, _ := NewMemoryCache(50)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", id, j%20)
				cache.Put(key, entry("value"))
				cache.Get(key)
				if j%10 == 0 {
					cache.Delete(key)
				}
			}
		}(i)
	}
	wg.Wait()

	if n := cache.Len(); n > 50 {
		t.Errorf("Cache exceeded capacity: %d", n)
	}
	if size := cache.Stats().Size; size != int64(cache.Len()*len("value")) {
		t.Errorf("Size accounting drifted: size %d for %d items", size, cache.Len())
	}
}

func BenchmarkMemoryCache_Put(b *testing.B) {
	cache, _ := NewMemoryCache(1000)
	e := Entry{Data: make([]byte, 1024)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Put(fmt.Sprintf("key%d", i%1000), e)
	}
}

func BenchmarkMemoryCache_Get(b *testing.B) {
	cache, _ := NewMemoryCache(1000)
	for i := 0; i < 1000; i++ {
		cache.Put(fmt.Sprintf("key%d", i), Entry{Data: make([]byte, 1024)})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(fmt.Sprintf("key%d", i%1000))
	}
}
