// Package cache provides a two-level cache for synthesized audio.
// It includes an in-memory LRU cache (L1) and a persistent, zstd
// compressed disk cache (L2) with TTL cleanup.
package cache
