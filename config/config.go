// Package config centralises the engine's process-wide and per-decode
// tunables (spec.md §6.4), defaulted with dario.cat/mergo and optionally
// loadable from an INI file with github.com/go-git/gcfg, mirroring how
// go-git itself loads .git/config with gcfg.
package config

import (
	"fmt"
	"os"
	"runtime"

	"dario.cat/mergo"
	"github.com/go-git/gcfg"

	"github.com/packforge/packengine/hash"
)

// Config enumerates every tunable the pack/object engine exposes.
type Config struct {
	// HashAlgorithm selects SHA1 or SHA256 for ObjectIDs, process-wide.
	HashAlgorithm hash.Algorithm

	// CacheBudgetBytes bounds the in-memory tier of the two-tier object
	// cache (C4). Default 64 MiB.
	CacheBudgetBytes int64

	// SpillDirectory is where evicted cache entries are written when
	// they no longer fit the budget. Default is the OS temp directory.
	SpillDirectory string

	// WorkerThreads bounds the concurrent delta-resolution pool (C6).
	// Default is the logical CPU count.
	WorkerThreads int

	// MaxDeltaChainDepth caps recursive/iterative delta resolution (C3).
	// Default 50.
	MaxDeltaChainDepth int

	// LargeObjectStreamingThresholdBytes is the decoded-size threshold at
	// or above which the decoder stores an object directly in the cache's
	// disk tier instead of its in-memory tier (spec.md §5). Zero or less
	// disables this. Default 16 MiB.
	LargeObjectStreamingThresholdBytes int64
}

// Default returns the documented default configuration.
func Default() Config {
	return Config{
		HashAlgorithm:                       hash.SHA1,
		CacheBudgetBytes:                    64 * 1024 * 1024,
		SpillDirectory:                      os.TempDir(),
		WorkerThreads:                       runtime.NumCPU(),
		MaxDeltaChainDepth:                  50,
		LargeObjectStreamingThresholdBytes:  16 * 1024 * 1024,
	}
}

// WithDefaults merges partial (only the fields the caller actually set,
// zero-valued fields stand in for "unset") over Default(), using mergo so
// a caller can build a Config literal naming only what it wants to
// override.
func WithDefaults(partial Config) (Config, error) {
	out := Default()
	if err := mergo.Merge(&out, partial, mergo.WithOverride); err != nil {
		return Config{}, fmt.Errorf("config: merging defaults: %w", err)
	}
	return out, nil
}

// iniConfig mirrors the [pack] section loaded from an on-disk config
// file, using the same gcfg-based pattern go-git's plumbing/format/config
// package uses for .git/config.
type iniConfig struct {
	Pack struct {
		HashAlgorithm                      string
		CacheBudgetBytes                   int64
		SpillDirectory                     string
		WorkerThreads                      int
		MaxDeltaChainDepth                 int
		LargeObjectStreamingThresholdBytes int64
	}
}

// LoadFile reads an INI-formatted configuration file (a single [pack]
// section) and merges it over Default(). Any field absent from the file
// keeps its default value.
func LoadFile(path string) (Config, error) {
	var ini iniConfig
	if err := gcfg.ReadFileInto(&ini, path); err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	partial := Config{
		CacheBudgetBytes:                   ini.Pack.CacheBudgetBytes,
		SpillDirectory:                     ini.Pack.SpillDirectory,
		WorkerThreads:                      ini.Pack.WorkerThreads,
		MaxDeltaChainDepth:                 ini.Pack.MaxDeltaChainDepth,
		LargeObjectStreamingThresholdBytes: ini.Pack.LargeObjectStreamingThresholdBytes,
	}

	switch ini.Pack.HashAlgorithm {
	case "sha256":
		partial.HashAlgorithm = hash.SHA256
	case "sha1", "":
		partial.HashAlgorithm = hash.SHA1
	default:
		return Config{}, fmt.Errorf("config: unknown hash_algorithm %q", ini.Pack.HashAlgorithm)
	}

	return WithDefaults(partial)
}

// Apply selects c.HashAlgorithm as the process-wide algorithm. It must be
// called once, before any ObjectID is constructed.
func (c Config) Apply() error {
	return hash.SetAlgorithm(c.HashAlgorithm)
}
