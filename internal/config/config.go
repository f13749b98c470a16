// Package config loads this analyzer's tunables from the environment
// (spec §5 "Resource caps"), mirroring the .env + os.Getenv idiom the
// rest of this codebase's database clients use.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sqllineage/analyzer/internal/walker"
)

func init() {
	_ = godotenv.Load()
}

// Config holds every env-configurable budget and capacity this analyzer
// exposes. Zero-value fields are filled in by Load with spec §4.4/§5's
// stated defaults.
type Config struct {
	Walker walker.Budget

	// InitialNodeCapacity/InitialEdgeCapacity size a new LineageGraph's
	// backing slices (spec §5: "node/edge capacities grow geometrically
	// (x2) from configurable initial sizes, defaults 1024 nodes, 2048
	// edges"). The slices themselves grow automatically via append; these
	// values are advisory capacity hints a caller may pass to make(...,
	// 0, cap) before handing scripts to the walker.
	InitialNodeCapacity int
	InitialEdgeCapacity int

	// BatchConcurrency is read from LINEAGE_BATCH_CONCURRENCY (0 when
	// unset). The batch driver does not read it: its permit count comes
	// from MemoryPressure alone.
	BatchConcurrency int
}

// Load reads LINEAGE_* environment variables, falling back to spec
// defaults for anything unset or invalid.
func Load() Config {
	return Config{
		Walker: walker.Budget{
			MaxWallTime:  envDuration("LINEAGE_MAX_WALL_TIME", 30*time.Second),
			MaxFragments: envInt("LINEAGE_MAX_FRAGMENTS", 50000),
		},
		InitialNodeCapacity: envInt("LINEAGE_INITIAL_NODE_CAPACITY", 1024),
		InitialEdgeCapacity: envInt("LINEAGE_INITIAL_EDGE_CAPACITY", 2048),
		BatchConcurrency:    envInt("LINEAGE_BATCH_CONCURRENCY", 0),
	}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
