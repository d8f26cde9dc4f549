package meshcache

import (
	"encoding/gob"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"terra-lod/internal/lod"
	"terra-lod/internal/mesh"
)

// Cache is an on-disk store of generated chunk meshes, compressed with
// zstd. Synthesis parameters are part of the key, so a seed or resolution
// change never serves stale geometry.
//
// Load and Store are safe to call from pool workers; entries are written to
// distinct files named by key hash.
type Cache struct {
	dir string
}

// New creates (if needed) the cache directory and returns a cache over it.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mesh cache dir: %w", err)
	}
	return &Cache{dir: dir}, nil
}

func (c *Cache) path(seed int64, subdivisions int, b lod.Bounds) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%d|%v|%v|%v|%v", seed, subdivisions, b.MinX, b.MaxX, b.MinZ, b.MaxZ)
	return filepath.Join(c.dir, fmt.Sprintf("%016x.mesh.zst", h.Sum64()))
}

// Load returns the cached mesh for the given synthesis key, or false on a
// miss. Unreadable or corrupt entries are treated as misses.
func (c *Cache) Load(seed int64, subdivisions int, b lod.Bounds) (*mesh.Data, bool) {
	f, err := os.Open(c.path(seed, subdivisions, b))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, false
	}
	defer dec.Close()

	var d mesh.Data
	if err := gob.NewDecoder(dec).Decode(&d); err != nil {
		return nil, false
	}
	return &d, true
}

// Store writes a mesh under the given synthesis key, replacing any
// previous entry.
func (c *Cache) Store(seed int64, subdivisions int, b lod.Bounds, d *mesh.Data) error {
	path := c.path(seed, subdivisions, b)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(enc).Encode(d); err != nil {
		enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	return enc.Close()
}
