package scene

import (
	"log"

	"terra-lod/internal/asynctask"
	"terra-lod/internal/lod"
	"terra-lod/internal/mesh"
)

// MeshGenerator is the pluggable geometry-synthesis function. It must be
// pure and safe to call from multiple workers. Seed keys cached artifacts.
type MeshGenerator interface {
	GenerateMesh(bounds lod.Bounds, subdivisions int) *mesh.Data
	Seed() int64
}

// Terrain is one LOD-managed terrain entity.
type Terrain struct {
	Name string
	Tree *lod.Tree

	gen          MeshGenerator
	subdivisions int
}

// meshRequester adapts the world's scheduler to the quadtree's mesh hooks.
type meshRequester struct {
	world   *World
	terrain *Terrain
}

// RequestMesh spawns background synthesis for a leaf, unless work for it is
// already in flight.
func (r *meshRequester) RequestMesh(c *lod.Chunk) bool {
	id := c.ID()
	if r.world.sched.Pending(id) {
		return false
	}

	// Capture everything the worker needs by value; the chunk pointer must
	// not escape to the pool.
	bounds := c.Bounds()
	gen := r.terrain.gen
	subdivisions := r.terrain.subdivisions
	cache := r.world.cache
	seed := gen.Seed()

	return asynctask.Spawn(r.world.sched, id,
		func() *mesh.Data {
			if cache != nil {
				if d, ok := cache.Load(seed, subdivisions, bounds); ok {
					return d
				}
			}
			d := gen.GenerateMesh(bounds, subdivisions)
			if cache != nil {
				if err := cache.Store(seed, subdivisions, bounds, d); err != nil {
					log.Printf("mesh cache store failed: %v", err)
				}
			}
			return d
		},
		func(w *World, id lod.ChunkID, d *mesh.Data) {
			w.attachMesh(id, d)
		})
}

// InvalidateMesh supersedes any in-flight result for a chunk that still
// exists (it was just split); a later request starts a fresh generation.
func (r *meshRequester) InvalidateMesh(id lod.ChunkID) {
	r.world.sched.Tracker().Start(id)
}

// ForgetMesh retires a destroyed chunk's key.
func (r *meshRequester) ForgetMesh(id lod.ChunkID) {
	r.world.sched.Forget(id)
}
