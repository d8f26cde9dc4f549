package scene

import (
	"fmt"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"

	"terra-lod/internal/asynctask"
	"terra-lod/internal/config"
	"terra-lod/internal/lod"
	"terra-lod/internal/mesh"
	"terra-lod/internal/meshcache"
	"terra-lod/internal/profiling"
)

// World owns the LOD terrains and the async mesh pipeline feeding them.
//
// All World methods except the scheduler's internals run on a single owning
// goroutine. Background workers only see data captured at spawn time;
// completed meshes come back through Step's drain.
type World struct {
	pool  *asynctask.Pool
	sched *asynctask.Scheduler[lod.ChunkID, *World]
	cache *meshcache.Cache
	ids   lod.IDAllocator

	terrains []*Terrain
	viewer   mgl32.Vec3

	meshesApplied int
}

// NewWorld builds a world from settings. Call Close when done to stop the
// worker pool.
func NewWorld(cfg config.Settings) (*World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = max(runtime.NumCPU(), 1)
	}

	w := &World{
		pool: asynctask.NewPool(workers, cfg.JobQueueSize),
	}
	w.sched = asynctask.NewScheduler(w.pool, cfg.ResultQueueSize, func(w *World, id lod.ChunkID) bool {
		return w.ChunkExists(id)
	})

	if cfg.CacheDir != "" {
		cache, err := meshcache.New(cfg.CacheDir)
		if err != nil {
			w.pool.Shutdown()
			return nil, err
		}
		w.cache = cache
	}

	return w, nil
}

// AddTerrain creates a LOD tree over bounds, placed by the entity's world
// transform, and wires it into the mesh pipeline.
func (w *World) AddTerrain(name string, bounds lod.Bounds, transform mgl32.Mat4, lodCfg lod.Config, gen MeshGenerator) (*Terrain, error) {
	tr := &Terrain{
		Name:         name,
		gen:          gen,
		subdivisions: lodCfg.Subdivisions,
	}

	tree, err := lod.NewTree(lodCfg, &w.ids, &meshRequester{world: w, terrain: tr}, transform, bounds)
	if err != nil {
		return nil, fmt.Errorf("terrain %q: %w", name, err)
	}
	tr.Tree = tree

	w.terrains = append(w.terrains, tr)
	return tr, nil
}

// SetViewer updates the viewer's world position, polled by the next Step.
func (w *World) SetViewer(pos mgl32.Vec3) {
	w.viewer = pos
}

// Viewer returns the current viewer position.
func (w *World) Viewer() mgl32.Vec3 {
	return w.viewer
}

// Step runs one frame: every tree evaluates split/collapse against the
// viewer, then completed mesh results are drained and applied. Returns the
// number of drained results.
func (w *World) Step() int {
	defer profiling.Track("scene.Step")()
	for _, tr := range w.terrains {
		tr.Tree.Update(w.viewer)
	}
	return w.sched.DrainAndApply(w)
}

// ChunkExists reports whether any terrain still holds the chunk. Used by
// the scheduler's apply-time existence check.
func (w *World) ChunkExists(id lod.ChunkID) bool {
	for _, tr := range w.terrains {
		if tr.Tree.Contains(id) {
			return true
		}
	}
	return false
}

func (w *World) attachMesh(id lod.ChunkID, d *mesh.Data) {
	for _, tr := range w.terrains {
		if tr.Tree.AttachMesh(id, d) {
			w.meshesApplied++
			return
		}
	}
}

// Terrains returns the world's terrain entities.
func (w *World) Terrains() []*Terrain {
	return w.terrains
}

// PendingTasks returns the number of chunks with mesh work in flight.
func (w *World) PendingTasks() int {
	return w.sched.PendingCount()
}

// MeshesApplied returns how many generated meshes have been adopted.
func (w *World) MeshesApplied() int {
	return w.meshesApplied
}

// ChunkCount sums live chunks across terrains.
func (w *World) ChunkCount() int {
	n := 0
	for _, tr := range w.terrains {
		n += tr.Tree.ChunkCount()
	}
	return n
}

// VisibleCount sums visible leaves across terrains.
func (w *World) VisibleCount() int {
	n := 0
	for _, tr := range w.terrains {
		n += tr.Tree.VisibleCount()
	}
	return n
}

// Close stops the background workers.
func (w *World) Close() {
	w.pool.Shutdown()
}
