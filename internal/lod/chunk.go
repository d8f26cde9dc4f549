package lod

import (
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"terra-lod/internal/mesh"
)

// ChunkID is a stable identity for one quadtree node. IDs are allocated
// from a shared counter and never reused, so a retired chunk's in-flight
// work can never be mistaken for a newer chunk occupying the same arena
// slot.
type ChunkID uint64

// IDAllocator hands out ChunkIDs. Share one allocator across every tree
// whose chunks feed the same scheduler.
type IDAllocator struct {
	next atomic.Uint64
}

// Next returns a fresh, never-before-issued ID.
func (a *IDAllocator) Next() ChunkID {
	return ChunkID(a.next.Add(1))
}

// Chunk is one node of the LOD quadtree. Leaves (no children) are the only
// chunks that render and the only ones eligible for mesh generation.
type Chunk struct {
	id        ChunkID
	bounds    Bounds
	depth     int
	center    mgl32.Vec3 // world space, cached for distance checks
	transform mgl32.Mat4 // world-space placement for this chunk's geometry
	visible   bool
	children  *[4]int // arena indices, nil for leaves
	mesh      *mesh.Data
}

func (c *Chunk) ID() ChunkID           { return c.id }
func (c *Chunk) Bounds() Bounds        { return c.bounds }
func (c *Chunk) Depth() int            { return c.depth }
func (c *Chunk) Center() mgl32.Vec3    { return c.center }
func (c *Chunk) Transform() mgl32.Mat4 { return c.transform }
func (c *Chunk) Visible() bool         { return c.visible }
func (c *Chunk) IsLeaf() bool          { return c.children == nil }
func (c *Chunk) Mesh() *mesh.Data      { return c.mesh }

// MeshRequester is the quadtree's hook into the async mesh pipeline.
//
// RequestMesh spawns geometry synthesis for a leaf that has no mesh and
// none in flight; it reports whether work was actually enqueued.
// InvalidateMesh discards any in-flight result for a chunk that still
// exists but whose current request is obsolete (it was just split).
// ForgetMesh retires a destroyed chunk's key permanently.
type MeshRequester interface {
	RequestMesh(c *Chunk) bool
	InvalidateMesh(id ChunkID)
	ForgetMesh(id ChunkID)
}
