package lod

import (
	"fmt"
	"iter"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"terra-lod/internal/mesh"
	"terra-lod/internal/profiling"
)

// Tree is a viewer-driven LOD quadtree over one terrain entity.
//
// Chunks live in a flat arena and reference their children by index. All
// Tree methods are owning-goroutine only; completed mesh results reach the
// tree through AttachMesh, invoked from the scheduler's drain step on that
// same goroutine.
type Tree struct {
	cfg       Config
	ids       *IDAllocator
	requester MeshRequester
	entity    mgl32.Mat4 // owning entity's world transform

	chunks []Chunk
	free   []int
	byID   map[ChunkID]int
	root   int

	dirty bool
}

// NewTree creates a tree with a single root leaf covering bounds, placed by
// the entity's world transform, and requests the root's mesh.
func NewTree(cfg Config, ids *IDAllocator, requester MeshRequester, entityTransform mgl32.Mat4, bounds Bounds) (*Tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	t := &Tree{
		cfg:       cfg,
		ids:       ids,
		requester: requester,
		entity:    entityTransform,
		byID:      make(map[ChunkID]int),
	}

	root := Chunk{
		id:      ids.Next(),
		bounds:  bounds,
		depth:   0,
		visible: true,
	}
	t.place(&root)
	t.root = t.alloc(root)
	t.markDirty()
	t.requestMeshes()

	return t, nil
}

// Update runs one evaluation pass against the viewer's world position:
// splits near leaves, collapses far subtrees, and requests meshes for
// leaves that lack one. Call once per frame from the owning goroutine.
func (t *Tree) Update(viewer mgl32.Vec3) {
	defer profiling.Track("lod.TreeUpdate")()
	t.splitPass(viewer)
	t.collapsePass(viewer)
	t.requestMeshes()
}

// splitPass subdivides leaves the viewer has approached. Fresh children go
// back on the worklist so a close viewer descends several levels in one
// pass.
func (t *Tree) splitPass(viewer mgl32.Vec3) {
	worklist := make([]int, 0, len(t.chunks))
	for i := range t.chunks {
		if t.chunks[i].id != 0 {
			worklist = append(worklist, i)
		}
	}

	for len(worklist) > 0 {
		idx := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		c := &t.chunks[idx]
		if c.children != nil || c.depth >= t.cfg.MaxDepth {
			continue
		}

		distance := viewer.Sub(c.center).Len()
		if distance < t.cfg.SplitDistances[c.depth] {
			worklist = append(worklist, t.split(idx)...)
		}
	}
}

// split subdivides the leaf at idx into four children and hides it.
// Returns the children's arena indices.
func (t *Tree) split(idx int) []int {
	parent := t.chunks[idx] // copy: alloc below may grow the arena

	childIndices := make([]int, 0, 4)
	var children [4]int
	for i := range 4 {
		child := Chunk{
			id:      t.ids.Next(),
			bounds:  parent.bounds.Quadrant(i),
			depth:   parent.depth + 1,
			visible: true,
		}
		t.place(&child)
		children[i] = t.alloc(child)
		childIndices = append(childIndices, children[i])
	}

	p := &t.chunks[idx]
	p.children = &children
	p.visible = false
	p.mesh = nil // evicted while hidden; re-requested after a collapse
	if t.requester != nil {
		t.requester.InvalidateMesh(p.id)
	}

	t.markDirty()
	return childIndices
}

// collapsePass merges subtrees whose descendant leaves are all beyond the
// collapse threshold for the subtree root's depth. The depth-0 root is
// never collapsed.
func (t *Tree) collapsePass(viewer mgl32.Vec3) {
	var candidates []int
	for i := range t.chunks {
		c := &t.chunks[i]
		if c.id == 0 || c.children == nil || c.depth == 0 {
			continue
		}
		if t.allLeavesBeyond(i, viewer, t.cfg.CollapseDistances[c.depth]) {
			candidates = append(candidates, i)
		}
	}

	// Shallowest first: collapsing an ancestor destroys any deeper
	// candidate, which is then skipped below.
	sort.Slice(candidates, func(i, j int) bool {
		return t.chunks[candidates[i]].depth < t.chunks[candidates[j]].depth
	})

	for _, idx := range candidates {
		c := &t.chunks[idx]
		if c.id == 0 || c.children == nil {
			continue
		}
		t.collapse(idx)
	}
}

// allLeavesBeyond reports whether every descendant leaf of the chunk at idx
// is farther from the viewer than threshold.
func (t *Tree) allLeavesBeyond(idx int, viewer mgl32.Vec3, threshold float32) bool {
	stack := []int{idx}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		c := &t.chunks[i]
		if c.children != nil {
			stack = append(stack, c.children[:]...)
			continue
		}
		if viewer.Sub(c.center).Len() <= threshold {
			return false
		}
	}
	return true
}

// collapse discards the entire subtree below idx and restores the chunk as
// a visible leaf. Its mesh was evicted when it split, so the request scan
// regenerates it.
func (t *Tree) collapse(idx int) {
	c := &t.chunks[idx]

	stack := append([]int(nil), c.children[:]...)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		d := &t.chunks[i]
		if d.children != nil {
			stack = append(stack, d.children[:]...)
		}
		t.release(i)
	}

	c.children = nil
	c.visible = true
	t.markDirty()
}

// requestMeshes issues one mesh request per visible leaf that has no mesh.
// The requester skips leaves with work already in flight.
func (t *Tree) requestMeshes() {
	if t.requester == nil {
		return
	}
	for i := range t.chunks {
		c := &t.chunks[i]
		if c.id != 0 && c.children == nil && c.mesh == nil {
			t.requester.RequestMesh(c)
		}
	}
}

// AttachMesh installs a generated mesh on the chunk with the given ID and
// marks the tree dirty. Returns false if the chunk no longer exists or is
// no longer a leaf.
func (t *Tree) AttachMesh(id ChunkID, data *mesh.Data) bool {
	idx, ok := t.byID[id]
	if !ok {
		return false
	}
	c := &t.chunks[idx]
	if c.children != nil {
		return false
	}
	c.mesh = data
	t.markDirty()
	return true
}

// Contains reports whether a chunk with the given ID currently exists.
func (t *Tree) Contains(id ChunkID) bool {
	_, ok := t.byID[id]
	return ok
}

// SetTransform replaces the owning entity's world transform and recomputes
// every chunk's placement and cached center.
func (t *Tree) SetTransform(entityTransform mgl32.Mat4) {
	t.entity = entityTransform
	for i := range t.chunks {
		if t.chunks[i].id != 0 {
			t.place(&t.chunks[i])
		}
	}
	t.markDirty()
}

// VisibleLeaves yields every chunk currently intended for rendering. The
// sequence is restartable and bounded by the arena size; chunk pointers are
// valid until the next mutating call.
func (t *Tree) VisibleLeaves() iter.Seq[*Chunk] {
	return func(yield func(*Chunk) bool) {
		for i := range t.chunks {
			c := &t.chunks[i]
			if c.id == 0 || !c.visible {
				continue
			}
			if c.children != nil {
				panic(fmt.Sprintf("lod: chunk %d visible with children", c.id))
			}
			if !yield(c) {
				return
			}
		}
	}
}

// Dirty reports whether the visible set or chunk transforms changed since
// the last ClearDirty. The tree only ever sets the flag.
func (t *Tree) Dirty() bool {
	return t.dirty
}

// ClearDirty is called by the consumer (the GPU upload step) after it has
// rebuilt its instance data.
func (t *Tree) ClearDirty() {
	t.dirty = false
}

// ChunkCount returns the number of live chunks in the arena.
func (t *Tree) ChunkCount() int {
	return len(t.byID)
}

// VisibleCount returns the number of visible leaves.
func (t *Tree) VisibleCount() int {
	n := 0
	for i := range t.chunks {
		if t.chunks[i].id != 0 && t.chunks[i].visible {
			n++
		}
	}
	return n
}

// Root returns the root chunk.
func (t *Tree) Root() *Chunk {
	return &t.chunks[t.root]
}

// Chunk returns the chunk with the given ID, or nil.
func (t *Tree) Chunk(id ChunkID) *Chunk {
	idx, ok := t.byID[id]
	if !ok {
		return nil
	}
	return &t.chunks[idx]
}

func (t *Tree) markDirty() {
	t.dirty = true
}

// place computes a chunk's world transform and cached center from its
// bounds and the entity transform.
func (t *Tree) place(c *Chunk) {
	cx, cz := c.bounds.Center()
	half := c.bounds.Size() / 2

	local := mgl32.Translate3D(cx, 0, cz).Mul4(mgl32.Scale3D(half, t.cfg.ChunkHeight, half))
	c.transform = t.entity.Mul4(local)
	c.center = mgl32.TransformCoordinate(mgl32.Vec3{cx, 0, cz}, t.entity)
}

// alloc stores a chunk in the arena, reusing a freed slot when possible.
func (t *Tree) alloc(c Chunk) int {
	var idx int
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
		t.chunks[idx] = c
	} else {
		idx = len(t.chunks)
		t.chunks = append(t.chunks, c)
	}
	t.byID[c.id] = idx
	return idx
}

// release retires the chunk at idx and returns its slot to the free list.
func (t *Tree) release(idx int) {
	c := &t.chunks[idx]
	if t.requester != nil {
		t.requester.ForgetMesh(c.id)
	}
	delete(t.byID, c.id)
	*c = Chunk{}
	t.free = append(t.free, idx)
}
