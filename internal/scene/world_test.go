package scene

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"terra-lod/internal/config"
	"terra-lod/internal/lod"
	"terra-lod/internal/mesh"
	"terra-lod/internal/terrain"
)

func testSettings() config.Settings {
	s := config.Default()
	s.Workers = 2
	return s
}

func newTestWorld(t *testing.T, s config.Settings) *World {
	t.Helper()
	w, err := NewWorld(s)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Close)
	return w
}

// stepUntil steps the world until cond holds or the deadline passes.
func stepUntil(t *testing.T, w *World, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		w.Step()
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("condition not reached before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWorldGeneratesMeshesForVisibleLeaves(t *testing.T) {
	s := testSettings()
	w := newTestWorld(t, s)

	tr, err := w.AddTerrain("ground", s.Bounds, mgl32.Ident4(), s.Lod, terrain.NewGenerator(s.Terrain))
	if err != nil {
		t.Fatal(err)
	}

	// Far viewer: the tree stays a single root leaf.
	w.SetViewer(mgl32.Vec3{0, 5000, 0})
	stepUntil(t, w, func() bool { return w.MeshesApplied() >= 1 })

	if tr.Tree.Root().Mesh() == nil {
		t.Fatal("root leaf has no mesh after drain")
	}

	// Approach: the root splits and its four children get meshes.
	w.SetViewer(mgl32.Vec3{500, 0, 0})
	stepUntil(t, w, func() bool {
		for c := range tr.Tree.VisibleLeaves() {
			if c.Mesh() == nil {
				return false
			}
		}
		return true
	})

	if tr.Tree.Root().Visible() {
		t.Error("split root still visible")
	}
	if got := tr.Tree.VisibleCount(); got != 4 {
		t.Errorf("visible leaves = %d, want 4", got)
	}

	// Consumer side of the dirty protocol.
	if !tr.Tree.Dirty() {
		t.Error("tree not dirty after meshes arrived")
	}
	tr.Tree.ClearDirty()
	if tr.Tree.Dirty() {
		t.Error("ClearDirty did not clear")
	}
}

// gatedGenerator blocks synthesis until released, so tests control when
// background work completes relative to tree mutations.
type gatedGenerator struct {
	release chan struct{}
	inner   *terrain.Generator
}

func (g *gatedGenerator) GenerateMesh(b lod.Bounds, subdivisions int) *mesh.Data {
	<-g.release
	return g.inner.GenerateMesh(b, subdivisions)
}

func (g *gatedGenerator) Seed() int64 { return g.inner.Seed() }

func TestSplitDiscardsInFlightParentMesh(t *testing.T) {
	s := testSettings()
	w := newTestWorld(t, s)

	gen := &gatedGenerator{
		release: make(chan struct{}),
		inner:   terrain.NewGenerator(s.Terrain),
	}
	tr, err := w.AddTerrain("ground", s.Bounds, mgl32.Ident4(), s.Lod, gen)
	if err != nil {
		t.Fatal(err)
	}

	// The root's synthesis is already in flight (blocked on the gate).
	// Split before it completes: the in-flight result is now obsolete.
	w.SetViewer(mgl32.Vec3{500, 0, 0})
	w.Step()
	if tr.Tree.Root().IsLeaf() {
		t.Fatal("setup: root did not split")
	}

	close(gen.release)
	stepUntil(t, w, func() bool { return w.MeshesApplied() >= 4 })

	if tr.Tree.Root().Mesh() != nil {
		t.Error("superseded root mesh was applied to a hidden chunk")
	}
	if got := w.MeshesApplied(); got != 4 {
		t.Errorf("meshes applied = %d, want exactly the 4 children", got)
	}

	stepUntil(t, w, func() bool { return w.PendingTasks() == 0 })
}

func TestCollapseForgetsDestroyedChunks(t *testing.T) {
	s := testSettings()
	s.Lod.MaxDepth = 3
	w := newTestWorld(t, s)

	tr, err := w.AddTerrain("ground", s.Bounds, mgl32.Ident4(), s.Lod, terrain.NewGenerator(s.Terrain))
	if err != nil {
		t.Fatal(err)
	}

	w.SetViewer(mgl32.Vec3{600, 0, 600})
	w.Step()
	deepCount := tr.Tree.ChunkCount()
	if deepCount <= 5 {
		t.Fatalf("setup: expected a multi-level split, got %d chunks", deepCount)
	}

	// Record a chunk that will be destroyed by the collapse.
	var doomed lod.ChunkID
	for c := range tr.Tree.VisibleLeaves() {
		if c.Depth() >= 2 {
			doomed = c.ID()
			break
		}
	}
	if doomed == 0 {
		t.Fatal("setup: no deep leaf found")
	}

	w.SetViewer(mgl32.Vec3{0, 100000, 0})
	w.Step()

	if w.ChunkExists(doomed) {
		t.Error("destroyed chunk still reported as existing")
	}
	if got := tr.Tree.ChunkCount(); got != 5 {
		t.Errorf("chunk count after collapse = %d, want 5", got)
	}

	// In-flight results for destroyed chunks drain away without applying.
	stepUntil(t, w, func() bool { return w.PendingTasks() == 0 })
	for c := range tr.Tree.VisibleLeaves() {
		if !c.IsLeaf() || !c.Visible() {
			t.Fatalf("inconsistent leaf after collapse: %+v", c.ID())
		}
	}
}

func TestWorldWithMeshCache(t *testing.T) {
	s := testSettings()
	s.CacheDir = t.TempDir()

	build := func() int {
		w := newTestWorld(t, s)
		_, err := w.AddTerrain("ground", s.Bounds, mgl32.Ident4(), s.Lod, terrain.NewGenerator(s.Terrain))
		if err != nil {
			t.Fatal(err)
		}
		w.SetViewer(mgl32.Vec3{0, 5000, 0})
		stepUntil(t, w, func() bool { return w.MeshesApplied() >= 1 })
		return w.MeshesApplied()
	}

	// Two separate worlds over the same cache dir: the second run serves
	// the root mesh from disk. Either path must yield an applied mesh.
	if got := build(); got < 1 {
		t.Fatalf("first run applied %d meshes", got)
	}
	if got := build(); got < 1 {
		t.Fatalf("second run applied %d meshes", got)
	}
}
