package terrain

import (
	"math"

	"terra-lod/internal/lod"
	"terra-lod/internal/mesh"
)

// Params configures terrain height synthesis.
type Params struct {
	Seed        int64   `yaml:"seed"`
	Scale       float64 `yaml:"scale"` // world units to noise domain
	BaseHeight  float64 `yaml:"base_height"`
	Amplitude   float64 `yaml:"amplitude"`
	Octaves     int     `yaml:"octaves"`
	Persistence float64 `yaml:"persistence"`
	Lacunarity  float64 `yaml:"lacunarity"`
}

// DefaultParams returns rolling-hills settings tuned for a 2000-unit area.
func DefaultParams() Params {
	return Params{
		Seed:        1337,
		Scale:       1.0 / 256.0,
		BaseHeight:  0,
		Amplitude:   60,
		Octaves:     4,
		Persistence: 0.5,
		Lacunarity:  2.0,
	}
}

// Generator synthesizes terrain geometry from seeded value noise. It holds
// no mutable state, so one generator is safe to share across workers.
type Generator struct {
	params Params
}

// NewGenerator creates a generator for the given parameters.
func NewGenerator(params Params) *Generator {
	return &Generator{params: params}
}

// Params returns the generator's parameters.
func (g *Generator) Params() Params {
	return g.params
}

// Seed returns the noise seed; it keys cached artifacts.
func (g *Generator) Seed() int64 {
	return g.params.Seed
}

// HeightAt computes the surface height at terrain-local X,Z.
func (g *Generator) HeightAt(x, z float64) float64 {
	p := g.params
	n := octaveNoise2D(x*p.Scale, z*p.Scale, p.Seed, p.Octaves, p.Persistence, p.Lacunarity)
	return p.BaseHeight + (n-0.5)*2*p.Amplitude
}

// GenerateMesh emits a (subdivisions+1)^2 height-field grid over bounds.
// Vertices are in terrain-local space; normals come from central
// differences of the height field. Pure and side-effect-free: this is the
// work closure run on background workers.
func (g *Generator) GenerateMesh(bounds lod.Bounds, subdivisions int) *mesh.Data {
	n := subdivisions
	step := float64(bounds.Size()) / float64(n)
	stepZ := float64(bounds.MaxZ-bounds.MinZ) / float64(n)

	vertices := make([]mesh.Vertex, 0, (n+1)*(n+1))
	for iz := 0; iz <= n; iz++ {
		for ix := 0; ix <= n; ix++ {
			x := float64(bounds.MinX) + float64(ix)*step
			z := float64(bounds.MinZ) + float64(iz)*stepZ
			h := g.HeightAt(x, z)

			// Central differences at the grid spacing give normals that
			// match the sampled surface at this resolution.
			hl := g.HeightAt(x-step, z)
			hr := g.HeightAt(x+step, z)
			hd := g.HeightAt(x, z-stepZ)
			hu := g.HeightAt(x, z+stepZ)

			nx := hl - hr
			ny := 2 * step
			nz := hd - hu
			inv := 1 / math.Sqrt(nx*nx+ny*ny+nz*nz)

			vertices = append(vertices, mesh.Vertex{
				Position: [3]float32{float32(x), float32(h), float32(z)},
				UV:       [2]float32{float32(ix) / float32(n), float32(iz) / float32(n)},
				Normal:   [3]float32{float32(nx * inv), float32(ny * inv), float32(nz * inv)},
			})
		}
	}

	indices := make([]uint32, 0, n*n*6)
	for iz := 0; iz < n; iz++ {
		for ix := 0; ix < n; ix++ {
			i00 := uint32(iz*(n+1) + ix)
			i10 := i00 + 1
			i01 := i00 + uint32(n) + 1
			i11 := i01 + 1

			// CCW seen from +Y
			indices = append(indices, i00, i11, i10)
			indices = append(indices, i00, i01, i11)
		}
	}

	return &mesh.Data{Vertices: vertices, Indices: indices}
}
