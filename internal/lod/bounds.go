package lod

import "fmt"

// Bounds is the axis-aligned XZ rectangle a chunk covers, in the terrain's
// local space.
type Bounds struct {
	MinX float32 `yaml:"min_x"`
	MaxX float32 `yaml:"max_x"`
	MinZ float32 `yaml:"min_z"`
	MaxZ float32 `yaml:"max_z"`
}

// Size returns the edge length along X (chunks are square).
func (b Bounds) Size() float32 {
	return b.MaxX - b.MinX
}

// Center returns the midpoint of the rectangle.
func (b Bounds) Center() (x, z float32) {
	return (b.MinX + b.MaxX) / 2, (b.MinZ + b.MaxZ) / 2
}

// Quadrant returns one quarter of b, bisected at the midpoint on each axis.
// childIndex: 0=bottom-left, 1=bottom-right, 2=top-left, 3=top-right.
func (b Bounds) Quadrant(childIndex int) Bounds {
	xMid := (b.MinX + b.MaxX) / 2
	zMid := (b.MinZ + b.MaxZ) / 2

	switch childIndex {
	case 0:
		return Bounds{b.MinX, xMid, b.MinZ, zMid}
	case 1:
		return Bounds{xMid, b.MaxX, b.MinZ, zMid}
	case 2:
		return Bounds{b.MinX, xMid, zMid, b.MaxZ}
	case 3:
		return Bounds{xMid, b.MaxX, zMid, b.MaxZ}
	default:
		panic(fmt.Sprintf("lod: invalid child index %d", childIndex))
	}
}
