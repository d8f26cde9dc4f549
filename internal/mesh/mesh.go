package mesh

// Vertex is a single terrain mesh vertex.
type Vertex struct {
	Position [3]float32
	UV       [2]float32
	Normal   [3]float32
}

// Data is a CPU-side mesh artifact: the output of terrain synthesis and the
// input to the GPU upload layer.
type Data struct {
	Vertices []Vertex
	Indices  []uint32
}

// TriangleCount returns the number of triangles in the index list.
func (d *Data) TriangleCount() int {
	return len(d.Indices) / 3
}
