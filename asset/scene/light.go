package scene

// An area light backed by an emissive geom.
type Light struct {
	GeomID int32

	// World-space surface area.
	Area float32

	// Mesh lights sample their triangles (indices into Scene.Triangles)
	// proportionally to area using a normalized cumulative distribution.
	Triangles   []int32
	TriangleCDF []float32
}

// Select the mesh light triangle for a uniform sample in [0, 1).
func (l *Light) PickTriangle(u float32) int32 {
	if len(l.Triangles) == 0 {
		return -1
	}

	lo, hi := 0, len(l.TriangleCDF)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if l.TriangleCDF[mid] <= u {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return l.Triangles[lo]
}
