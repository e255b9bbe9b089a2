package types

// A ray with a unit-length direction. The inverse direction and per-axis
// direction sign (0 = positive, 1 = negative) are precomputed for slab tests.
type Ray struct {
	Origin Vec3
	Dir    Vec3
	InvDir Vec3
	Sign   [3]uint8
}

// Create a ray. The supplied direction is normalized.
func NewRay(origin, dir Vec3) Ray {
	r := Ray{Origin: origin}
	r.SetDir(dir)
	return r
}

// Update the ray direction and its derived fields.
func (r *Ray) SetDir(dir Vec3) {
	r.Dir = dir.Normalize()
	for i := 0; i < 3; i++ {
		r.InvDir[i] = 1.0 / r.Dir[i]
		if r.InvDir[i] < 0 {
			r.Sign[i] = 1
		} else {
			r.Sign[i] = 0
		}
	}
}

// Get the point at distance t along the ray.
func (r *Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}
