package types

import "github.com/go-gl/mathgl/mgl32"

// A column-major 4x4 matrix.
type Mat4 mgl32.Mat4

// Identity matrix.
func Ident4() Mat4 {
	return Mat4(mgl32.Ident4())
}

// Translation matrix.
func Translate4(v Vec3) Mat4 {
	return Mat4(mgl32.Translate3D(v[0], v[1], v[2]))
}

// Scale matrix.
func Scale4(v Vec3) Mat4 {
	return Mat4(mgl32.Scale3D(v[0], v[1], v[2]))
}

// Rotation matrix from euler angles (in degrees). Rotations are composed as
// Rx * Ry * Rz.
func Rotate4(angles Vec3) Mat4 {
	rx := mgl32.HomogRotate3DX(mgl32.DegToRad(angles[0]))
	ry := mgl32.HomogRotate3DY(mgl32.DegToRad(angles[1]))
	rz := mgl32.HomogRotate3DZ(mgl32.DegToRad(angles[2]))
	return Mat4(rx.Mul4(ry).Mul4(rz))
}

// Multiply with another matrix.
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	return Mat4(mgl32.Mat4(m).Mul4(mgl32.Mat4(m2)))
}

// Multiply with a 4 component vector.
func (m Mat4) Mul4x1(v Vec4) Vec4 {
	return Vec4(mgl32.Mat4(m).Mul4x1(mgl32.Vec4(v)))
}

// Transform a point (w = 1) and clip the result to 3 components.
func (m Mat4) MulPoint(p Vec3) Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// Transform a direction (w = 0) and clip the result to 3 components.
func (m Mat4) MulDir(d Vec3) Vec3 {
	return m.Mul4x1(d.Vec4(0)).Vec3()
}

// Invert matrix. A singular matrix inverts to the zero matrix.
func (m Mat4) Inv() Mat4 {
	return Mat4(mgl32.Mat4(m).Inv())
}

// Transpose matrix.
func (m Mat4) Transpose() Mat4 {
	return Mat4(mgl32.Mat4(m).Transpose())
}

// Check whether every pair of matrix entries differs by at most threshold.
func (m Mat4) ApproxEqual(m2 Mat4, threshold float32) bool {
	return mgl32.Mat4(m).ApproxFuncEqual(mgl32.Mat4(m2), func(a, b float32) bool {
		return mgl32.Abs(a-b) <= threshold
	})
}
