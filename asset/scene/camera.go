package scene

import (
	"fmt"
	"math"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

// The camera type describes a pinhole or thin lens camera. The image plane
// sits one unit in front of the eye (or FocalDistance units when depth of
// field is enabled) and spans PixelLength world units per pixel.
type Camera struct {
	Resolution [2]uint32

	Position types.Vec3
	LookAt   types.Vec3
	Up       types.Vec3

	// Orthonormal camera basis derived by Setup.
	View  types.Vec3
	Right types.Vec3

	// Horizontal and vertical field of view in degrees.
	FOV types.Vec2

	PixelLength types.Vec2

	// Thin lens parameters. A zero lens radius disables depth of field.
	FocalDistance float32
	LensRadius    float32
}

// Create a new camera. The vertical field of view follows the scene file
// convention where the image plane half-height equals tan(fovy).
func NewCamera(position, lookAt, up types.Vec3, fovy float32, width, height uint32) *Camera {
	c := &Camera{
		Position:      position,
		LookAt:        lookAt,
		Up:            up,
		FOV:           types.XY(0, fovy),
		FocalDistance: 1,
	}
	c.Setup(width, height)
	return c
}

// Recalculate the camera basis and pixel footprint for a new resolution.
func (c *Camera) Setup(width, height uint32) {
	c.Resolution = [2]uint32{width, height}

	c.View = c.LookAt.Sub(c.Position).Normalize()
	c.Right = c.View.Cross(c.Up).Normalize()
	c.Up = c.Right.Cross(c.View)

	yScaled := math.Tan(float64(c.FOV[1]) * math.Pi / 180)
	xScaled := yScaled * float64(width) / float64(height)
	c.FOV[0] = float32(math.Atan(xScaled) * 180 / math.Pi)

	c.PixelLength = types.XY(
		float32(2*xScaled/float64(width)),
		float32(2*yScaled/float64(height)),
	)
}

// Generate a primary ray through the image plane point (px, py) measured in
// pixels from the top-left corner. lensSample is a point on the unit disk
// used to offset the ray origin when LensRadius > 0.
func (c *Camera) Ray(px, py float32, lensSample types.Vec2) types.Ray {
	w, h := float32(c.Resolution[0]), float32(c.Resolution[1])
	dir := c.View.
		Add(c.Right.Mul(c.PixelLength[0] * (px - 0.5*w))).
		Sub(c.Up.Mul(c.PixelLength[1] * (py - 0.5*h))).
		Normalize()

	if c.LensRadius <= 0 {
		return types.NewRay(c.Position, dir)
	}

	// Intersect the pinhole ray with the plane of focus and aim a ray from
	// the sampled lens point through it.
	ft := c.FocalDistance / dir.Dot(c.View)
	focus := c.Position.Add(dir.Mul(ft))
	origin := c.Position.
		Add(c.Right.Mul(lensSample[0] * c.LensRadius)).
		Add(c.Up.Mul(lensSample[1] * c.LensRadius))
	return types.NewRay(origin, focus.Sub(origin))
}

func (c *Camera) String() string {
	return fmt.Sprintf(
		"Camera:\n eye    : (%3.3f, %3.3f, %3.3f)\n lookAt : (%3.3f, %3.3f, %3.3f)\n fov    : (%3.2f, %3.2f)\n res    : %dx%d",
		c.Position[0], c.Position[1], c.Position[2],
		c.LookAt[0], c.LookAt[1], c.LookAt[2],
		c.FOV[0], c.FOV[1],
		c.Resolution[0], c.Resolution[1],
	)
}
