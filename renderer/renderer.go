package renderer

import (
	"context"
	"image"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

type Renderer interface {
	// Render all frame iterations. The context is checked between
	// iterations; an iteration in flight always completes.
	Render(ctx context.Context) error

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats

	// Get the tonemapped frame.
	Frame() *image.RGBA

	// Get the linear radiance of each pixel averaged over the completed
	// iterations. Pixels are stored in row-major order.
	Radiance() []types.Vec3
}
