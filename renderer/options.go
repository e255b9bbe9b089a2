package renderer

import "github.com/NicholasMoon/Project3-CUDA-Path-Tracer/tracer/cpu"

// The operator used to map radiance to displayable values.
type Tonemapper uint8

const (
	// Clamp radiance to [0, 1].
	ClampTonemap Tonemapper = iota

	// Reinhard's global operator: v / (1 + v).
	ReinhardTonemap
)

// Lookup a tonemap operator by name.
func TonemapperFromName(name string) (Tonemapper, bool) {
	switch name {
	case "clamp":
		return ClampTonemap, true
	case "reinhard":
		return ReinhardTonemap, true
	}
	return ClampTonemap, false
}

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Number of full frame iterations (samples per pixel).
	Iterations uint32

	// Max number of path vertices.
	MaxDepth uint32

	// Number of tracers and the number of pool workers for each tracer. A
	// non-positive worker count uses one worker per cpu.
	NumTracers       int
	WorkersPerTracer int

	// Exposure and operator for tonemapping.
	Exposure float32
	Tonemap  Tonemapper

	// Heuristic for combining light and BSDF samples.
	Heuristic cpu.MISHeuristic

	// Jitter primary rays inside their pixel.
	Antialias bool

	// Debug stages attached to each tracer pipeline.
	DebugFlags cpu.DebugFlag
}
