package cpu

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"time"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/tracer"
	"github.com/olekukonko/tablewriter"
)

// Debug flags.
type DebugFlag uint16

const (
	Off                         DebugFlag = 0
	PrimaryRayIntersectionDepth DebugFlag = 1 << iota
	PrimaryRayIntersectionNormals
	ActivePaths
	Accumulator
)

// An alias for functions that can be used as part of the rendering pipeline.
type PipelineStage func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error)

// The list of pluggable of stages that are used to render the scene.
type Pipeline struct {
	// Reset the tracer state. This stage is executed when the first
	// iteration of a frame is requested.
	Reset PipelineStage

	// This stage is executed whenever the tracer generates a new set
	// of primary rays.
	PrimaryRayGenerator PipelineStage

	// This stage implements an integrator function to trace the primary
	// rays and add their contribution into the accumulation buffer.
	Integrator PipelineStage

	// A set of post-processing stages that are executed after the
	// integrator.
	PostProcess []PipelineStage
}

// Options for the default pipeline.
type PipelineOptions struct {
	// Max number of path vertices.
	MaxDepth uint32

	// Heuristic for combining light and BSDF samples.
	Heuristic MISHeuristic

	// Jitter primary rays inside their pixel.
	Antialias bool

	DebugFlags DebugFlag
}

func DefaultPipeline(opts PipelineOptions) *Pipeline {
	pipeline := &Pipeline{
		Reset:               ClearAccumulator(),
		PrimaryRayGenerator: PerspectiveCamera(opts.Antialias),
		Integrator:          MonteCarloIntegrator(opts.DebugFlags, opts.MaxDepth, opts.Heuristic),
		PostProcess:         make([]PipelineStage, 0),
	}

	if opts.DebugFlags&Accumulator == Accumulator {
		pipeline.PostProcess = append(pipeline.PostProcess, DebugAccumulator("debug-accumulator.png"))
	}

	return pipeline
}

// Clear the accumulator rows covered by the block.
func ClearAccumulator() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()
		from := blockReq.BlockY * blockReq.FrameW * 3
		to := (blockReq.BlockY + blockReq.BlockH) * blockReq.FrameW * 3
		clear(tr.accumBuffer[from:to])
		return time.Since(start), nil
	}
}

// Use a perspective (optionally thin lens) camera for the primary ray
// generation stage.
func PerspectiveCamera(antialias bool) PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()
		err := tr.generatePrimaryRays(blockReq, antialias)
		return time.Since(start), err
	}
}

// Use a montecarlo pathtracer implementation.
func MonteCarloIntegrator(debugFlags DebugFlag, maxDepth uint32, heuristic MISHeuristic) PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		var err error

		start := time.Now()
		tr.stats.PathsPerBounce = tr.stats.PathsPerBounce[:0]
		tr.setBounceBudget(maxDepth)

		var bounce uint32
		for bounce = 0; bounce < maxDepth && tr.numActive > 0; bounce++ {
			tr.stats.PathsPerBounce = append(tr.stats.PathsPerBounce, tr.numActive)

			if err = tr.rayIntersectionQuery(); err != nil {
				return time.Since(start), err
			}

			if bounce == 0 {
				if debugFlags&PrimaryRayIntersectionDepth == PrimaryRayIntersectionDepth {
					tr.debugPrimaryIntersectionDepth()
					err = dumpDebugBuffer(tr.debugBuffer, blockReq.FrameW, blockReq.FrameH, "debug-primary-intersection-depth.png")
					if err != nil {
						return time.Since(start), err
					}
				}

				if debugFlags&PrimaryRayIntersectionNormals == PrimaryRayIntersectionNormals {
					tr.debugPrimaryIntersectionNormals()
					err = dumpDebugBuffer(tr.debugBuffer, blockReq.FrameW, blockReq.FrameH, "debug-primary-intersection-normals.png")
					if err != nil {
						return time.Since(start), err
					}
				}
			}

			// Shade misses and emissive hits; prepare direct light samples
			if err = tr.shadeMisses(); err != nil {
				return time.Since(start), err
			}
			if err = tr.shadeHits(blockReq.Iteration, bounce, heuristic); err != nil {
				return time.Since(start), err
			}

			// Process occlusion rays and accumulate emissive samples for non occluded paths
			if err = tr.rayIntersectionTest(); err != nil {
				return time.Since(start), err
			}
			if err = tr.accumulateEmissiveSamples(heuristic); err != nil {
				return time.Since(start), err
			}

			// Pick the next ray for each surviving path
			if err = tr.sampleBsdf(blockReq.Iteration, bounce); err != nil {
				return time.Since(start), err
			}

			tr.compactPaths(false)
		}

		// Flush any path still in flight
		tr.compactPaths(true)

		if debugFlags&ActivePaths == ActivePaths {
			tr.logger.Notice("active paths per bounce\n" + fmtPathsPerBounce(tr.stats.PathsPerBounce))
		}

		return time.Since(start), nil
	}
}

// Dump the accumulated radiance (averaged by the iteration count) to a png file.
func DebugAccumulator(imgFile string) PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()
		scale := 1 / float32(max(blockReq.Iteration, 1))
		buf := make([]float32, len(tr.accumBuffer))
		for index, v := range tr.accumBuffer {
			buf[index] = v * scale
		}
		return time.Since(start), dumpDebugBuffer(buf, blockReq.FrameW, blockReq.FrameH, imgFile)
	}
}

// Render the paths per bounce statistics as a table.
func fmtPathsPerBounce(pathsPerBounce []int) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Bounce", "Active paths"})
	for bounce, count := range pathsPerBounce {
		table.Append([]string{fmt.Sprint(bounce), fmt.Sprint(count)})
	}
	table.Render()
	return buf.String()
}

// Ensure the debug buffer can hold the whole frame.
func (tr *Tracer) ensureDebugBuffer() {
	if size := int(tr.frameW * tr.frameH * 3); len(tr.debugBuffer) != size {
		tr.debugBuffer = make([]float32, size)
	}
}

// Write the primary hit distance, normalized by the furthest hit, into the
// debug buffer.
func (tr *Tracer) debugPrimaryIntersectionDepth() {
	tr.ensureDebugBuffer()

	var maxDist float32
	for index := 0; index < tr.numActive; index++ {
		if isect := &tr.intersections[index]; isect.hit() {
			maxDist = max(maxDist, isect.Dist)
		}
	}
	for index := 0; index < tr.numActive; index++ {
		var v float32
		if isect := &tr.intersections[index]; isect.hit() && maxDist > 0 {
			v = 1 - isect.Dist/maxDist
		}
		offset := tr.paths[index].pixelIndex * 3
		tr.debugBuffer[offset], tr.debugBuffer[offset+1], tr.debugBuffer[offset+2] = v, v, v
	}
}

// Write the primary hit normals, mapped to [0, 1], into the debug buffer.
func (tr *Tracer) debugPrimaryIntersectionNormals() {
	tr.ensureDebugBuffer()

	for index := 0; index < tr.numActive; index++ {
		offset := tr.paths[index].pixelIndex * 3
		isect := &tr.intersections[index]
		for c := uint32(0); c < 3; c++ {
			if isect.hit() {
				tr.debugBuffer[offset+c] = 0.5*isect.Normal[c] + 0.5
			} else {
				tr.debugBuffer[offset+c] = 0
			}
		}
	}
}

// Encode a linear RGB float buffer as a png image. Values are clamped to [0, 1].
func dumpDebugBuffer(buf []float32, frameW, frameH uint32, imgFile string) error {
	if len(buf) < int(frameW*frameH*3) {
		return fmt.Errorf("cpu tracer: debug buffer holds %d values; expected %d", len(buf), frameW*frameH*3)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(frameW), int(frameH)))
	for y := 0; y < int(frameH); y++ {
		for x := 0; x < int(frameW); x++ {
			offset := (y*int(frameW) + x) * 3
			img.SetRGBA(x, y, color.RGBA{
				R: toByte(buf[offset]),
				G: toByte(buf[offset+1]),
				B: toByte(buf[offset+2]),
				A: 255,
			})
		}
	}

	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, img)
}

func toByte(v float32) uint8 {
	if math.IsNaN(float64(v)) {
		return 0
	}
	return uint8(min(max(v, 0), 1)*255 + 0.5)
}
