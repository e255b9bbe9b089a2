package renderer

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/log"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/tracer"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/tracer/cpu"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

// Display gamma applied after tonemapping.
const gamma = 2.2

// A renderer that splits each frame iteration into row blocks and traces
// them in parallel using a set of cpu tracers.
type defaultRenderer struct {
	logger log.Logger

	scene     *scene.Scene
	scheduler tracer.BlockScheduler
	tracers   []tracer.Tracer
	options   Options

	// Shared accumulation buffer (3 floats per pixel). Tracers write
	// disjoint rows.
	accumBuffer []float32

	// Number of completed iterations.
	iterations uint32

	// Block heights assigned to each tracer for the last iteration.
	blockAssignments []uint32

	doneChan chan uint32
	errChan  chan error

	stats FrameStats
}

// Create a new renderer that traces the scene with opts.NumTracers cpu
// tracers.
func NewDefault(sc *scene.Scene, scheduler tracer.BlockScheduler, opts Options) (Renderer, error) {
	numTracers := opts.NumTracers
	if numTracers <= 0 {
		numTracers = 1
	}

	pipelineOpts := cpu.PipelineOptions{
		MaxDepth:   opts.MaxDepth,
		Heuristic:  opts.Heuristic,
		Antialias:  opts.Antialias,
		DebugFlags: opts.DebugFlags,
	}

	tracers := make([]tracer.Tracer, 0, numTracers)
	for index := 0; index < numTracers; index++ {
		tr, err := cpu.NewTracer(fmt.Sprintf("cpu-%d", index), opts.WorkersPerTracer, cpu.DefaultPipeline(pipelineOpts))
		if err != nil {
			for _, tr := range tracers {
				tr.Close()
			}
			return nil, err
		}
		tracers = append(tracers, tr)
	}

	return newRenderer(sc, scheduler, tracers, opts)
}

// Attach a set of tracers to a new renderer and upload the scene to them.
// On error all tracers are closed.
func newRenderer(sc *scene.Scene, scheduler tracer.BlockScheduler, tracers []tracer.Tracer, opts Options) (*defaultRenderer, error) {
	r := &defaultRenderer{
		logger:    log.New("renderer"),
		scene:     sc,
		scheduler: scheduler,
		tracers:   tracers,
		options:   opts,
	}

	err := r.init()
	if err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

func (r *defaultRenderer) init() error {
	if r.scene == nil {
		return ErrSceneNotDefined
	}
	if r.scene.Camera == nil {
		return ErrCameraNotDefined
	}
	if len(r.tracers) == 0 {
		return ErrNoTracers
	}
	if r.options.FrameW == 0 || r.options.FrameH == 0 {
		return ErrInvalidFrameSize
	}
	if r.scheduler == nil {
		r.scheduler = tracer.NewPerfectScheduler()
	}

	r.scene.Camera.Setup(r.options.FrameW, r.options.FrameH)
	r.accumBuffer = make([]float32, r.options.FrameW*r.options.FrameH*3)
	r.doneChan = make(chan uint32, len(r.tracers))
	r.errChan = make(chan error, len(r.tracers))

	for _, tr := range r.tracers {
		err := tr.Setup(r.options.FrameW, r.options.FrameH, r.accumBuffer)
		if err != nil {
			return fmt.Errorf("renderer: could not setup tracer %s: %s", tr.Id(), err.Error())
		}
		tr.AppendChange(tracer.UpdateScene, r.scene)
		tr.AppendChange(tracer.UpdateCamera, r.scene.Camera)
	}

	r.logger.Infof("attached %d tracers for a %dx%d frame", len(r.tracers), r.options.FrameW, r.options.FrameH)
	return nil
}

// Shutdown renderer and any attached tracer.
func (r *defaultRenderer) Close() {
	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// Get render statistics.
func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}

// Render all iterations. The context is only checked between iterations so
// every completed iteration stays in the accumulation buffer.
func (r *defaultRenderer) Render(ctx context.Context) error {
	start := time.Now()
	r.iterations = 0
	r.logger.Noticef("rendering %d iterations", r.options.Iterations)

	for iteration := uint32(1); iteration <= r.options.Iterations; iteration++ {
		select {
		case <-ctx.Done():
			r.logger.Warningf("interrupted after %d iterations", r.iterations)
			return ErrInterrupted
		default:
		}

		err := r.renderIteration(iteration)
		if err != nil {
			return err
		}
		r.iterations = iteration
		r.stats.Iterations = iteration
		r.stats.RenderTime = time.Since(start)

		if iteration%100 == 0 {
			r.logger.Infof("completed %d/%d iterations", iteration, r.options.Iterations)
		}
	}

	r.logger.Noticef("rendered %d iterations in %d ms", r.iterations, time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Split the frame into blocks, trace them in parallel and wait for all
// tracers to finish. The first tracer error is returned once every
// dispatched block has completed.
func (r *defaultRenderer) renderIteration(iteration uint32) error {
	start := time.Now()
	r.blockAssignments = r.scheduler.Schedule(r.tracers, r.options.FrameH)

	var blockY uint32
	var pending int
	for index, tr := range r.tracers {
		blockH := r.blockAssignments[index]
		if blockH == 0 {
			continue
		}

		tr.Enqueue(tracer.BlockRequest{
			FrameW:    r.options.FrameW,
			FrameH:    r.options.FrameH,
			BlockY:    blockY,
			BlockH:    blockH,
			Iteration: iteration,
			DoneChan:  r.doneChan,
			ErrChan:   r.errChan,
		})
		blockY += blockH
		pending++
	}

	var err error
	for ; pending > 0; pending-- {
		select {
		case <-r.doneChan:
		case trErr := <-r.errChan:
			if err == nil {
				err = trErr
			}
		}
	}
	if err != nil {
		return err
	}

	r.stats.IterationTime = time.Since(start)
	r.stats.Tracers = make([]TracerStat, len(r.tracers))
	for index, tr := range r.tracers {
		blockH := r.blockAssignments[index]
		r.stats.Tracers[index] = TracerStat{
			Id:           tr.Id(),
			IsPrimary:    index == 0,
			BlockH:       blockH,
			FramePercent: 100 * float32(blockH) / float32(r.options.FrameH),
			RenderTime:   time.Duration(tr.Stats().BlockTime),
		}
	}

	return nil
}

// Get the linear radiance of each pixel averaged over the completed
// iterations.
func (r *defaultRenderer) Radiance() []types.Vec3 {
	numPixels := len(r.accumBuffer) / 3
	out := make([]types.Vec3, numPixels)
	if r.iterations == 0 {
		return out
	}

	scale := 1 / float32(r.iterations)
	for index := range out {
		offset := index * 3
		out[index] = types.XYZ(
			r.accumBuffer[offset]*scale,
			r.accumBuffer[offset+1]*scale,
			r.accumBuffer[offset+2]*scale,
		)
	}
	return out
}

// Get the tonemapped and gamma corrected frame.
func (r *defaultRenderer) Frame() *image.RGBA {
	frameW, frameH := int(r.options.FrameW), int(r.options.FrameH)
	img := image.NewRGBA(image.Rect(0, 0, frameW, frameH))
	for index, l := range r.Radiance() {
		img.SetRGBA(index%frameW, index/frameW, color.RGBA{
			R: tonemap(l[0], r.options.Exposure, r.options.Tonemap),
			G: tonemap(l[1], r.options.Exposure, r.options.Tonemap),
			B: tonemap(l[2], r.options.Exposure, r.options.Tonemap),
			A: 255,
		})
	}
	return img
}

// Map a radiance value to an 8-bit display value.
func tonemap(v, exposure float32, op Tonemapper) uint8 {
	if exposure > 0 {
		v *= exposure
	}
	if !(v > 0) {
		// Also catches NaN
		return 0
	}

	switch op {
	case ReinhardTonemap:
		v = min(v, math.MaxFloat32)
		v = v / (1 + v)
	default:
		v = min(v, 1)
	}

	return uint8(math.Pow(float64(v), 1/gamma)*255 + 0.5)
}
