package cpu

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/log"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/tracer"
	"github.com/alitto/pond/v2"
)

// Paths handed to a single pool task by the parallel stages.
const pathsPerTask = 256

type Tracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The tracer id.
	id string

	// The worker pool that runs the integrator stages.
	pool    pond.Pool
	workers int

	// A buffer for queuing updates. Updates are grouped by type and
	// latest updates always overwrite the previous ones.
	updateBuffer map[tracer.ChangeType]interface{}

	// A channel for receiving block requests from the renderer.
	blockReqChan chan tracer.BlockRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for last rendered block.
	stats *tracer.Stats

	// The tracer rendering pipeline.
	pipeline *Pipeline

	// The scene data and the camera used for primary rays.
	sceneData *sceneData
	camera    *scene.Camera

	// Frame dims and the shared accumulation buffer (3 floats per pixel).
	frameW      uint32
	frameH      uint32
	accumBuffer []float32

	// Per block wavefront state. Slices are reused between blocks.
	paths         []pathSegment
	numActive     int
	intersections []intersection
	lightRays     []misLightRay
	lightHits     []misLightIntersection

	// Frame-sized RGB buffer used by the debug stages.
	debugBuffer []float32
}

// Create a new cpu tracer that runs its pipeline on a pool of workers. A
// non-positive workers value uses one worker per cpu.
func NewTracer(id string, workers int, pipeline *Pipeline) (*Tracer, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if pipeline == nil {
		return nil, ErrNoPipeline
	}

	tr := &Tracer{
		logger:       log.New(fmt.Sprintf("cpu tracer (%s)", id)),
		id:           id,
		workers:      workers,
		blockReqChan: make(chan tracer.BlockRequest, 1),
		updateBuffer: make(map[tracer.ChangeType]interface{}, 0),
		stats:        &tracer.Stats{},
		pipeline:     pipeline,
	}

	return tr, nil
}

// Get tracer id.
func (tr *Tracer) Id() string {
	return tr.id
}

// Speed estimate relative to a single worker.
func (tr *Tracer) SpeedEstimate() float32 {
	return float32(tr.workers)
}

// Setup the tracer for the given frame size and start the worker.
func (tr *Tracer) Setup(frameW, frameH uint32, accumBuffer []float32) error {
	tr.Lock()
	defer tr.Unlock()

	if frameW == 0 || frameH == 0 {
		return ErrInvalidFrameSize
	}
	if len(accumBuffer) < int(frameW*frameH*3) {
		return ErrAccumBufferTooSmall
	}

	tr.frameW = frameW
	tr.frameH = frameH
	tr.accumBuffer = accumBuffer
	tr.debugBuffer = nil

	if tr.pool == nil {
		tr.pool = pond.NewPool(tr.workers)
	}

	// Start worker
	if tr.closeChan == nil {
		tr.startWorker()
	}

	tr.logger.Debugf("setup %dx%d frame with %d workers", frameW, frameH, tr.workers)
	return nil
}

// Shutdown and cleanup tracer.
func (tr *Tracer) Close() {
	tr.stopWorker()

	tr.Lock()
	defer tr.Unlock()
	tr.cleanup()
}

// Signal the worker to exit and wait for it. The lock is released before
// signaling so that a worker waiting to commit updates can make progress.
func (tr *Tracer) stopWorker() {
	tr.Lock()
	closeChan := tr.closeChan
	tr.closeChan = nil
	tr.Unlock()

	if closeChan == nil {
		return
	}
	closeChan <- struct{}{}

	// wait for worker to ack close and shutdown channel
	<-closeChan
	close(closeChan)
	tr.wg.Wait()
}

// Cleanup tracer. This method is meant to be called while holding tr.Lock()
func (tr *Tracer) cleanup() {
	if tr.pool != nil {
		tr.pool.StopAndWait()
		tr.pool = nil
	}

	tr.sceneData = nil
	tr.camera = nil
	tr.paths = nil
	tr.intersections = nil
	tr.lightRays = nil
	tr.lightHits = nil
}

// Enqueue block request.
func (tr *Tracer) Enqueue(blockReq tracer.BlockRequest) {
	select {
	case tr.blockReqChan <- blockReq:
	default:
		// drop the request if worker is not listening
		tr.logger.Error("request processor did not receive block request")
		if blockReq.ErrChan != nil {
			blockReq.ErrChan <- ErrTracerBusy
		}
	}
}

// Append a change to the tracer's update buffer.
func (tr *Tracer) AppendChange(changeType tracer.ChangeType, data interface{}) {
	tr.Lock()
	defer tr.Unlock()
	tr.updateBuffer[changeType] = data
}

// Apply all pending changes from the update buffer.
func (tr *Tracer) ApplyPendingChanges() error {
	tr.Lock()
	defer tr.Unlock()
	return tr.commitUpdates()
}

// Retrieve last frame statistics.
func (tr *Tracer) Stats() *tracer.Stats {
	return tr.stats
}

// Commit queued changes. This method is meant to be called while holding tr.Lock()
func (tr *Tracer) commitUpdates() error {
	// The scene must be applied before the camera as it may carry its own.
	if data, exists := tr.updateBuffer[tracer.UpdateScene]; exists {
		sc, ok := data.(*scene.Scene)
		if !ok || sc == nil {
			return fmt.Errorf("cpu tracer: unsupported scene update payload %T", data)
		}
		tr.sceneData = newSceneData(sc)
		if sc.Camera != nil {
			tr.camera = sc.Camera
		}
	}
	if data, exists := tr.updateBuffer[tracer.UpdateCamera]; exists {
		camera, ok := data.(*scene.Camera)
		if !ok || camera == nil {
			return fmt.Errorf("cpu tracer: unsupported camera update payload %T", data)
		}
		tr.camera = camera
	}

	for changeType := range tr.updateBuffer {
		if changeType != tracer.UpdateScene && changeType != tracer.UpdateCamera {
			return fmt.Errorf("cpu tracer: unsupported update type %d", changeType)
		}
	}

	tr.updateBuffer = make(map[tracer.ChangeType]interface{}, 0)
	return nil
}

// Spawn a go-routine to process block render requests.
func (tr *Tracer) startWorker() {
	// Worker already running
	if tr.closeChan != nil {
		return
	}

	closeChan := make(chan struct{}, 0)
	tr.closeChan = closeChan
	readyChan := make(chan struct{}, 0)
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		var blockReq tracer.BlockRequest
		var startTime time.Time
		var err error
		close(readyChan)
		for {
			select {
			case blockReq = <-tr.blockReqChan:
				startTime = time.Now()

				// Apply any pending changes
				tr.Lock()
				if len(tr.updateBuffer) != 0 {
					err = tr.commitUpdates()
					tr.stats.UpdateTime = time.Since(startTime)
				}
				tr.Unlock()
				if err != nil {
					blockReq.ErrChan <- err
					err = nil
					continue
				}

				// Render block and reply with our completion status
				err = tr.renderBlock(&blockReq)
				if err != nil {
					blockReq.ErrChan <- err
					err = nil
					continue
				}

				// Update stats
				tr.stats.BlockH = blockReq.BlockH
				tr.stats.BlockTime = time.Since(startTime).Nanoseconds()

				blockReq.DoneChan <- blockReq.BlockH
			case <-closeChan:
				// Ack close
				closeChan <- struct{}{}
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

// Render block.
func (tr *Tracer) renderBlock(blockReq *tracer.BlockRequest) error {
	var err error

	if tr.sceneData == nil {
		return ErrNoSceneData
	}
	if tr.camera == nil {
		return ErrNoCamera
	}
	if blockReq.FrameW != tr.frameW || blockReq.FrameH != tr.frameH {
		return ErrInvalidFrameSize
	}
	if blockReq.BlockY+blockReq.BlockH > tr.frameH {
		return ErrInvalidBlock
	}
	if blockReq.BlockH == 0 {
		return nil
	}

	// Execute pipeline
	stages := make([]PipelineStage, 0, 3+len(tr.pipeline.PostProcess))
	if blockReq.Iteration <= 1 && tr.pipeline.Reset != nil {
		stages = append(stages, tr.pipeline.Reset)
	}
	stages = append(stages, tr.pipeline.PrimaryRayGenerator, tr.pipeline.Integrator)
	stages = append(stages, tr.pipeline.PostProcess...)

	var elapsed time.Duration
	for _, stage := range stages {
		if stage == nil {
			continue
		}
		elapsed, err = stage(tr, blockReq)
		if err != nil {
			return err
		}
		tr.logger.Debugf("stage completed in %d ms", elapsed.Milliseconds())
	}

	return nil
}

// Split [0, count) into chunks and process them on the worker pool. The
// call returns once every chunk has been processed, making it a barrier
// between integrator stages.
func (tr *Tracer) parallelFor(count int, fn func(start, end int)) error {
	if count == 0 {
		return nil
	}
	if count <= pathsPerTask || tr.pool == nil {
		fn(0, count)
		return nil
	}

	group := tr.pool.NewGroup()
	for start := 0; start < count; start += pathsPerTask {
		end := min(start+pathsPerTask, count)
		group.Submit(func() {
			fn(start, end)
		})
	}
	return group.Wait()
}

// Ensure the wavefront buffers can hold count paths.
func (tr *Tracer) resizeBuffers(count int) {
	if cap(tr.paths) < count {
		tr.paths = make([]pathSegment, count)
		tr.intersections = make([]intersection, count)
		tr.lightRays = make([]misLightRay, count)
		tr.lightHits = make([]misLightIntersection, count)
	}
	tr.paths = tr.paths[:count]
	tr.intersections = tr.intersections[:count]
	tr.lightRays = tr.lightRays[:count]
	tr.lightHits = tr.lightHits[:count]
}
