package tracer

import "time"

type ChangeType uint8

const (
	UpdateScene ChangeType = iota
	UpdateCamera
)

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// Frame dimensions.
	FrameW uint32
	FrameH uint32

	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// The 1-based iteration index. Tracers reset the accumulated radiance
	// for the block rows when the first iteration is requested.
	Iteration uint32

	// A channel to signal on block completion with the number of completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Tracer statistics.
type Stats struct {
	// The rendered block height
	BlockH uint32

	// The time for rendering this block (in nanoseconds)
	BlockTime int64

	// The time spent applying pending changes before rendering the block.
	UpdateTime time.Duration

	// The number of active paths entering each bounce of the last block.
	PathsPerBounce []int
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Shutdown and cleanup tracer.
	Close()

	// Get the tracers computation speed estimate compared to a
	// baseline (single worker) implementation.
	SpeedEstimate() float32

	// Setup the tracer. The accumulation buffer holds 3 floats per pixel
	// and is shared by all tracers; each tracer only writes the rows of the
	// blocks assigned to it.
	Setup(frameW, frameH uint32, accumBuffer []float32) error

	// Enqueue block request.
	Enqueue(BlockRequest)

	// Append a change to the tracer's update buffer.
	AppendChange(ChangeType, interface{})

	// Apply all pending changes from the update buffer.
	ApplyPendingChanges() error

	// Retrieve last frame statistics.
	Stats() *Stats
}
