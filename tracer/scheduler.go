package tracer

import "math"

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split frame into blocks of variable height and assign to the pool
	// of tracers using feedback collected from previous frames.
	//
	// This function returns the block height assignment for each tracer
	// in the input list.
	Schedule(tracers []Tracer, frameH uint32) []uint32
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent frames is approximately the same.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance
func NewPerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// Split frame into blocks of variable height and assign to the pool
// of tracers using feedback collected from previous frames.
//
// This function returns the block height assignment for each tracer in the
// input list. When previous frame information is available the scheduler
// uses the following formula for estimating the workload for tracer w and frame i+1:
// w_i, f_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i-1 / time,i-1)
func (sch *perfectScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	if len(tracers) == 0 {
		return nil
	}

	// If this is the first time we try to schedule, the number of tracers
	// has changed or some tracer has no usable stats, fall back to the
	// speed estimates
	speeds := make([]float64, len(tracers))
	useStats := len(sch.blockAssignment) == len(tracers)
	if useStats {
		for idx, tr := range tracers {
			stats := tr.Stats()
			if stats.BlockH == 0 || stats.BlockTime <= 0 {
				useStats = false
				break
			}
			speeds[idx] = float64(stats.BlockH) / float64(stats.BlockTime)
		}
	}
	if !useStats {
		sch.blockAssignment = make([]uint32, len(tracers))
		for idx, tr := range tracers {
			speeds[idx] = math.Max(float64(tr.SpeedEstimate()), 1e-3)
		}
	}

	return sch.distribute(speeds, frameH)
}

// Distribute frame rows proportionally to the supplied speeds. Every tracer
// receives at least one row while rows are available and any rows lost to
// rounding are assigned to the first tracer.
func (sch *perfectScheduler) distribute(speeds []float64, frameH uint32) []uint32 {
	var total float64
	for _, speed := range speeds {
		total += speed
	}

	scaler := float64(frameH) / total
	var scheduledRows uint32
	for idx, speed := range speeds {
		rows := uint32(math.Max(1.0, math.Floor(speed*scaler)))
		if scheduledRows+rows > frameH {
			rows = frameH - scheduledRows
		}
		sch.blockAssignment[idx] = rows
		scheduledRows += rows
	}

	// In case rows don't add up to the frame height append the missing ones to the first tracer
	sch.blockAssignment[0] += frameH - scheduledRows

	return sch.blockAssignment
}
