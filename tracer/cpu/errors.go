package cpu

import "errors"

var (
	ErrNoSceneData         = errors.New("cpu tracer: no scene data uploaded")
	ErrNoCamera            = errors.New("cpu tracer: no camera defined")
	ErrNoPipeline          = errors.New("cpu tracer: no pipeline specified")
	ErrInvalidFrameSize    = errors.New("cpu tracer: invalid frame size")
	ErrInvalidBlock        = errors.New("cpu tracer: block exceeds frame bounds")
	ErrAccumBufferTooSmall = errors.New("cpu tracer: accumulation buffer too small for frame")
	ErrTracerBusy          = errors.New("cpu tracer: worker did not accept block request")
)
