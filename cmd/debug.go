package cmd

import (
	"context"
	"errors"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/renderer"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/tracer"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/tracer/cpu"
	"github.com/urfave/cli"
)

// Render a single iteration with a single tracer and dump the primary hit
// depth and normal buffers, the accumulator and the active paths per bounce.
func Debug(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	opts, err := renderOptions(ctx, sc)
	if err != nil {
		return err
	}
	opts.Iterations = 1
	opts.NumTracers = 1
	opts.DebugFlags = cpu.PrimaryRayIntersectionDepth | cpu.PrimaryRayIntersectionNormals |
		cpu.ActivePaths | cpu.Accumulator

	r, err := renderer.NewDefault(sc, tracer.NewPerfectScheduler(), opts)
	if err != nil {
		logger.Error(err)
		return err
	}
	defer r.Close()

	err = r.Render(context.Background())
	if err != nil {
		logger.Error(err)
		return err
	}

	logger.Noticef("frame statistics\n%s", r.Stats().String())
	return nil
}
