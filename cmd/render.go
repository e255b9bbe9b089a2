package cmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/compiler"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/compiler/bvh"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene/reader"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/renderer"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/tracer"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/tracer/cpu"
	"github.com/urfave/cli"
)

// Render a scene and write the tonemapped frame to a png file. An interrupt
// stops rendering after the current iteration and the partial frame is
// still written.
func RenderFrame(ctx *cli.Context) error {
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

	r, err := renderer.NewDefault(sc, tracer.NewPerfectScheduler(), opts)
	if err != nil {
		return err
	}
	defer r.Close()

	renderCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = r.Render(renderCtx)
	switch {
	case err == renderer.ErrInterrupted:
		logger.Warningf("render interrupted; keeping %d completed iterations", r.Stats().Iterations)
	case err != nil:
		return err
	}

	logger.Noticef("frame statistics\n%s", r.Stats().String())

	imgFile := ctx.String("out")
	if imgFile == "" {
		imgFile = fmt.Sprintf("%s.%dsamp.png", sc.RenderState.ImageName, r.Stats().Iterations)
	}
	return writeFrame(r.Frame(), imgFile)
}

// Read and compile the scene passed as the first argument.
func loadScene(ctx *cli.Context) (*scene.Scene, error) {
	return loadSceneFile(ctx, ctx.Args().First())
}

// Read and compile a scene file using the bvh flags of the command.
func loadSceneFile(ctx *cli.Context, sceneFile string) (*scene.Scene, error) {
	opts := compiler.DefaultOptions()
	if name := ctx.String("bvh-split"); name != "" {
		splitter, ok := bvh.SplitterByName(name)
		if !ok {
			return nil, fmt.Errorf("unsupported bvh split strategy %q", name)
		}
		opts.Splitter = splitter
	}
	if v := ctx.Int("bvh-leaf"); v > 0 {
		opts.MaxLeafItems = v
	}

	return reader.ReadSceneWithOptions(sceneFile, opts)
}

// Build renderer options from the scene render state and any overriding
// command line flags.
func renderOptions(ctx *cli.Context, sc *scene.Scene) (renderer.Options, error) {
	opts := renderer.Options{
		FrameW:           sc.Camera.Resolution[0],
		FrameH:           sc.Camera.Resolution[1],
		Iterations:       sc.RenderState.Iterations,
		MaxDepth:         sc.RenderState.TraceDepth,
		NumTracers:       ctx.Int("tracers"),
		WorkersPerTracer: ctx.Int("workers"),
		Exposure:         float32(ctx.Float64("exposure")),
		Antialias:        !ctx.Bool("no-aa"),
	}

	if v := ctx.Int("width"); v > 0 {
		opts.FrameW = uint32(v)
	}
	if v := ctx.Int("height"); v > 0 {
		opts.FrameH = uint32(v)
	}
	if v := ctx.Int("iterations"); v > 0 {
		opts.Iterations = uint32(v)
	}
	if v := ctx.Int("depth"); v > 0 {
		opts.MaxDepth = uint32(v)
	}

	var ok bool
	if opts.Tonemap, ok = renderer.TonemapperFromName(ctx.String("tonemap")); !ok {
		return opts, fmt.Errorf("unsupported tonemap operator %q", ctx.String("tonemap"))
	}
	if opts.Heuristic, ok = cpu.MISHeuristicFromName(ctx.String("mis")); !ok {
		return opts, fmt.Errorf("unsupported MIS heuristic %q", ctx.String("mis"))
	}

	return opts, nil
}

func writeFrame(frame image.Image, imgFile string) error {
	start := time.Now()
	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	err = png.Encode(f, frame)
	if err != nil {
		return fmt.Errorf("error encoding png file: %s", err.Error())
	}

	logger.Noticef("wrote frame to %s in %d ms", imgFile, time.Since(start).Nanoseconds()/1e6)
	return nil
}
