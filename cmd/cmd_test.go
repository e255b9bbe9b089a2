package cmd

import (
	"bytes"
	"flag"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/log"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/renderer"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/tracer/cpu"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

const cornellScene = "../asset/scene/reader/testdata/cornell_mesh.txt"

const boxScene = `// Light
MATERIAL 0
RGB         1 1 1
SPECEX      0
SPECRGB     0 0 0
REFL        0
REFR        0
REFRIOR     0
EMITTANCE   5

// Diffuse white
MATERIAL 1
RGB         .9 .9 .9
SPECEX      0
SPECRGB     0 0 0
REFL        0
REFR        0
REFRIOR     0
EMITTANCE   0

CAMERA
RES         20 10
FOVY        45
ITERATIONS  2
DEPTH       3
FILE        box
EYE         0 2 8
LOOKAT      0 1 0
UP          0 1 0

OBJECT 0
squareplane
material 0
TRANS       0 5 0
ROTAT       90 0 0
SCALE       3 3 1

OBJECT 1
cube
material 1
TRANS       0 1 0
ROTAT       0 30 0
SCALE       2 2 2
`

func init() {
	log.SetSink(ioutil.Discard)
}

// Build a command context holding the flags understood by the render, debug,
// compile and info commands.
func newContext(t *testing.T, args ...string) *cli.Context {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.Int("width", 0, "")
	set.Int("height", 0, "")
	set.Int("iterations", 0, "")
	set.Int("depth", 0, "")
	set.Int("tracers", 1, "")
	set.Int("workers", 1, "")
	set.Float64("exposure", 1, "")
	set.String("tonemap", "clamp", "")
	set.String("mis", "balance", "")
	set.Bool("no-aa", false, "")
	set.String("bvh-split", "midpoint", "")
	set.Int("bvh-leaf", 4, "")
	set.String("out", "", "")
	require.NoError(t, set.Parse(args))

	return cli.NewContext(cli.NewApp(), set, nil)
}

func writeBoxScene(t *testing.T) string {
	sceneFile := filepath.Join(t.TempDir(), "box.txt")
	require.NoError(t, os.WriteFile(sceneFile, []byte(boxScene), 0644))
	return sceneFile
}

func TestRenderOptions(t *testing.T) {
	ctx := newContext(t, "--width", "64", "--depth", "2", "--tonemap", "reinhard", "--mis", "power", "--no-aa", cornellScene)
	sc, err := loadScene(ctx)
	require.NoError(t, err)

	opts, err := renderOptions(ctx, sc)
	require.NoError(t, err)

	if opts.FrameW != 64 || opts.FrameH != 800 {
		t.Fatalf("expected frame size 64x800; got %dx%d", opts.FrameW, opts.FrameH)
	}
	if opts.Iterations != 5000 {
		t.Fatalf("expected scene iteration count 5000; got %d", opts.Iterations)
	}
	if opts.MaxDepth != 2 {
		t.Fatalf("expected depth flag to override scene depth; got %d", opts.MaxDepth)
	}
	if opts.Tonemap != renderer.ReinhardTonemap {
		t.Fatalf("expected reinhard tonemapper; got %d", opts.Tonemap)
	}
	if opts.Heuristic != cpu.PowerHeuristic {
		t.Fatalf("expected power heuristic; got %d", opts.Heuristic)
	}
	if opts.Antialias {
		t.Fatal("expected antialiasing to be disabled")
	}

	for _, args := range [][]string{
		{"--tonemap", "aces", cornellScene},
		{"--mis", "optimal", cornellScene},
	} {
		ctx = newContext(t, args...)
		if _, err = renderOptions(ctx, sc); err == nil {
			t.Fatalf("expected an error for args %v", args)
		}
	}

	ctx = newContext(t, "--bvh-split", "octree", cornellScene)
	if _, err = loadScene(ctx); err == nil {
		t.Fatal("expected an error for an unknown bvh split strategy")
	}
}

func TestRenderFrame(t *testing.T) {
	sceneFile := writeBoxScene(t)
	imgFile := filepath.Join(t.TempDir(), "out.png")

	ctx := newContext(t, "--tracers", "2", "--out", imgFile, sceneFile)
	require.NoError(t, RenderFrame(ctx))

	f, err := os.Open(imgFile)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Fatalf("expected a 20x10 frame; got %v", b)
	}

	if err = RenderFrame(newContext(t)); err == nil {
		t.Fatal("expected an error when the scene argument is missing")
	}
}

func TestCompileAndInspectScene(t *testing.T) {
	sceneFile := writeBoxScene(t)
	zipFile := filepath.Join(filepath.Dir(sceneFile), "box.zip")

	require.NoError(t, CompileScene(newContext(t, sceneFile, "ignored.png")))
	if _, err := os.Stat(zipFile); err != nil {
		t.Fatalf("expected compiled scene at %s; got %v", zipFile, err)
	}

	require.NoError(t, ShowSceneInfo(newContext(t, zipFile)))

	imgFile := filepath.Join(filepath.Dir(sceneFile), "compiled.png")
	require.NoError(t, RenderFrame(newContext(t, "--iterations", "1", "--out", imgFile, zipFile)))
	if _, err := os.Stat(imgFile); err != nil {
		t.Fatalf("expected rendered frame at %s; got %v", imgFile, err)
	}
}

func TestListDevices(t *testing.T) {
	require.NoError(t, ListDevices(newContext(t, "--tracers", "3", "--height", "90")))
}

func TestDebugModuleLogging(t *testing.T) {
	var buf bytes.Buffer
	log.SetSink(&buf)
	defer log.SetSink(ioutil.Discard)

	global := flag.NewFlagSet("global", flag.ContinueOnError)
	global.Bool("v", false, "")
	global.Bool("vv", false, "")
	global.Var(&cli.StringSlice{}, "debug-module", "")
	require.NoError(t, global.Parse([]string{"--debug-module", "bvh builder"}))

	app := cli.NewApp()
	ctx := cli.NewContext(app, flag.NewFlagSet("test", flag.ContinueOnError), cli.NewContext(app, global, nil))
	setupLogging(ctx)

	log.New("bvh builder").Debug("split stats")
	log.New("renderer").Debug("frame details")

	out := buf.String()
	if !strings.Contains(out, "split stats") {
		t.Fatalf("expected debug output for the selected module; got %q", out)
	}
	if strings.Contains(out, "frame details") {
		t.Fatalf("expected debug output of other modules to be suppressed; got %q", out)
	}
}
