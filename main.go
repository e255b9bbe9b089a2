package main

import (
	"fmt"
	"os"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	bvhFlags := []cli.Flag{
		cli.StringFlag{
			Name:  "bvh-split",
			Value: "midpoint",
			Usage: "bvh split strategy for scene meshes (midpoint or sah)",
		},
		cli.IntFlag{
			Name:  "bvh-leaf",
			Value: 4,
			Usage: "max number of triangles stored in a bvh leaf",
		},
	}

	renderFlags := append([]cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Usage: "frame width; 0 uses the scene camera resolution",
		},
		cli.IntFlag{
			Name:  "height",
			Usage: "frame height; 0 uses the scene camera resolution",
		},
		cli.IntFlag{
			Name:  "iterations, spp",
			Usage: "number of frame iterations (samples per pixel); 0 uses the scene value",
		},
		cli.IntFlag{
			Name:  "depth",
			Usage: "max number of path vertices; 0 uses the scene trace depth",
		},
		cli.IntFlag{
			Name:  "tracers",
			Value: 1,
			Usage: "number of cpu tracers sharing each frame",
		},
		cli.IntFlag{
			Name:  "workers",
			Usage: "number of workers per tracer; 0 uses one worker per cpu",
		},
		cli.Float64Flag{
			Name:  "exposure",
			Value: 1.0,
			Usage: "camera exposure for tone-mapping",
		},
		cli.StringFlag{
			Name:  "tonemap",
			Value: "clamp",
			Usage: "tone-mapping operator (clamp or reinhard)",
		},
		cli.StringFlag{
			Name:  "mis",
			Value: "balance",
			Usage: "heuristic for combining light and bsdf samples (balance or power)",
		},
		cli.BoolFlag{
			Name:  "no-aa",
			Usage: "disable primary ray jittering",
		},
	}, bvhFlags...)

	app := cli.NewApp()
	app.Name = "pathtracer"
	app.Usage = "render scenes using path tracing"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringSliceFlag{
			Name:  "debug-module",
			Value: &cli.StringSlice{},
			Usage: "enable debug logging for a single named logger (e.g. \"bvh builder\"); may be repeated",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile text scene representation into a binary compressed format",
			Description: `
Parse a scene definition from a scene text file or a wavefront obj file, build a
BVH tree to optimize ray intersection tests and package scene elements in a
format that can be directly traced.

The optimized scene data is then written to a zip archive which can be supplied
as an argument to the render command.`,
			ArgsUsage: "scene_file1.txt scene_file2.obj ...",
			Flags:     bvhFlags,
			Action:    cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "display scene information",
			ArgsUsage: "scene_file",
			Flags:     bvhFlags,
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:  "list-devices",
			Usage: "list the cpu tracers used for rendering",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "tracers",
					Value: 1,
					Usage: "number of cpu tracers sharing each frame",
				},
				cli.IntFlag{
					Name:  "workers",
					Usage: "number of workers per tracer; 0 uses one worker per cpu",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 800,
					Usage: "frame height used for the block assignment",
				},
			},
			Action: cmd.ListDevices,
		},
		{
			Name:  "render",
			Usage: "render scene",
			Description: `
Render a scene (.txt, .obj or compiled .zip) and write the tone-mapped frame to
a png file. Interrupting the render stops after the current iteration and writes
the partially converged frame.`,
			ArgsUsage: "scene_file",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Usage: "image filename for the rendered frame; defaults to the scene output name",
				},
			}, renderFlags...),
			Action: cmd.RenderFrame,
		},
		{
			Name:        "debug",
			Usage:       "render a single iteration and dump debug buffers",
			Description: `Render one iteration and write the primary ray depth, normal and accumulator buffers as png files.`,
			ArgsUsage:   "scene_file",
			Flags:       renderFlags,
			Action:      cmd.Debug,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		os.Exit(1)
	}
}
