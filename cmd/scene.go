package cmd

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene/writer"
	"github.com/urfave/cli"
)

// Compile scene to binary format.
func CompileScene(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() == 0 {
		return errors.New("missing scene file argument")
	}

	for idx := 0; idx < ctx.NArg(); idx++ {
		sceneFile := ctx.Args().Get(idx)
		ext := filepath.Ext(sceneFile)
		if ext != ".txt" && ext != ".obj" {
			logger.Warningf("skipping unsupported file %s", sceneFile)
			continue
		}

		logger.Noticef("parsing and compiling scene: %s", sceneFile)
		sc, err := loadSceneFile(ctx, sceneFile)
		if err != nil {
			return err
		}

		// Display compiled scene info
		logger.Noticef("scene information:\n%s", sc.Stats())

		zipFile := strings.TrimSuffix(sceneFile, ext) + ".zip"
		err = writer.WriteScene(sc, zipFile)
		if err != nil {
			return err
		}
		logger.Noticef("wrote compiled scene to %s", zipFile)
	}

	return nil
}

// Display compiled scene info.
func ShowSceneInfo(ctx *cli.Context) error {
	setupLogging(ctx)

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	sc, err := loadScene(ctx)
	if err != nil {
		return err
	}

	// Display compiled scene info
	logger.Noticef("scene information:\n%s", sc.Stats())
	logger.Noticef(
		"render settings: %dx%d, %d iterations, trace depth %d, output %q",
		sc.Camera.Resolution[0], sc.Camera.Resolution[1],
		sc.RenderState.Iterations, sc.RenderState.TraceDepth, sc.RenderState.ImageName,
	)

	return nil
}
