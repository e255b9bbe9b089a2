package writer

import (
	"os"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
)

// The Writer interface is implemented by all scene writers.
type Writer interface {
	// Write scene definition
	Write(*scene.Scene) error
}

// Write a compiled scene to a zip archive.
func WriteScene(sc *scene.Scene, filename string) error {
	zipFile, err := os.Create(filename)
	if err != nil {
		return err
	}

	err = newZipSceneWriter(zipFile, filename).Write(sc)
	if closeErr := zipFile.Close(); err == nil {
		err = closeErr
	}
	return err
}
