package writer

import (
	"archive/zip"
	"encoding/gob"
	"io"
	"time"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/log"
)

const (
	dataFile = "scene.bin"
)

type zipSceneWriter struct {
	logger log.Logger
	target io.Writer
	name   string
}

// Create a new zip scene writer
func newZipSceneWriter(target io.Writer, name string) *zipSceneWriter {
	return &zipSceneWriter{
		logger: log.New("zip writer"),
		target: target,
		name:   name,
	}
}

// Create a writer that stores compiled scenes into a zip stream.
func NewZipWriter(target io.Writer) Writer {
	return newZipSceneWriter(target, "stream")
}

// Write scene definition to zip file.
func (w *zipSceneWriter) Write(sc *scene.Scene) error {
	w.logger.Noticef("writing compressed scene to %s", w.name)
	start := time.Now()

	zw := zip.NewWriter(w.target)
	cw, err := zw.CreateHeader(&zip.FileHeader{
		Name:   dataFile,
		Method: zip.Deflate,
	})
	if err != nil {
		return err
	}

	err = gob.NewEncoder(cw).Encode(sc)
	if err != nil {
		return err
	}

	err = zw.Close()
	if err != nil {
		return err
	}

	w.logger.Noticef("compressed scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}
