package reader

import (
	"fmt"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/compiler"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
)

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// Read scene from file using the default compiler options.
func ReadScene(filename string) (*scene.Scene, error) {
	return ReadSceneWithOptions(filename, compiler.DefaultOptions())
}

// Read scene from file. The reader is selected based on the file extension:
//   - .txt: scene text format
//   - .obj: a single wavefront mesh
//   - .zip: a compiled scene
func ReadSceneWithOptions(filename string, options compiler.Options) (*scene.Scene, error) {
	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	var reader Reader
	switch res.Ext() {
	case ".txt", ".scene":
		reader = newTextSceneReader(options)
	case ".obj":
		reader = newWavefrontSceneReader(options)
	case ".zip":
		reader = newZipSceneReader()
	default:
		return nil, fmt.Errorf("readScene: unsupported file format %q", res.Ext())
	}
	return reader.Read(res)
}
