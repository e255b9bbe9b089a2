package reader

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/compiler"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/compiler/input"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/log"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

// Loads wavefront geometry into a single mesh. Groups and objects are merged;
// materials are assigned by the scene that references the mesh so material
// libraries are ignored.
type wavefrontMeshReader struct {
	logger log.Logger

	mesh *input.Mesh

	// List of vertices, normals and uv coords.
	vertexList []types.Vec3
	normalList []types.Vec3
	uvList     []types.Vec2

	errStack *errorStack
}

// Create a new wavefront mesh reader. Errors are annotated with the frames
// of the supplied error stack.
func newWavefrontMeshReader(errStack *errorStack) *wavefrontMeshReader {
	if errStack == nil {
		errStack = &errorStack{}
	}
	return &wavefrontMeshReader{
		logger:     log.New("wavefront mesh reader"),
		vertexList: make([]types.Vec3, 0),
		normalList: make([]types.Vec3, 0),
		uvList:     make([]types.Vec2, 0),
		errStack:   errStack,
	}
}

// Load a mesh from a wavefront resource.
func (r *wavefrontMeshReader) Load(res *asset.Resource) (*input.Mesh, error) {
	r.logger.Infof(`loading mesh from "%s"`, res.Path())
	start := time.Now()

	r.mesh = input.NewMesh(res.Path())
	err := r.parse(res)
	if err != nil {
		return nil, err
	}

	if len(r.mesh.Primitives) == 0 {
		return nil, r.errStack.emitError(res.Path(), 0, "mesh contains no polygons")
	}

	r.logger.Infof("loaded %d triangles in %d ms", len(r.mesh.Primitives), time.Since(start).Nanoseconds()/1e6)
	return r.mesh, nil
}

// Parse wavefront object format.
func (r *wavefrontMeshReader) parse(res *asset.Resource) error {
	var lineNum int = 0

	// The main obj file may include (call) several other object files. Each
	// object file contains 1-based indices (when they are positive). By
	// tracking the current vertex/uv/normal offsets we can apply them
	// while parsing faces to select the correct coordinates.
	relVertexOffset := len(r.vertexList)
	relUvOffset := len(r.uvList)
	relNormalOffset := len(r.normalList)

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call":
			if len(lineTokens) != 2 {
				return r.errStack.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument; got %d`, lineTokens[0], len(lineTokens)-1)
			}

			r.errStack.pushFrame(fmt.Sprintf("referenced from %s:%d [%s]", res.Path(), lineNum, lineTokens[0]))

			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.errStack.emitError(res.Path(), lineNum, err.Error())
			}

			err = r.parse(incRes)
			incRes.Close()
			if err != nil {
				return err
			}
			r.errStack.popFrame()
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.errStack.emitError(res.Path(), lineNum, err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "vn":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.errStack.emitError(res.Path(), lineNum, err.Error())
			}
			r.normalList = append(r.normalList, v)
		case "vt":
			v, err := parseVec2(lineTokens)
			if err != nil {
				return r.errStack.emitError(res.Path(), lineNum, err.Error())
			}
			r.uvList = append(r.uvList, v)
		case "f":
			primList, err := r.parseFace(lineTokens, relVertexOffset, relUvOffset, relNormalOffset)
			if err != nil {
				return r.errStack.emitError(res.Path(), lineNum, err.Error())
			}

			r.mesh.MarkBBoxDirty()
			r.mesh.Primitives = append(r.mesh.Primitives, primList...)
		case "mtllib", "usemtl", "g", "o", "s":
		default:
			r.logger.Debugf("%s:%d: skipping unsupported statement %q", res.Path(), lineNum, lineTokens[0])
		}
	}

	if err := scanner.Err(); err != nil {
		return r.errStack.emitError(res.Path(), lineNum, err.Error())
	}

	return nil
}

// Parse face definition. Each face definitions consists of 3 arguments,
// one for each vertex. Each one of the vertex arguments is comprised of
// 1, 2 or 3 args separated by a slash character. The following formats are
// supported:
// - vertexIndex
// - vertexIndex/uvIndex
// - vertexIndex//normalIndex
// - vertexIndex/uvIndex/normalIndex
//
// Indices start from 1 and may be negative to indicate
// an offset off the end of the vertex/uv list.
//
// This method only works with triangular/quad faces and will return an error if a
// face with more than 4 vertices is encountered.
func (r *wavefrontMeshReader) parseFace(lineTokens []string, relVertexOffset, relUvOffset, relNormalOffset int) ([]*input.Primitive, error) {
	if len(lineTokens) < 4 || len(lineTokens) > 5 {
		return nil, fmt.Errorf(`unsupported syntax for "f"; expected 3 arguments for triangular face or 4 arguments for a quad face; got %d. Select the triangulation option in your exporter`, len(lineTokens)-1)
	}

	var vertices [4]types.Vec3
	var normals [4]types.Vec3
	var uv [4]types.Vec2
	var vOffset int
	var err error
	expIndices := 0
	hasNormals := false
	for arg := 0; arg < len(lineTokens)-1; arg++ {
		vTokens := strings.Split(lineTokens[arg+1], "/")

		// The first arg defines the format for the following args
		if arg == 0 {
			expIndices = len(vTokens)
		} else if len(vTokens) != expIndices {
			return nil, fmt.Errorf("expected each face argument to contain %d indices; arg %d contains %d indices", expIndices, arg, len(vTokens))
		}

		// Faces must at least define a vertex coord
		if vTokens[0] == "" {
			return nil, fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		vOffset, err = selectFaceCoordIndex(vTokens[0], len(r.vertexList), relVertexOffset)
		if err != nil {
			return nil, fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}
		vertices[arg] = r.vertexList[vOffset]

		// Parse UV coords if specified
		if expIndices > 1 && vTokens[1] != "" {
			vOffset, err = selectFaceCoordIndex(vTokens[1], len(r.uvList), relUvOffset)
			if err != nil {
				return nil, fmt.Errorf("could not parse tex coord for face argument %d: %s", arg, err.Error())
			}
			uv[arg] = r.uvList[vOffset]
		}

		// Parse normal coords if specified
		if expIndices > 2 && vTokens[2] != "" {
			vOffset, err = selectFaceCoordIndex(vTokens[2], len(r.normalList), relNormalOffset)
			if err != nil {
				return nil, fmt.Errorf("could not parse normal coord for face argument %d: %s", arg, err.Error())
			}
			normals[arg] = r.normalList[vOffset]
			hasNormals = true
		}
	}

	// If no normals are available generate them from the vertices
	if !hasNormals {
		faceNormal := vertices[1].Sub(vertices[0]).Cross(vertices[2].Sub(vertices[0])).Normalize()
		for i := range normals {
			normals[i] = faceNormal
		}
	}

	// Assemble vertices into one or two primitives depending on whether we are parsing a triangular or a quad face
	primitives := make([]*input.Primitive, 0, 2)
	indiceList := [][3]int{{0, 1, 2}}
	if len(lineTokens) == 5 {
		indiceList = append(indiceList, [3]int{0, 2, 3})
	}

	var triVerts [3]types.Vec3
	var triNormals [3]types.Vec3
	var triUVs [3]types.Vec2
	for _, indices := range indiceList {
		for triIndex, selectIndex := range indices {
			triVerts[triIndex] = vertices[selectIndex]
			triNormals[triIndex] = normals[selectIndex]
			triUVs[triIndex] = uv[selectIndex]
		}
		primitives = append(primitives, input.NewPrimitive(triVerts, triNormals, triUVs))
	}

	return primitives, nil
}

// Given an index for a face coord type (vertex, normal, tex) calculate the
// proper offset into the coord list. Wavefront format can also use negative
// indices to reference elements from the end of the coord list.
func selectFaceCoordIndex(indexToken string, coordListLen int, relOffset int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var vOffset int = 0
	if index < 0 {
		vOffset = coordListLen + int(index)
	} else {
		vOffset = relOffset + int(index-1)
	}
	if vOffset < 0 || vOffset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return vOffset, nil
}

// Renders a standalone wavefront file: the mesh is placed at the origin with
// a diffuse material, lit by a white background and framed by the camera.
type wavefrontSceneReader struct {
	logger  log.Logger
	options compiler.Options
}

func newWavefrontSceneReader(options compiler.Options) *wavefrontSceneReader {
	return &wavefrontSceneReader{
		logger:  log.New("wavefront scene reader"),
		options: options,
	}
}

// Read scene definition.
func (r *wavefrontSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())

	mesh, err := newWavefrontMeshReader(nil).Load(sceneRes)
	if err != nil {
		return nil, err
	}

	rawScene := input.NewScene()
	rawScene.Background = types.Splat3(1)

	mat := input.NewMaterial(0)
	mat.Color = types.Splat3(0.7)
	rawScene.Materials = append(rawScene.Materials, mat)

	obj := input.NewObject(0)
	obj.Type = input.ObjectMesh
	obj.MaterialID = 0
	obj.MeshIndex = 0
	rawScene.Objects = append(rawScene.Objects, obj)
	rawScene.Meshes = append(rawScene.Meshes, mesh)

	// Frame the mesh bbox
	bbox := mesh.BBox()
	center := bbox[0].Add(bbox[1]).Mul(0.5)
	diag := bbox[1].Sub(bbox[0]).Len()
	rawScene.Camera.Look = center
	rawScene.Camera.Eye = center.Add(types.XYZ(0, 0, 1.5*diag))
	rawScene.Camera.FOV = 30

	return compiler.Compile(rawScene, r.options)
}
