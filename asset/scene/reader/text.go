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
)

type blockType uint8

const (
	noBlock blockType = iota
	materialBlock
	cameraBlock
	objectBlock
)

// Parses the keyword based scene text format. The format consists of blocks
// separated by blank lines:
//
//	MATERIAL <id>      RGB, SPECEX, SPECRGB, REFL, REFR, REFRIOR, EMITTANCE, BSDF, ROUGHNESS
//	CAMERA             RES, FOVY, ITERATIONS, DEPTH, FILE, EYE, LOOKAT, UP, FOCALDIST, LENSRADIUS
//	OBJECT <id>        sphere|cube|squareplane, material <id>, TRANS, ROTAT, SCALE
//	OBJ_OBJECT <id> <path>   material <id>, TRANS, ROTAT, SCALE
//
// Lines starting with "//" or "#" are comments. Material and object ids
// must be sequential starting from 0.
type textSceneReader struct {
	logger  log.Logger
	options compiler.Options

	// The parsed scene.
	rawScene *input.Scene

	// Currently open block.
	block       blockType
	curMaterial *input.Material
	curObject   *input.Object
	blockLine   int

	cameraDefined bool

	// Meshes loaded so far indexed by their resource path.
	meshIndex map[string]int

	errStack *errorStack
}

// Create a new text scene reader.
func newTextSceneReader(options compiler.Options) *textSceneReader {
	return &textSceneReader{
		logger:    log.New("text scene reader"),
		options:   options,
		rawScene:  input.NewScene(),
		meshIndex: make(map[string]int),
		errStack:  &errorStack{},
	}
}

// Read scene definition.
func (r *textSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	rawScene, err := r.ReadRaw(sceneRes)
	if err != nil {
		return nil, err
	}

	return compiler.Compile(rawScene, r.options)
}

// Parse scene definition without compiling it.
func (r *textSceneReader) ReadRaw(sceneRes *asset.Resource) (*input.Scene, error) {
	r.logger.Noticef(`parsing scene from "%s"`, sceneRes.Path())
	start := time.Now()

	err := r.parse(sceneRes)
	if err != nil {
		return nil, err
	}

	if !r.cameraDefined {
		return nil, r.errStack.emitError(sceneRes.Path(), 0, "scene does not define a CAMERA block")
	}

	r.logger.Noticef(
		"parsed scene in %d ms (%d materials, %d objects, %d meshes)",
		time.Since(start).Nanoseconds()/1e6,
		len(r.rawScene.Materials), len(r.rawScene.Objects), len(r.rawScene.Meshes),
	)
	return r.rawScene, nil
}

func (r *textSceneReader) parse(res *asset.Resource) error {
	var lineNum int = 0
	var err error

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}

		lineTokens := strings.Fields(line)
		if len(lineTokens) == 0 {
			err = r.closeBlock(res)
			if err != nil {
				return err
			}
			continue
		}

		switch lineTokens[0] {
		case "MATERIAL", "CAMERA", "OBJECT", "OBJ_OBJECT":
			err = r.closeBlock(res)
			if err != nil {
				return err
			}
			err = r.openBlock(res, lineNum, lineTokens)
		default:
			switch r.block {
			case materialBlock:
				err = r.parseMaterialKey(lineTokens)
			case cameraBlock:
				err = r.parseCameraKey(lineTokens)
			case objectBlock:
				err = r.parseObjectKey(lineTokens)
			default:
				err = fmt.Errorf("unexpected %q outside of a MATERIAL, CAMERA or OBJECT block", lineTokens[0])
			}
		}

		if err != nil {
			if _, annotated := err.(*parseError); annotated {
				return err
			}
			return r.errStack.emitError(res.Path(), lineNum, err.Error())
		}
	}

	if err = scanner.Err(); err != nil {
		return r.errStack.emitError(res.Path(), lineNum, err.Error())
	}

	return r.closeBlock(res)
}

// Start a new block.
func (r *textSceneReader) openBlock(res *asset.Resource, lineNum int, lineTokens []string) error {
	r.blockLine = lineNum

	switch lineTokens[0] {
	case "CAMERA":
		if r.cameraDefined {
			return fmt.Errorf("duplicate CAMERA block")
		}
		r.cameraDefined = true
		r.block = cameraBlock
		return nil
	case "MATERIAL":
		id, err := parseID(lineTokens, len(r.rawScene.Materials))
		if err != nil {
			return err
		}
		r.curMaterial = input.NewMaterial(id)
		r.rawScene.Materials = append(r.rawScene.Materials, r.curMaterial)
		r.block = materialBlock
		return nil
	}

	id, err := parseID(lineTokens, len(r.rawScene.Objects))
	if err != nil {
		return err
	}
	r.curObject = input.NewObject(id)
	r.rawScene.Objects = append(r.rawScene.Objects, r.curObject)
	r.block = objectBlock

	if lineTokens[0] == "OBJ_OBJECT" {
		if len(lineTokens) != 3 {
			return fmt.Errorf(`unsupported syntax for "OBJ_OBJECT"; expected 2 arguments: id path; got %d`, len(lineTokens)-1)
		}

		meshIndex, err := r.loadMesh(res, lineNum, lineTokens[2])
		if err != nil {
			return err
		}
		r.curObject.Type = input.ObjectMesh
		r.curObject.MeshIndex = meshIndex
	}

	return nil
}

// Validate and close the currently open block.
func (r *textSceneReader) closeBlock(res *asset.Resource) error {
	defer func() {
		r.block = noBlock
		r.curMaterial = nil
		r.curObject = nil
	}()

	if r.block != objectBlock {
		return nil
	}

	if r.curObject.Type == "" {
		return r.errStack.emitError(res.Path(), r.blockLine, "object %d does not specify a primitive type", r.curObject.ID)
	}
	if r.curObject.MaterialID < 0 {
		return r.errStack.emitError(res.Path(), r.blockLine, "object %d does not specify a material", r.curObject.ID)
	}
	return nil
}

// Load a wavefront mesh relative to the scene resource. Meshes referenced by
// multiple objects are only loaded once.
func (r *textSceneReader) loadMesh(res *asset.Resource, lineNum int, path string) (int, error) {
	meshRes, err := asset.NewResource(path, res)
	if err != nil {
		return -1, err
	}
	defer meshRes.Close()

	if index, exists := r.meshIndex[meshRes.Path()]; exists {
		return index, nil
	}

	r.errStack.pushFrame(fmt.Sprintf("referenced from %s:%d [OBJ_OBJECT]", res.Path(), lineNum))
	mesh, err := newWavefrontMeshReader(r.errStack).Load(meshRes)
	r.errStack.popFrame()
	if err != nil {
		return -1, err
	}

	r.rawScene.Meshes = append(r.rawScene.Meshes, mesh)
	index := len(r.rawScene.Meshes) - 1
	r.meshIndex[meshRes.Path()] = index
	return index, nil
}

func (r *textSceneReader) parseMaterialKey(lineTokens []string) error {
	var err error
	mat := r.curMaterial

	switch lineTokens[0] {
	case "RGB":
		mat.Color, err = parseVec3(lineTokens)
	case "SPECEX":
		mat.SpecularExponent, err = parseFloat32(lineTokens)
	case "SPECRGB":
		mat.SpecularColor, err = parseVec3(lineTokens)
	case "REFL":
		mat.Reflective, err = parseFloat32(lineTokens)
	case "REFR":
		mat.Refractive, err = parseFloat32(lineTokens)
	case "REFRIOR":
		mat.IOR, err = parseFloat32(lineTokens)
	case "EMITTANCE":
		mat.Emittance, err = parseFloat32(lineTokens)
	case "ROUGHNESS":
		mat.Roughness, err = parseFloat32(lineTokens)
	case "BSDF":
		if len(lineTokens) != 2 {
			return fmt.Errorf(`unsupported syntax for "BSDF"; expected 1 argument; got %d`, len(lineTokens)-1)
		}
		mat.Bxdf = lineTokens[1]
	default:
		return fmt.Errorf("unknown material property %q", lineTokens[0])
	}

	return err
}

func (r *textSceneReader) parseCameraKey(lineTokens []string) error {
	var err error
	cam := r.rawScene.Camera

	switch lineTokens[0] {
	case "RES":
		if len(lineTokens) != 3 {
			return fmt.Errorf(`unsupported syntax for "RES"; expected 2 arguments; got %d`, len(lineTokens)-1)
		}
		cam.Width, err = parseUint32(lineTokens[0:2])
		if err == nil {
			cam.Height, err = parseUint32([]string{lineTokens[0], lineTokens[2]})
		}
		if err == nil && (cam.Width == 0 || cam.Height == 0) {
			err = fmt.Errorf("camera resolution must be positive; got %dx%d", cam.Width, cam.Height)
		}
	case "FOVY":
		cam.FOV, err = parseFloat32(lineTokens)
	case "ITERATIONS":
		r.rawScene.Iterations, err = parseUint32(lineTokens)
	case "DEPTH":
		r.rawScene.TraceDepth, err = parseUint32(lineTokens)
	case "FILE":
		if len(lineTokens) != 2 {
			return fmt.Errorf(`unsupported syntax for "FILE"; expected 1 argument; got %d`, len(lineTokens)-1)
		}
		r.rawScene.ImageName = lineTokens[1]
	case "EYE":
		cam.Eye, err = parseVec3(lineTokens)
	case "LOOKAT":
		cam.Look, err = parseVec3(lineTokens)
	case "UP":
		cam.Up, err = parseVec3(lineTokens)
	case "FOCALDIST":
		cam.FocalDistance, err = parseFloat32(lineTokens)
	case "LENSRADIUS":
		cam.LensRadius, err = parseFloat32(lineTokens)
	default:
		return fmt.Errorf("unknown camera property %q", lineTokens[0])
	}

	return err
}

func (r *textSceneReader) parseObjectKey(lineTokens []string) error {
	var err error
	obj := r.curObject

	switch lineTokens[0] {
	case input.ObjectSphere, input.ObjectCube, input.ObjectSquarePlane:
		if obj.Type != "" {
			return fmt.Errorf("object %d already specifies primitive type %q", obj.ID, obj.Type)
		}
		obj.Type = lineTokens[0]
	case "material":
		if len(lineTokens) != 2 {
			return fmt.Errorf(`unsupported syntax for "material"; expected 1 argument; got %d`, len(lineTokens)-1)
		}
		obj.MaterialID, err = strconv.Atoi(lineTokens[1])
		if err == nil && (obj.MaterialID < 0 || obj.MaterialID >= len(r.rawScene.Materials)) {
			err = fmt.Errorf("object %d references undefined material %d", obj.ID, obj.MaterialID)
		}
	case "TRANS":
		obj.Translation, err = parseVec3(lineTokens)
	case "ROTAT":
		obj.Rotation, err = parseVec3(lineTokens)
	case "SCALE":
		obj.Scale, err = parseVec3(lineTokens)
	default:
		return fmt.Errorf("unknown object property %q", lineTokens[0])
	}

	return err
}

// Parse a block id and ensure it matches the next expected id.
func parseID(lineTokens []string, expID int) (int, error) {
	if len(lineTokens) < 2 {
		return -1, fmt.Errorf(`unsupported syntax for "%s"; expected an id argument`, lineTokens[0])
	}

	id, err := strconv.Atoi(lineTokens[1])
	if err != nil {
		return -1, err
	}
	if id != expID {
		return -1, fmt.Errorf("%s ids must be sequential; expected id %d; got %d", lineTokens[0], expID, id)
	}
	return id, nil
}
