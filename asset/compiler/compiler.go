package compiler

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/compiler/bvh"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/compiler/input"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/material"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/log"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

const (
	// IOR used by dielectrics that do not specify one.
	DefaultIOR float32 = 1.5

	// Roughness clamp range for microfacet materials.
	minRoughness float32 = 1e-3
	maxRoughness float32 = 1.0
)

var (
	ErrMissingCamera     = errors.New("scene compiler: scene does not define a camera")
	ErrInvalidResolution = errors.New("scene compiler: camera resolution must be positive")
)

// Compiler options.
type Options struct {
	// Max number of triangles stored in a BVH leaf.
	MaxLeafItems int

	// BVH split strategy.
	Splitter bvh.Splitter
}

// Get the default compiler options.
func DefaultOptions() Options {
	return Options{
		MaxLeafItems: 4,
		Splitter:     bvh.MidpointSplitter,
	}
}

type sceneCompiler struct {
	parsedScene    *input.Scene
	optimizedScene *scene.Scene
	options        Options
	logger         log.Logger
}

// Compile a scene representation parsed by a scene reader into a scene that
// can be traced. Compilation fails before producing a partial scene if any
// object references an unknown material or the camera is invalid.
func Compile(parsedScene *input.Scene, options Options) (*scene.Scene, error) {
	compiler := &sceneCompiler{
		parsedScene: parsedScene,
		optimizedScene: &scene.Scene{
			Background: parsedScene.Background,
			RenderState: scene.RenderState{
				Iterations: parsedScene.Iterations,
				TraceDepth: parsedScene.TraceDepth,
				ImageName:  parsedScene.ImageName,
			},
		},
		options: options,
		logger:  log.New("scene compiler"),
	}

	start := time.Now()
	compiler.logger.Noticef("compiling scene")

	var err error
	err = compiler.compileMaterials()
	if err != nil {
		return nil, err
	}

	err = compiler.compileGeometry()
	if err != nil {
		return nil, err
	}

	compiler.setupLights()

	err = compiler.setupCamera()
	if err != nil {
		return nil, err
	}

	compiler.logger.Noticef("compiled scene in %d ms", time.Since(start).Nanoseconds()/1e6)
	return compiler.optimizedScene, nil
}

// Map scene file materials to bxdf based materials.
func (sc *sceneCompiler) compileMaterials() error {
	sc.logger.Infof("processing %d materials", len(sc.parsedScene.Materials))

	sc.optimizedScene.Materials = make([]scene.Material, len(sc.parsedScene.Materials))
	for index, mat := range sc.parsedScene.Materials {
		if mat.ID != index {
			return fmt.Errorf("scene compiler: material ids must be sequential; expected id %d; got %d", index, mat.ID)
		}

		compiled, err := compileMaterial(mat)
		if err != nil {
			return err
		}
		sc.optimizedScene.Materials[index] = compiled
	}

	return nil
}

func compileMaterial(mat *input.Material) (scene.Material, error) {
	out := scene.Material{
		ID:            int32(mat.ID),
		Reflectance:   mat.Color,
		Transmittance: mat.Color,
		Specular:      mat.Color,
		IOR:           mat.IOR,
		Emittance:     mat.Emittance,
	}

	if out.IOR <= 0 {
		out.IOR = DefaultIOR
	}

	if mat.Bxdf != "" {
		bxdf, ok := material.BxdfTypeFromName(mat.Bxdf)
		if !ok {
			return out, fmt.Errorf("scene compiler: material %d: unknown bsdf %q", mat.ID, mat.Bxdf)
		}
		out.Bxdf = bxdf
	} else {
		switch {
		case mat.Reflective > 0 && mat.Refractive > 0:
			out.Bxdf = material.BxdfGlass
		case mat.Reflective > 0:
			out.Bxdf = material.BxdfSpecularReflection
		case mat.Refractive > 0:
			out.Bxdf = material.BxdfSpecularTransmission
		default:
			out.Bxdf = material.BxdfDiffuseReflection
		}
	}

	switch out.Bxdf {
	case material.BxdfSpecularReflection, material.BxdfGlass:
		if !mat.SpecularColor.IsZero() {
			out.Specular = mat.SpecularColor
		}
	case material.BxdfPlastic:
		out.Specular = types.Splat3(1)
		if !mat.SpecularColor.IsZero() {
			out.Specular = mat.SpecularColor
		}
	case material.BxdfMicrofacetReflection:
		roughness := mat.Roughness
		if roughness < 0 {
			roughness = float32(math.Sqrt(2.0 / float64(mat.SpecularExponent+2)))
		}
		out.Roughness = float32(math.Max(float64(minRoughness), math.Min(float64(maxRoughness), float64(roughness))))
	}

	return out, nil
}

// Create geoms for all scene objects and partition mesh triangles into a BVH.
func (sc *sceneCompiler) compileGeometry() error {
	start := time.Now()
	sc.logger.Notice("partitioning geometry")

	matCount := len(sc.parsedScene.Materials)
	sc.optimizedScene.Geoms = make([]scene.Geom, len(sc.parsedScene.Objects))

	triangles := make([]scene.Triangle, 0)
	for index, obj := range sc.parsedScene.Objects {
		if obj.ID != index {
			return fmt.Errorf("scene compiler: object ids must be sequential; expected id %d; got %d", index, obj.ID)
		}
		if obj.MaterialID < 0 || obj.MaterialID >= matCount {
			return fmt.Errorf("scene compiler: object %d references unknown material %d", obj.ID, obj.MaterialID)
		}
		sc.parsedScene.Materials[obj.MaterialID].Used = true

		geom := scene.Geom{
			ID:         int32(obj.ID),
			MaterialID: int32(obj.MaterialID),
			Transform:  scene.NewTransform(obj.Translation, obj.Rotation, obj.Scale),
		}

		if obj.Type == input.ObjectMesh {
			if obj.MeshIndex < 0 || obj.MeshIndex >= len(sc.parsedScene.Meshes) {
				return fmt.Errorf("scene compiler: object %d references unknown mesh %d", obj.ID, obj.MeshIndex)
			}
			mesh := sc.parsedScene.Meshes[obj.MeshIndex]
			geom.Type = scene.MeshGeom
			geom.MeshPath = mesh.Name
			geom.TriangleCount = int32(len(mesh.Primitives))
			triangles = appendMeshTriangles(triangles, &geom, mesh)
		} else {
			geomType, ok := scene.GeomTypeFromName(obj.Type)
			if !ok {
				return fmt.Errorf("scene compiler: object %d has unsupported type %q", obj.ID, obj.Type)
			}
			geom.Type = geomType
		}

		sc.optimizedScene.Geoms[index] = geom
	}

	for _, mat := range sc.parsedScene.Materials {
		if !mat.Used {
			sc.logger.Infof("material %d is not referenced by any object", mat.ID)
		}
	}

	sc.logger.Infof("building scene BVH tree (%d triangles)", len(triangles))
	volList := make([]bvh.BoundedVolume, len(triangles))
	for index := range triangles {
		volList[index] = &triangles[index]
	}

	// Leaves are visited in depth-first order; copy their triangles so each
	// leaf references a contiguous run of the scene triangle list.
	sc.optimizedScene.Triangles = make([]scene.Triangle, 0, len(triangles))
	sc.optimizedScene.BvhNodeList = bvh.Build(volList, sc.options.MaxLeafItems, func(node *scene.BvhNode, workList []bvh.BoundedVolume) {
		node.SetPrimitives(uint32(len(sc.optimizedScene.Triangles)), uint32(len(workList)))
		for _, item := range workList {
			sc.optimizedScene.Triangles = append(sc.optimizedScene.Triangles, *item.(*scene.Triangle))
		}
	}, sc.options.Splitter)

	sc.logger.Noticef("partitioned geometry in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Transform mesh primitives to world space and append them to the list.
func appendMeshTriangles(triangles []scene.Triangle, geom *scene.Geom, mesh *input.Mesh) []scene.Triangle {
	for _, prim := range mesh.Primitives {
		var p, n [3]types.Vec3
		for i := 0; i < 3; i++ {
			p[i] = geom.Matrix.MulPoint(prim.Vertices[i])
			if !prim.Normals[i].IsZero() {
				n[i] = geom.TransformNormal(prim.Normals[i])
			}
		}

		tri := scene.NewTriangle(p, n, prim.UVs, geom.MaterialID, geom.ID)
		if tri.Area <= 0 {
			// Degenerate triangles can never be hit.
			continue
		}
		triangles = append(triangles, tri)
	}

	return triangles
}

// Create a light for each geom with an emissive material.
func (sc *sceneCompiler) setupLights() {
	sc.optimizedScene.Lights = make([]scene.Light, 0)
	for index := range sc.optimizedScene.Geoms {
		geom := &sc.optimizedScene.Geoms[index]
		if !sc.optimizedScene.Materials[geom.MaterialID].IsEmissive() {
			continue
		}

		light := scene.Light{GeomID: geom.ID}
		if geom.Type.IsTriangulated() {
			for triIndex := range sc.optimizedScene.Triangles {
				tri := &sc.optimizedScene.Triangles[triIndex]
				if tri.GeomID != geom.ID {
					continue
				}
				light.Area += tri.Area
				light.Triangles = append(light.Triangles, int32(triIndex))
				light.TriangleCDF = append(light.TriangleCDF, light.Area)
			}
			if light.Area <= 0 {
				sc.logger.Warningf("emissive mesh geom %d has no triangles; ignoring", geom.ID)
				continue
			}
			for i := range light.TriangleCDF {
				light.TriangleCDF[i] /= light.Area
			}
			light.TriangleCDF[len(light.TriangleCDF)-1] = 1
		} else {
			light.Area = geom.SurfaceArea()
		}

		sc.optimizedScene.Lights = append(sc.optimizedScene.Lights, light)
	}

	if len(sc.optimizedScene.Lights) > 0 {
		sc.logger.Infof("scene contains %d area lights", len(sc.optimizedScene.Lights))
	} else {
		sc.logger.Warning("the scene contains no emissive geometry; output will only include background radiance")
	}
}

// Initialize and position the camera for the scene.
func (sc *sceneCompiler) setupCamera() error {
	cam := sc.parsedScene.Camera
	if cam == nil {
		return ErrMissingCamera
	}
	if cam.Width == 0 || cam.Height == 0 {
		return ErrInvalidResolution
	}

	sc.optimizedScene.Camera = scene.NewCamera(cam.Eye, cam.Look, cam.Up, cam.FOV, cam.Width, cam.Height)
	sc.optimizedScene.Camera.LensRadius = cam.LensRadius
	if cam.FocalDistance > 0 {
		sc.optimizedScene.Camera.FocalDistance = cam.FocalDistance
	}

	return nil
}
