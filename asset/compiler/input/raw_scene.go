package input

import (
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

// A material as described by the scene file. Fields keep their scene file
// meaning; the scene compiler maps them to a bxdf.
type Material struct {
	ID int

	// RGB
	Color types.Vec3

	// SPECEX / SPECRGB
	SpecularExponent float32
	SpecularColor    types.Vec3

	// REFL / REFR / REFRIOR
	Reflective float32
	Refractive float32
	IOR        float32

	// EMITTANCE
	Emittance float32

	// Optional explicit bxdf name (BSDF keyword).
	Bxdf string

	// Optional microfacet roughness (ROUGHNESS keyword); negative if unset.
	Roughness float32

	// True if material is referenced by scene geometry.
	Used bool
}

// Create a material with unset optional fields.
func NewMaterial(id int) *Material {
	return &Material{
		ID:        id,
		Roughness: -1,
	}
}

// A triangle primitive in object space.
type Primitive struct {
	Vertices [3]types.Vec3
	Normals  [3]types.Vec3
	UVs      [3]types.Vec2

	bbox   [2]types.Vec3
	center types.Vec3
}

// Create a primitive and calculate its AABB and center.
func NewPrimitive(vertices, normals [3]types.Vec3, uvs [3]types.Vec2) *Primitive {
	prim := &Primitive{
		Vertices: vertices,
		Normals:  normals,
		UVs:      uvs,
	}
	prim.bbox = [2]types.Vec3{
		types.MinVec3(vertices[0], types.MinVec3(vertices[1], vertices[2])),
		types.MaxVec3(vertices[0], types.MaxVec3(vertices[1], vertices[2])),
	}
	prim.center = vertices[0].Add(vertices[1]).Add(vertices[2]).Mul(1.0 / 3.0)
	return prim
}

// Get the primitive AABB.
func (prim *Primitive) BBox() [2]types.Vec3 {
	return prim.bbox
}

// Get primitive AABB center.
func (prim *Primitive) Center() types.Vec3 {
	return prim.center
}

// A mesh is constructed by a list of primitives.
type Mesh struct {
	Name       string
	Primitives []*Primitive

	bbox            [2]types.Vec3
	bboxNeedsUpdate bool
}

// Create a new mesh.
func NewMesh(name string) *Mesh {
	return &Mesh{
		Name:            name,
		Primitives:      make([]*Primitive, 0),
		bboxNeedsUpdate: true,
	}
}

// Mark the bbox of this mesh as dirty.
func (m *Mesh) MarkBBoxDirty() {
	m.bboxNeedsUpdate = true
}

// Get mesh bounding box.
func (m *Mesh) BBox() [2]types.Vec3 {
	if m.bboxNeedsUpdate {
		m.bbox = types.EmptyBBox()
		for _, prim := range m.Primitives {
			m.bbox = types.UnionBBox(m.bbox, prim.BBox())
		}
		m.bboxNeedsUpdate = false
	}

	return m.bbox
}

// Object types understood by the scene compiler.
const (
	ObjectSphere      = "sphere"
	ObjectCube        = "cube"
	ObjectSquarePlane = "squareplane"
	ObjectMesh        = "mesh"
)

// A scene object: an analytic primitive or a mesh, placed via a TRS transform.
type Object struct {
	ID         int
	Type       string
	MaterialID int

	Translation types.Vec3
	Rotation    types.Vec3
	Scale       types.Vec3

	// Index into Scene.Meshes for mesh objects; -1 otherwise.
	MeshIndex int
}

// Create an object with an identity transform.
func NewObject(id int) *Object {
	return &Object{
		ID:         id,
		MaterialID: -1,
		Scale:      types.Splat3(1),
		MeshIndex:  -1,
	}
}

// Camera settings.
type Camera struct {
	// Vertical field of view in degrees.
	FOV  float32
	Eye  types.Vec3
	Look types.Vec3
	Up   types.Vec3

	Width, Height uint32

	FocalDistance float32
	LensRadius    float32
}

// The scene contains all elements that are processed by the scene compiler.
type Scene struct {
	Materials []*Material
	Objects   []*Object
	Meshes    []*Mesh
	Camera    *Camera

	Iterations uint32
	TraceDepth uint32
	ImageName  string

	Background types.Vec3
}

// Create a new scene.
func NewScene() *Scene {
	return &Scene{
		Materials: make([]*Material, 0),
		Objects:   make([]*Object, 0),
		Meshes:    make([]*Mesh, 0),
		Camera: &Camera{
			FOV:           45.0,
			Eye:           types.Vec3{0, 0, 0},
			Look:          types.Vec3{0, 0, -1},
			Up:            types.Vec3{0, 1, 0},
			Width:         800,
			Height:        800,
			FocalDistance: 1,
		},
		Iterations: 5000,
		TraceDepth: 8,
		ImageName:  "render",
	}
}
