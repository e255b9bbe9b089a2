package cpu

import (
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

// Initial capacity of the traversal stack. Deeper trees spill to the heap.
const traversalStackSize = 64

// Slack applied to the far slab distance so that rays grazing a node
// boundary are never culled.
const bboxGrazeScale float32 = 1 + 1e-5

// Scene data prepared for tracing.
type sceneData struct {
	scene *scene.Scene

	// Indices of the geoms that are tested analytically.
	analyticGeoms []int32

	// Maps a geom id to its light index or -1.
	lightByGeom []int32
}

func newSceneData(sc *scene.Scene) *sceneData {
	sd := &sceneData{
		scene:       sc,
		lightByGeom: make([]int32, len(sc.Geoms)),
	}

	for index := range sc.Geoms {
		sd.lightByGeom[index] = sc.LightIndex(sc.Geoms[index].ID)
		if !sc.Geoms[index].Type.IsTriangulated() {
			sd.analyticGeoms = append(sd.analyticGeoms, int32(index))
		}
	}

	return sd
}

// Test a ray against an AABB using the precomputed inverse direction and
// direction signs. Only the [0, maxDist] part of the ray is considered.
func rayBoxIntersect(r *types.Ray, bmin, bmax types.Vec3, maxDist float32) bool {
	bounds := [2]types.Vec3{bmin, bmax}
	tNear, tFar := float32(0), maxDist
	for axis := 0; axis < 3; axis++ {
		t0 := (bounds[r.Sign[axis]][axis] - r.Origin[axis]) * r.InvDir[axis]
		t1 := (bounds[1-r.Sign[axis]][axis] - r.Origin[axis]) * r.InvDir[axis] * bboxGrazeScale

		// NaN values (origin on a slab with a zero direction component)
		// fail both comparisons and leave the interval untouched.
		if t0 > tNear {
			tNear = t0
		}
		if t1 < tFar {
			tFar = t1
		}
		if tNear > tFar {
			return false
		}
	}
	return true
}

// Find the closest triangle hit by walking the flattened BVH. isect is only
// updated when a hit closer than isect.Dist is found.
func (sd *sceneData) intersectBvh(r *types.Ray, isect *intersection) bool {
	nodes := sd.scene.BvhNodeList
	if len(nodes) == 0 {
		return false
	}
	tris := sd.scene.Triangles

	var stackBuf [traversalStackSize]int32
	stack := stackBuf[:0]

	var (
		found     bool
		bestBary  types.Vec3
		nodeIndex int32
	)
	for {
		node := &nodes[nodeIndex]
		if rayBoxIntersect(r, node.Min, node.Max, isect.Dist) {
			if !node.IsLeaf() {
				// Visit the child on the near side first
				second := nodeIndex + node.SecondChildOffset
				if r.Sign[node.Axis] == 1 {
					stack = append(stack, nodeIndex+1)
					nodeIndex = second
				} else {
					stack = append(stack, second)
					nodeIndex++
				}
				continue
			}

			for triIndex := node.TriStart; triIndex < node.TriStart+node.TriCount; triIndex++ {
				t, bary, ok := intersectTriangle(&tris[triIndex], r)
				if ok && t < isect.Dist {
					found = true
					bestBary = bary
					isect.Dist = t
					isect.TriIndex = triIndex
				}
			}
		}

		if len(stack) == 0 {
			break
		}
		nodeIndex = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
	}

	if found {
		tri := &tris[isect.TriIndex]
		isect.Normal = tri.ShadingNormal(bestBary)
		isect.GeomNormal = tri.PlaneNormal
		isect.MaterialID = tri.MaterialID
		isect.GeomID = tri.GeomID
	}
	return found
}

// Returns true if any triangle lies along the ray closer than maxDist. The
// walk exits as soon as the first such triangle is found.
func (sd *sceneData) occludedBvh(r *types.Ray, maxDist float32) bool {
	nodes := sd.scene.BvhNodeList
	if len(nodes) == 0 {
		return false
	}
	tris := sd.scene.Triangles

	var stackBuf [traversalStackSize]int32
	stack := stackBuf[:0]

	var nodeIndex int32
	for {
		node := &nodes[nodeIndex]
		if rayBoxIntersect(r, node.Min, node.Max, maxDist) {
			if !node.IsLeaf() {
				stack = append(stack, nodeIndex+node.SecondChildOffset)
				nodeIndex++
				continue
			}

			for triIndex := node.TriStart; triIndex < node.TriStart+node.TriCount; triIndex++ {
				if t, _, ok := intersectTriangle(&tris[triIndex], r); ok && t < maxDist {
					return true
				}
			}
		}

		if len(stack) == 0 {
			return false
		}
		nodeIndex = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
	}
}

// Find the closest hit against both the analytic geoms and the BVH.
func (sd *sceneData) intersect(r *types.Ray, isect *intersection) bool {
	isect.reset()

	geoms := sd.scene.Geoms
	for _, geomIndex := range sd.analyticGeoms {
		g := &geoms[geomIndex]
		dist, normal := intersectGeom(g, r)
		if dist >= MinIntersectDist && dist < isect.Dist {
			isect.Dist = dist
			isect.Normal = normal
			isect.GeomNormal = normal
			isect.MaterialID = g.MaterialID
			isect.GeomID = g.ID
			isect.TriIndex = -1
		}
	}

	sd.intersectBvh(r, isect)
	return isect.hit()
}

// Returns true if any surface lies along the ray closer than maxDist.
func (sd *sceneData) occluded(r *types.Ray, maxDist float32) bool {
	geoms := sd.scene.Geoms
	for _, geomIndex := range sd.analyticGeoms {
		if dist, _ := intersectGeom(&geoms[geomIndex], r); dist >= MinIntersectDist && dist < maxDist {
			return true
		}
	}
	return sd.occludedBvh(r, maxDist)
}
