package scene

import "github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"

// Sentinel triangle start index for interior BVH nodes.
const InteriorNode int32 = -1

// A node of the flattened BVH. Nodes are stored in depth-first order so the
// first child of an interior node is always the next array slot while the
// second child lives at the node index plus SecondChildOffset.
//
//   - Interior nodes: TriStart is InteriorNode and SecondChildOffset is > 0
//   - Leaf nodes: TriStart >= 0 and TriCount > 0 select a contiguous run of
//     the scene triangle list
type BvhNode struct {
	Min      types.Vec3
	TriStart int32

	Max      types.Vec3
	TriCount int32

	SecondChildOffset int32
	Axis              int32
}

// Returns true if this is a leaf node.
func (n *BvhNode) IsLeaf() bool {
	return n.TriStart != InteriorNode
}

// Set bounding box.
func (n *BvhNode) SetBBox(bbox [2]types.Vec3) {
	n.Min = bbox[0]
	n.Max = bbox[1]
}

// Get bounding box.
func (n *BvhNode) BBox() [2]types.Vec3 {
	return [2]types.Vec3{n.Min, n.Max}
}

// Set primitive index and count.
func (n *BvhNode) SetPrimitives(firstPrimIndex, count uint32) {
	n.TriStart = int32(firstPrimIndex)
	n.TriCount = int32(count)
	n.SecondChildOffset = 0
}

// Get primitive index and count.
func (n *BvhNode) GetPrimitives() (firstPrimIndex, count uint32) {
	return uint32(n.TriStart), uint32(n.TriCount)
}

// Mark node as interior and set the offset to its second child.
func (n *BvhNode) SetSecondChildOffset(offset int32, axis int32) {
	n.TriStart = InteriorNode
	n.TriCount = 0
	n.SecondChildOffset = offset
	n.Axis = axis
}
