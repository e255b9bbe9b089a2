package bvh

import (
	"time"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/log"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

type Axis uint8

const (
	XAxis Axis = iota
	YAxis
	ZAxis
)

// The BoundedVolume interface is implemented by all primitives that can
// be partitioned by the bvh builder.
type BoundedVolume interface {
	BBox() [2]types.Vec3
	Center() types.Vec3
}

// A callback that is invoked for each leaf while the tree is flattened.
// Leaves are visited in depth-first order so the callback can lay out the
// leaf items contiguously and point the leaf at them via SetPrimitives.
type LeafCallback func(leaf *scene.BvhNode, itemList []BoundedVolume)

// A Splitter partitions a work list into two non-empty halves. If it cannot
// separate the items (e.g. all centroids coincide) it returns ok = false.
type Splitter interface {
	Split(workList []BoundedVolume, centroidBBox [2]types.Vec3) (axis Axis, left, right []BoundedVolume, ok bool)
}

// Build-time tree node. Children are addressed by their arena index; leaves
// have no children and own a run of items.
type buildNode struct {
	bbox        [2]types.Vec3
	left, right int
	axis        Axis
	items       []BoundedVolume
}

func (n *buildNode) isLeaf() bool {
	return n.left < 0
}

type stats struct {
	nodes    int
	leafs    int
	maxDepth int
	maxItems int
}

type builder struct {
	logger log.Logger

	// Build-time nodes; discarded once the tree is flattened.
	arena []buildNode

	leafCb       LeafCallback
	maxLeafItems int
	splitter     Splitter

	stats stats
}

// Construct a BVH from a set of bounded volumes and return it flattened in
// depth-first order.
//
// Leaves are created when a node holds maxLeafItems or fewer items. If the
// splitter cannot separate a set of items (identical centroids), the set is
// subdivided by index until each leaf holds a single item. A nil splitter
// selects MidpointSplitter. An empty work list yields an empty tree.
func Build(workList []BoundedVolume, maxLeafItems int, leafCb LeafCallback, splitter Splitter) []scene.BvhNode {
	if len(workList) == 0 {
		return nil
	}
	if maxLeafItems < 1 {
		maxLeafItems = 1
	}
	if splitter == nil {
		splitter = MidpointSplitter
	}

	b := &builder{
		logger:       log.New("bvh builder"),
		arena:        make([]buildNode, 0, 2*len(workList)/maxLeafItems+1),
		leafCb:       leafCb,
		maxLeafItems: maxLeafItems,
		splitter:     splitter,
	}

	start := time.Now()
	root := b.partition(workList, 0, false)
	nodes := make([]scene.BvhNode, 0, len(b.arena))
	nodes = b.flatten(root, nodes)
	b.logger.Debugf(
		"BVH tree build time: %d ms, items: %d, maxDepth: %d, nodes: %d, leafs: %d, max leaf items: %d",
		time.Since(start).Nanoseconds()/1e6,
		len(workList), b.stats.maxDepth, b.stats.nodes, b.stats.leafs, b.stats.maxItems,
	)
	return nodes
}

// Partition worklist and return the arena index of the new node.
func (b *builder) partition(workList []BoundedVolume, depth int, forced bool) int {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	bbox := types.EmptyBBox()
	centroidBBox := types.EmptyBBox()
	for _, item := range workList {
		bbox = types.UnionBBox(bbox, item.BBox())
		center := item.Center()
		centroidBBox = types.UnionBBox(centroidBBox, [2]types.Vec3{center, center})
	}

	if len(workList) == 1 || (!forced && len(workList) <= b.maxLeafItems) {
		return b.createLeaf(bbox, workList)
	}

	var (
		axis        Axis
		left, right []BoundedVolume
		ok          bool
	)
	if !forced {
		axis, left, right, ok = b.splitter.Split(workList, centroidBBox)
	}
	if !ok {
		// Degenerate set; subdivide by index down to single item leaves.
		forced = true
		mid := len(workList) / 2
		left, right = workList[:mid], workList[mid:]
	}

	nodeIndex := len(b.arena)
	b.arena = append(b.arena, buildNode{bbox: bbox, axis: axis})
	b.stats.nodes++

	leftIndex := b.partition(left, depth+1, forced)
	rightIndex := b.partition(right, depth+1, forced)
	b.arena[nodeIndex].left = leftIndex
	b.arena[nodeIndex].right = rightIndex

	return nodeIndex
}

// Append a leaf owning all items in the work list and return its index.
func (b *builder) createLeaf(bbox [2]types.Vec3, workList []BoundedVolume) int {
	nodeIndex := len(b.arena)
	b.arena = append(b.arena, buildNode{bbox: bbox, left: -1, right: -1, items: workList})

	b.stats.nodes++
	b.stats.leafs++
	if len(workList) > b.stats.maxItems {
		b.stats.maxItems = len(workList)
	}
	return nodeIndex
}

// Serialize the subtree rooted at arena node index in depth-first order.
func (b *builder) flatten(index int, out []scene.BvhNode) []scene.BvhNode {
	node := &b.arena[index]
	outIndex := len(out)
	out = append(out, scene.BvhNode{})
	out[outIndex].SetBBox(node.bbox)

	if node.isLeaf() {
		out[outIndex].SetPrimitives(0, uint32(len(node.items)))
		if b.leafCb != nil {
			b.leafCb(&out[outIndex], node.items)
		}
		return out
	}

	out = b.flatten(node.left, out)
	secondChildOffset := int32(len(out) - outIndex)
	out = b.flatten(node.right, out)
	out[outIndex].SetSecondChildOffset(secondChildOffset, int32(node.axis))
	return out
}
