package bvh

import (
	"math/rand"
	"testing"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/asset/scene"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

type testVolume struct {
	id   int
	bbox [2]types.Vec3
}

func (v *testVolume) BBox() [2]types.Vec3 {
	return v.bbox
}

func (v *testVolume) Center() types.Vec3 {
	return v.bbox[0].Add(v.bbox[1]).Mul(0.5)
}

func makeVolumes(boxes ...[2]types.Vec3) []BoundedVolume {
	itemList := make([]BoundedVolume, len(boxes))
	for idx, box := range boxes {
		itemList[idx] = &testVolume{id: idx, bbox: box}
	}
	return itemList
}

func randomVolumes(rng *rand.Rand, count int) []BoundedVolume {
	boxes := make([][2]types.Vec3, count)
	for idx := range boxes {
		min := types.XYZ(rng.Float32()*20-10, rng.Float32()*20-10, rng.Float32()*20-10)
		boxes[idx] = [2]types.Vec3{min, min.Add(types.XYZ(rng.Float32(), rng.Float32(), rng.Float32()))}
	}
	return makeVolumes(boxes...)
}

// Record leaf contents so that each leaf points at a contiguous run of the
// returned id list, the same way the scene compiler lays out triangles.
func recordingLeafCallback(ids *[]int) LeafCallback {
	return func(leaf *scene.BvhNode, itemList []BoundedVolume) {
		leaf.SetPrimitives(uint32(len(*ids)), uint32(len(itemList)))
		for _, item := range itemList {
			*ids = append(*ids, item.(*testVolume).id)
		}
	}
}

func TestLeafCallback(t *testing.T) {
	itemList := makeVolumes(
		[2]types.Vec3{{-2, 0, -2}, {-1, 1, -1}},
		[2]types.Vec3{{1, 0, -2}, {2, 1, -1}},
		[2]types.Vec3{{-2, 0, 1}, {-1, 1, 2}},
		[2]types.Vec3{{1, 0, 1}, {2, 1, 2}},
	)

	for _, splitter := range []Splitter{MidpointSplitter, SurfaceAreaHeuristic} {
		var cbCount = 0
		var expItemListCount = 0
		cb := func(leaf *scene.BvhNode, itemList []BoundedVolume) {
			cbCount++
			if len(itemList) != expItemListCount {
				t.Fatalf("expected leaf callback to be called with %d items; got %d", expItemListCount, len(itemList))
			}
		}

		// Partition each item in a single leaf
		expItemListCount = 1
		treeNodes := Build(itemList, 1, cb, splitter)
		if cbCount != 4 {
			t.Fatalf("expected leaf callback to be called %d times; called %d", 4, cbCount)
		}
		if len(treeNodes) != 7 {
			t.Fatalf("expected bvh tree to have %d nodes; got %d", 7, len(treeNodes))
		}

		// Partition two items in a single leaf
		cbCount = 0
		expItemListCount = 2
		treeNodes = Build(itemList, 2, cb, splitter)
		if cbCount != 2 {
			t.Fatalf("expected leaf callback to be called %d times; called %d", 2, cbCount)
		}
		if len(treeNodes) != 3 {
			t.Fatalf("expected bvh tree to have %d nodes; got %d", 3, len(treeNodes))
		}
	}
}

func TestEmptyWorkList(t *testing.T) {
	treeNodes := Build(nil, 4, func(*scene.BvhNode, []BoundedVolume) {
		t.Fatal("expected leaf callback not to be invoked")
	}, nil)

	if len(treeNodes) != 0 {
		t.Fatalf("expected empty tree; got %d nodes", len(treeNodes))
	}
}

func TestIdenticalCentroidsForceSingleItemLeaves(t *testing.T) {
	box := [2]types.Vec3{{0, 0, 0}, {1, 1, 1}}
	itemList := makeVolumes(box, box, box, box, box)

	for _, splitter := range []Splitter{MidpointSplitter, SurfaceAreaHeuristic} {
		var ids []int
		treeNodes := Build(itemList, 8, recordingLeafCallback(&ids), splitter)

		// 5 items <= 8 so a single leaf is expected without any subdivision.
		if len(treeNodes) != 1 {
			t.Fatalf("expected a single leaf; got %d nodes", len(treeNodes))
		}

		ids = ids[:0]
		treeNodes = Build(itemList, 2, recordingLeafCallback(&ids), splitter)
		leafs := 0
		for _, node := range treeNodes {
			if !node.IsLeaf() {
				continue
			}
			leafs++
			if node.TriCount != 1 {
				t.Fatalf("expected forced split to generate single item leaves; got leaf with %d items", node.TriCount)
			}
		}
		if leafs != 5 {
			t.Fatalf("expected 5 leaves; got %d", leafs)
		}
	}
}

func TestFlattenedTreeInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, splitter := range []Splitter{MidpointSplitter, SurfaceAreaHeuristic} {
		for _, maxLeafItems := range []int{1, 2, 4, 8} {
			itemList := randomVolumes(rng, 257)

			var ids []int
			treeNodes := Build(itemList, maxLeafItems, recordingLeafCallback(&ids), splitter)

			// Walk the flattened tree with a reference depth-first interpreter.
			visited := make([]int, len(itemList))
			leafBBox := types.EmptyBBox()
			var walk func(index int)
			walk = func(index int) {
				node := &treeNodes[index]
				if node.IsLeaf() {
					start, count := node.GetPrimitives()
					if count == 0 || int(count) > maxLeafItems {
						t.Fatalf("expected leaf item count in [1, %d]; got %d", maxLeafItems, count)
					}
					for _, id := range ids[start : start+count] {
						visited[id]++
						if !bboxContains(node.BBox(), itemList[id].BBox()) {
							t.Fatalf("expected leaf bbox to contain item %d", id)
						}
					}
					leafBBox = types.UnionBBox(leafBBox, node.BBox())
					return
				}

				if node.SecondChildOffset <= 0 {
					t.Fatalf("expected interior node %d to have a positive second child offset; got %d", index, node.SecondChildOffset)
				}
				for _, child := range []int{index + 1, index + int(node.SecondChildOffset)} {
					if !bboxContains(node.BBox(), treeNodes[child].BBox()) {
						t.Fatalf("expected node %d bbox to contain child %d bbox", index, child)
					}
					walk(child)
				}
			}
			walk(0)

			for id, count := range visited {
				if count != 1 {
					t.Fatalf("[max leaf items %d] expected item %d to be visited once; visited %d times", maxLeafItems, id, count)
				}
			}
			if leafBBox != treeNodes[0].BBox() {
				t.Fatalf("expected union of leaf bboxes %v to equal root bbox %v", leafBBox, treeNodes[0].BBox())
			}
		}
	}
}

func bboxContains(outer, inner [2]types.Vec3) bool {
	for axis := 0; axis < 3; axis++ {
		if inner[0][axis] < outer[0][axis] || inner[1][axis] > outer[1][axis] {
			return false
		}
	}
	return true
}

func BenchmarkMidpointBuild(b *testing.B) {
	itemList := randomVolumes(rand.New(rand.NewSource(1)), 10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Build(itemList, 4, nil, MidpointSplitter)
	}
}

func BenchmarkSAHBuild(b *testing.B) {
	itemList := randomVolumes(rand.New(rand.NewSource(1)), 10000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Build(itemList, 4, nil, SurfaceAreaHeuristic)
	}
}
