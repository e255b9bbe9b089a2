package bvh

import (
	"math"
	"sort"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

// The number of candidate planes evaluated per axis by the SAH splitter.
const sahBins = 16

var (
	// Split at the centroid midpoint of the axis with the greatest centroid
	// spread, falling back to a median split if one side ends up empty.
	MidpointSplitter Splitter = midpointSplitter{}

	// Split at the binned candidate plane with the lowest surface area
	// heuristic cost. Axes are scored in parallel.
	SurfaceAreaHeuristic Splitter = surfaceAreaHeuristic{}
)

type midpointSplitter struct{}

func (midpointSplitter) Split(workList []BoundedVolume, centroidBBox [2]types.Vec3) (Axis, []BoundedVolume, []BoundedVolume, bool) {
	extent := centroidBBox[1].Sub(centroidBBox[0])
	axis := Axis(extent.MaxDimension())
	if extent[axis] <= 0 {
		return axis, nil, nil, false
	}

	splitPoint := 0.5 * (centroidBBox[0][axis] + centroidBBox[1][axis])
	left, right := partitionAt(workList, axis, splitPoint)
	if len(left) == 0 || len(right) == 0 {
		left, right = medianSplit(workList, axis)
	}
	return axis, left, right, true
}

// Split the work list into items whose centroid lies below the split point
// and the rest.
func partitionAt(workList []BoundedVolume, axis Axis, splitPoint float32) (left, right []BoundedVolume) {
	left = make([]BoundedVolume, 0, len(workList))
	right = make([]BoundedVolume, 0, len(workList))
	for _, item := range workList {
		if item.Center()[axis] < splitPoint {
			left = append(left, item)
		} else {
			right = append(right, item)
		}
	}
	return left, right
}

// Sort a copy of the work list by centroid and split it in two halves.
func medianSplit(workList []BoundedVolume, axis Axis) (left, right []BoundedVolume) {
	sorted := make([]BoundedVolume, len(workList))
	copy(sorted, workList)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Center()[axis] < sorted[j].Center()[axis]
	})
	mid := len(sorted) / 2
	return sorted[:mid], sorted[mid:]
}

type splitScore struct {
	axis       Axis
	splitPoint float32
	score      float32
}

type surfaceAreaHeuristic struct{}

// Evaluate sahBins candidate planes along each axis with a non-zero centroid
// extent and split at the cheapest one. The SAH cost of a split is:
//
// left count * left BBOX area + right count * right BBOX area.
//
// Splits generating an empty partition get the worst possible score.
func (h surfaceAreaHeuristic) Split(workList []BoundedVolume, centroidBBox [2]types.Vec3) (Axis, []BoundedVolume, []BoundedVolume, bool) {
	extent := centroidBBox[1].Sub(centroidBBox[0])
	scoreChan := make(chan splitScore)
	pendingScores := 0

	for axis := XAxis; axis <= ZAxis; axis++ {
		if extent[axis] <= 0 {
			continue
		}

		pendingScores++
		go func(axis Axis) {
			best := splitScore{axis: axis, score: math.MaxFloat32}
			step := extent[axis] / sahBins
			for bin := 1; bin < sahBins; bin++ {
				splitPoint := centroidBBox[0][axis] + float32(bin)*step
				if score := h.scoreSplit(workList, axis, splitPoint); score < best.score {
					best.splitPoint = splitPoint
					best.score = score
				}
			}
			scoreChan <- best
		}(axis)
	}

	if pendingScores == 0 {
		return XAxis, nil, nil, false
	}

	// Collect axis results and pick the best split
	bestSplit := splitScore{score: math.MaxFloat32}
	for ; pendingScores > 0; pendingScores-- {
		candidate := <-scoreChan
		if candidate.score < bestSplit.score ||
			(candidate.score == bestSplit.score && candidate.axis < bestSplit.axis) {
			bestSplit = candidate
		}
	}

	if bestSplit.score == math.MaxFloat32 {
		axis := Axis(extent.MaxDimension())
		left, right := medianSplit(workList, axis)
		return axis, left, right, true
	}

	left, right := partitionAt(workList, bestSplit.axis, bestSplit.splitPoint)
	return bestSplit.axis, left, right, true
}

func (h surfaceAreaHeuristic) scoreSplit(workList []BoundedVolume, axis Axis, splitPoint float32) float32 {
	lbox := types.EmptyBBox()
	rbox := types.EmptyBBox()
	leftCount, rightCount := 0, 0
	for _, item := range workList {
		if item.Center()[axis] < splitPoint {
			leftCount++
			lbox = types.UnionBBox(lbox, item.BBox())
		} else {
			rightCount++
			rbox = types.UnionBBox(rbox, item.BBox())
		}
	}

	if leftCount == 0 || rightCount == 0 {
		return math.MaxFloat32
	}

	return float32(leftCount)*halfArea(lbox) + float32(rightCount)*halfArea(rbox)
}

func halfArea(bbox [2]types.Vec3) float32 {
	side := bbox[1].Sub(bbox[0])
	return side[0]*side[1] + side[1]*side[2] + side[0]*side[2]
}

// Lookup a splitter by name ("midpoint" or "sah").
func SplitterByName(name string) (Splitter, bool) {
	switch name {
	case "midpoint":
		return MidpointSplitter, true
	case "sah":
		return SurfaceAreaHeuristic, true
	}
	return nil, false
}
