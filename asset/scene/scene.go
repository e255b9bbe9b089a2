package scene

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
	"github.com/olekukonko/tablewriter"
)

// Render settings supplied by the scene description.
type RenderState struct {
	// Number of full image iterations (samples per pixel).
	Iterations uint32

	// Max number of bounces per path.
	TraceDepth uint32

	// Base name for the output image.
	ImageName string
}

// A Scene is the immutable, ready to trace description of the world. All
// slices are indexed by the ids stored in the other elements (e.g.
// Triangle.MaterialID indexes Materials).
type Scene struct {
	Geoms     []Geom
	Materials []Material
	Lights    []Light

	// World-space triangles of all mesh geoms ordered so that each BVH leaf
	// references a contiguous run.
	Triangles   []Triangle
	BvhNodeList []BvhNode

	// Radiance returned by rays escaping the scene.
	Background types.Vec3

	Camera      *Camera
	RenderState RenderState
}

// Lookup the light index for a geom. Returns -1 if the geom is not emissive.
func (sc *Scene) LightIndex(geomID int32) int32 {
	for index := range sc.Lights {
		if sc.Lights[index].GeomID == geomID {
			return int32(index)
		}
	}
	return -1
}

// Build a tabular representation of scene statistics.
func (sc *Scene) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Asset Type", "Asset", "Count", "Size"})
	table.Append([]string{"Geometry", "---", "", fmtSize(sc.Geoms, sc.Triangles, sc.BvhNodeList)})
	table.Append([]string{"", "Geoms", fmt.Sprint(len(sc.Geoms)), fmtSize(sc.Geoms)})
	table.Append([]string{"", "Triangles", fmt.Sprint(len(sc.Triangles)), fmtSize(sc.Triangles)})
	table.Append([]string{"", "BVH nodes", fmt.Sprint(len(sc.BvhNodeList)), fmtSize(sc.BvhNodeList)})
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Materials", "---", "", fmtSize(sc.Materials)})
	for _, mat := range sc.Materials {
		table.Append([]string{"", fmt.Sprintf("#%d", mat.ID), mat.Bxdf.String(), ""})
	}
	table.Append([]string{" ", " ", " ", " "})
	table.Append([]string{"Lights", "---", fmt.Sprint(len(sc.Lights)), fmtSize(sc.Lights)})
	for _, light := range sc.Lights {
		table.Append([]string{"", fmt.Sprintf("geom #%d", light.GeomID), fmt.Sprintf("area %.3f", light.Area), ""})
	}
	table.SetFooter([]string{"Total", " ", " ", strings.TrimLeft(fmtSize(sc.Geoms, sc.Triangles, sc.BvhNodeList, sc.Materials, sc.Lights), " ")})

	table.Render()
	return buf.String()
}

// Sum the total space used by a set of slices and return back a formatted
// value with the appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32 = 0.0
	for _, item := range items {
		t := reflect.TypeOf(item)
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}

		totalBytes += float32(int(t.Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
