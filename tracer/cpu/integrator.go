package cpu

import (
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/tracer"
	"github.com/NicholasMoon/Project3-CUDA-Path-Tracer/types"
)

// Shadow rays stop this far before the sampled light point.
const shadowEpsilon = 2 * rayEpsilon

// Generate one primary path per block pixel. Paths start with an empty
// bounce budget; the integrator assigns it.
func (tr *Tracer) generatePrimaryRays(blockReq *tracer.BlockRequest, antialias bool) error {
	frameW := blockReq.FrameW
	numPaths := int(frameW * blockReq.BlockH)
	tr.resizeBuffers(numPaths)
	tr.numActive = numPaths

	camera := tr.camera
	firstPixel := blockReq.BlockY * frameW
	iteration := blockReq.Iteration

	return tr.parallelFor(numPaths, func(start, end int) {
		for index := start; index < end; index++ {
			pixelIndex := firstPixel + uint32(index)
			px, py := float32(pixelIndex%frameW), float32(pixelIndex/frameW)

			s := newSampler(iteration, pixelIndex, 0, streamCamera)
			jitter := types.XY(0.5, 0.5)
			if antialias {
				jitter = s.Vec2()
			}
			var lensSample types.Vec2
			if camera.LensRadius > 0 {
				lensSample = concentricSampleDisk(s.Vec2())
			}

			tr.paths[index] = pathSegment{
				ray:        camera.Ray(px+jitter[0], py+jitter[1], lensSample),
				throughput: types.Splat3(1),
				pixelIndex: pixelIndex,
			}
		}
	})
}

// Assign the bounce budget to all active paths.
func (tr *Tracer) setBounceBudget(maxDepth uint32) {
	for index := 0; index < tr.numActive; index++ {
		tr.paths[index].remaining = maxDepth
	}
}

// Find the closest hit for every active path.
func (tr *Tracer) rayIntersectionQuery() error {
	sd := tr.sceneData
	return tr.parallelFor(tr.numActive, func(start, end int) {
		for index := start; index < end; index++ {
			sd.intersect(&tr.paths[index].ray, &tr.intersections[index])
		}
	})
}

// Add the background radiance to paths that escaped the scene and retire them.
func (tr *Tracer) shadeMisses() error {
	background := tr.sceneData.scene.Background
	return tr.parallelFor(tr.numActive, func(start, end int) {
		for index := start; index < end; index++ {
			if tr.intersections[index].hit() {
				continue
			}
			path := &tr.paths[index]
			path.addRadiance(background)
			path.retire()
		}
	})
}

// Shade the hits of all active paths. Emissive hits add their radiance and
// retire the path. Other hits generate a shadow ray towards a point sampled
// on a light unless their BSDF is a pure delta distribution.
func (tr *Tracer) shadeHits(iteration, bounce uint32, heuristic MISHeuristic) error {
	sd := tr.sceneData
	materials := sd.scene.Materials
	return tr.parallelFor(tr.numActive, func(start, end int) {
		for index := start; index < end; index++ {
			lightRay := &tr.lightRays[index]
			lightRay.valid = false

			isect := &tr.intersections[index]
			if !isect.hit() {
				continue
			}
			path := &tr.paths[index]
			mat := &materials[isect.MaterialID]

			if mat.IsEmissive() {
				le := mat.Radiance()
				lightIndex := sd.lightByGeom[isect.GeomID]
				if bounce != 0 && !path.specularBounce && lightIndex >= 0 {
					lightPdf := sd.lightPdf(lightIndex, isect.Dist, isect.Normal.Dot(path.ray.Dir))
					le = le.Mul(heuristic.Weight(path.lastPdf, lightPdf))
				}
				path.addRadiance(le)
				path.retire()
				continue
			}

			if mat.Bxdf.IsSpecular() {
				continue
			}

			s := newSampler(iteration, path.pixelIndex, bounce, streamLight)
			ls, ok := sd.sampleLight(&s)
			if !ok {
				continue
			}

			shadowRay, dist, ok := newShadowRay(path.ray.At(isect.Dist), isect.GeomNormal, ls.Point)
			if !ok {
				continue
			}
			wi := shadowRay.Dir

			sf := newShadingFrame(path.ray.Dir, isect.Normal)
			if !mat.Bxdf.IsTransmissive() && wi.Dot(sf.n) <= 0 {
				continue
			}
			f, bsdfPdf := evalBsdf(mat, &sf, wi)
			lightPdf := sd.lightPdf(ls.LightIndex, dist, ls.Normal.Dot(wi))
			if f.IsZero() || !(lightPdf > 0) {
				continue
			}

			*lightRay = misLightRay{
				ray:        shadowRay,
				maxDist:    dist - shadowEpsilon,
				valid:      true,
				f:          f,
				bsdfPdf:    bsdfPdf,
				lightIndex: ls.LightIndex,
				lightPdf:   lightPdf,
				radiance:   ls.Radiance,
				lastVertex: path.remaining <= 1,
			}
		}
	})
}

// Trace the shadow rays generated by shadeHits.
func (tr *Tracer) rayIntersectionTest() error {
	sd := tr.sceneData
	return tr.parallelFor(tr.numActive, func(start, end int) {
		for index := start; index < end; index++ {
			lightRay := &tr.lightRays[index]
			if !lightRay.valid {
				continue
			}
			tr.lightHits[index].occluded = sd.occluded(&lightRay.ray, lightRay.maxDist)
		}
	})
}

// Add the MIS weighted contribution of unoccluded light samples.
func (tr *Tracer) accumulateEmissiveSamples(heuristic MISHeuristic) error {
	return tr.parallelFor(tr.numActive, func(start, end int) {
		for index := start; index < end; index++ {
			lightRay := &tr.lightRays[index]
			if !lightRay.valid {
				continue
			}

			lightHit := &tr.lightHits[index]
			if lightHit.occluded {
				lightHit.estimate = types.Vec3{}
				lightHit.weight = 0
				continue
			}

			lightHit.estimate = lightRay.f.MulVec(lightRay.radiance).Mul(1 / lightRay.lightPdf)
			lightHit.weight = 1
			if !lightRay.lastVertex {
				lightHit.weight = heuristic.Weight(lightRay.lightPdf, lightRay.bsdfPdf)
			}
			tr.paths[index].addRadiance(lightHit.estimate.Mul(lightHit.weight))
		}
	})
}

// Sample the BSDF of every path that is still active to generate its next
// ray. Paths at their last vertex are retired instead.
func (tr *Tracer) sampleBsdf(iteration, bounce uint32) error {
	materials := tr.sceneData.scene.Materials
	return tr.parallelFor(tr.numActive, func(start, end int) {
		for index := start; index < end; index++ {
			path := &tr.paths[index]
			if path.remaining == 0 {
				continue
			}
			if path.remaining == 1 {
				path.retire()
				continue
			}

			isect := &tr.intersections[index]
			mat := &materials[isect.MaterialID]
			sf := newShadingFrame(path.ray.Dir, isect.Normal)

			s := newSampler(iteration, path.pixelIndex, bounce, streamBsdf)
			bs, ok := sampleBsdf(mat, &sf, &s)
			if !ok || !(bs.Pdf > 0) || !path.scaleThroughput(bs.Weight) {
				path.retire()
				continue
			}

			hitPoint := path.ray.At(isect.Dist)
			path.ray = types.NewRay(spawnOrigin(hitPoint, isect.GeomNormal, bs.Wi), bs.Wi)
			path.specularBounce = bs.Specular
			path.lastPdf = bs.Pdf
			path.remaining--
		}
	})
}

// Move the radiance of retired paths into the accumulator and compact the
// active set. If flush is set every path is retired. Contributions that are
// not finite or negative are discarded.
func (tr *Tracer) compactPaths(flush bool) {
	accum := tr.accumBuffer
	active := 0
	for index := 0; index < tr.numActive; index++ {
		path := &tr.paths[index]
		if path.remaining != 0 && !flush {
			if active != index {
				tr.paths[active] = *path
			}
			active++
			continue
		}

		if !isValidRadiance(path.radiance) {
			continue
		}
		offset := path.pixelIndex * 3
		accum[offset] += path.radiance[0]
		accum[offset+1] += path.radiance[1]
		accum[offset+2] += path.radiance[2]
	}
	tr.numActive = active
}
