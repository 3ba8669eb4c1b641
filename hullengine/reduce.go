package hullengine

import (
	"errors"
	"math"

	"hullbridge/native"
)

// hullOf builds the convex hull of pts. Flat point sets keep their source
// triangles so every hull has at least one face.
func hullOf(pts []vec3, source [][3]int, cancelled func() bool) (native.Hull, error) {
	verts, tris, err := convexHull(pts, cancelled)
	switch {
	case err == nil:
		return buildHull(verts, tris), nil
	case errors.Is(err, ErrDegenerate):
		return buildHull(pts, source), nil
	default:
		return native.Hull{}, err
	}
}

func hullTriangles(h native.Hull) [][3]int {
	tris := make([][3]int, len(h.Triangles)/3)
	for i := range tris {
		tris[i] = [3]int{int(h.Triangles[3*i]), int(h.Triangles[3*i+1]), int(h.Triangles[3*i+2])}
	}
	return tris
}

// mergePair returns the hull enclosing both a and b.
func mergePair(a, b native.Hull, cancelled func() bool) (native.Hull, error) {
	pts := append(unflatten(a.Points), unflatten(b.Points)...)
	offset := len(a.Points) / 3
	tris := hullTriangles(a)
	for _, t := range hullTriangles(b) {
		tris = append(tris, [3]int{t[0] + offset, t[1] + offset, t[2] + offset})
	}
	return hullOf(pts, tris, cancelled)
}

func centerDistance(a, b native.Hull) float64 {
	return vec3(a.Center).dist(vec3(b.Center))
}

// mergeInto replaces hulls[j] with the union of hulls[i] and hulls[j] and
// drops hulls[i].
func mergeInto(hulls []native.Hull, i, j int, cancelled func() bool) ([]native.Hull, error) {
	merged, err := mergePair(hulls[i], hulls[j], cancelled)
	if err != nil {
		return hulls, err
	}
	hulls[j] = merged
	return append(hulls[:i], hulls[i+1:]...), nil
}

// mergeSmall folds hulls whose volume is below minVolume times the total
// volume into their nearest neighbour.
func mergeSmall(hulls []native.Hull, minVolume float64, cancelled func() bool) ([]native.Hull, error) {
	if minVolume <= 0 {
		return hulls, nil
	}
	var total float64
	for _, h := range hulls {
		total += h.Volume
	}
	threshold := minVolume * total

	for len(hulls) > 1 {
		if cancelled() {
			return hulls, errCancelled
		}
		small := -1
		for i, h := range hulls {
			if h.Volume < threshold && (small < 0 || h.Volume < hulls[small].Volume) {
				small = i
			}
		}
		if small < 0 {
			break
		}
		var err error
		if hulls, err = mergeInto(hulls, small, nearest(hulls, small), cancelled); err != nil {
			return hulls, err
		}
	}
	return hulls, nil
}

// limitCount merges the closest pair of hulls until at most limit remain.
func limitCount(hulls []native.Hull, limit uint32, cancelled func() bool) ([]native.Hull, error) {
	if limit == 0 {
		return hulls, nil
	}
	for uint32(len(hulls)) > limit {
		if cancelled() {
			return hulls, errCancelled
		}
		bi, bj, best := 0, 1, math.Inf(1)
		for i := range hulls {
			for j := i + 1; j < len(hulls); j++ {
				if d := centerDistance(hulls[i], hulls[j]); d < best {
					bi, bj, best = i, j, d
				}
			}
		}
		var err error
		if hulls, err = mergeInto(hulls, bi, bj, cancelled); err != nil {
			return hulls, err
		}
	}
	return hulls, nil
}

func nearest(hulls []native.Hull, i int) int {
	best, bestDist := -1, math.Inf(1)
	for j := range hulls {
		if j == i {
			continue
		}
		if d := centerDistance(hulls[i], hulls[j]); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

// reduceVertices keeps at most limit hull vertices, chosen by farthest-point
// sampling, and rebuilds the hull from them.
func reduceVertices(h native.Hull, limit uint32, cancelled func() bool) (native.Hull, error) {
	pts := unflatten(h.Points)
	if limit < 4 || uint32(len(pts)) <= limit {
		return h, nil
	}

	start := 0
	for i, p := range pts {
		if p[0] < pts[start][0] {
			start = i
		}
	}
	minDist := make([]float64, len(pts))
	for i := range minDist {
		minDist[i] = math.Inf(1)
	}
	chosen := []int{start}
	for uint32(len(chosen)) < limit {
		last := pts[chosen[len(chosen)-1]]
		next, nextDist := -1, 0.0
		for i, p := range pts {
			if d := p.dist(last); d < minDist[i] {
				minDist[i] = d
			}
			if minDist[i] > nextDist {
				next, nextDist = i, minDist[i]
			}
		}
		if next < 0 {
			break
		}
		chosen = append(chosen, next)
	}

	subset := make([]vec3, len(chosen))
	for i, idx := range chosen {
		subset[i] = pts[idx]
	}
	verts, tris, err := convexHull(subset, cancelled)
	switch {
	case err == nil:
		return buildHull(verts, tris), nil
	case errors.Is(err, ErrDegenerate):
		return h, nil
	default:
		return h, err
	}
}
