package hullengine

import (
	"math"

	"hullbridge/native"
)

// Points between two cancellation polls while growing a hull.
const hullCheckpointInterval = 64

type face struct {
	v      [3]int
	normal vec3
	offset float64
	dead   bool
}

func newFace(pts []vec3, a, b, c int) face {
	n := pts[b].sub(pts[a]).cross(pts[c].sub(pts[a]))
	if l := n.norm(); l > 0 {
		n = n.scale(1 / l)
	}
	return face{v: [3]int{a, b, c}, normal: n, offset: n.dot(pts[a])}
}

func (f *face) distance(p vec3) float64 {
	return f.normal.dot(p) - f.offset
}

type edge [2]int

// hullEpsilon scales the coplanarity tolerance to the extent of the input.
func hullEpsilon(pts []vec3) float64 {
	lo, hi := bounds(pts)
	return math.Max(hi.sub(lo).norm()*1e-9, 1e-12)
}

// convexHull computes the hull of pts by incremental insertion. Faces are
// wound counter-clockwise seen from outside. The returned vertices are the
// subset of pts referenced by the faces.
func convexHull(pts []vec3, cancelled func() bool) ([]vec3, [][3]int, error) {
	if len(pts) < 4 {
		return nil, nil, ErrDegenerate
	}
	eps := hullEpsilon(pts)

	simplex, ok := initialSimplex(pts, eps)
	if !ok {
		return nil, nil, ErrDegenerate
	}

	centroid := pts[simplex[0]].add(pts[simplex[1]]).add(pts[simplex[2]]).add(pts[simplex[3]]).scale(0.25)
	faces := make([]face, 0, 32)
	edges := make(map[edge]int, 64)

	addFace := func(f face) {
		idx := len(faces)
		faces = append(faces, f)
		edges[edge{f.v[0], f.v[1]}] = idx
		edges[edge{f.v[1], f.v[2]}] = idx
		edges[edge{f.v[2], f.v[0]}] = idx
	}

	for _, tri := range [4][3]int{{0, 1, 2}, {0, 1, 3}, {0, 2, 3}, {1, 2, 3}} {
		a, b, c := simplex[tri[0]], simplex[tri[1]], simplex[tri[2]]
		f := newFace(pts, a, b, c)
		if f.distance(centroid) > 0 {
			f = newFace(pts, a, c, b)
		}
		addFace(f)
	}

	inSimplex := func(i int) bool {
		return i == simplex[0] || i == simplex[1] || i == simplex[2] || i == simplex[3]
	}

	for i, p := range pts {
		if inSimplex(i) {
			continue
		}
		if i%hullCheckpointInterval == 0 && cancelled() {
			return nil, nil, errCancelled
		}

		visible := make(map[int]bool)
		for fi := range faces {
			if !faces[fi].dead && faces[fi].distance(p) > eps {
				visible[fi] = true
			}
		}
		if len(visible) == 0 {
			continue
		}

		var horizon []edge
		for fi := range visible {
			f := faces[fi]
			for k := 0; k < 3; k++ {
				a, b := f.v[k], f.v[(k+1)%3]
				twin, ok := edges[edge{b, a}]
				if !ok || !visible[twin] {
					horizon = append(horizon, edge{a, b})
				}
			}
		}

		for fi := range visible {
			f := &faces[fi]
			f.dead = true
			for k := 0; k < 3; k++ {
				e := edge{f.v[k], f.v[(k+1)%3]}
				if edges[e] == fi {
					delete(edges, e)
				}
			}
		}
		for _, e := range horizon {
			addFace(newFace(pts, e[0], e[1], i))
		}
	}

	remap := make(map[int]int)
	var verts []vec3
	var tris [][3]int
	for _, f := range faces {
		if f.dead {
			continue
		}
		var t [3]int
		for k, v := range f.v {
			idx, ok := remap[v]
			if !ok {
				idx = len(verts)
				remap[v] = idx
				verts = append(verts, pts[v])
			}
			t[k] = idx
		}
		tris = append(tris, t)
	}
	return verts, tris, nil
}

// initialSimplex picks four affinely independent points spanning as much of
// the input as possible.
func initialSimplex(pts []vec3, eps float64) ([4]int, bool) {
	var s [4]int

	for i, p := range pts {
		if p[0] < pts[s[0]][0] {
			s[0] = i
		}
	}

	best := 0.0
	for i, p := range pts {
		if d := p.dist(pts[s[0]]); d > best {
			best, s[1] = d, i
		}
	}
	if best <= eps {
		return s, false
	}

	dir := pts[s[1]].sub(pts[s[0]])
	dir = dir.scale(1 / dir.norm())
	best = 0
	for i, p := range pts {
		if d := p.sub(pts[s[0]]).cross(dir).norm(); d > best {
			best, s[2] = d, i
		}
	}
	if best <= eps {
		return s, false
	}

	plane := newFace(pts, s[0], s[1], s[2])
	best = 0
	for i, p := range pts {
		if d := math.Abs(plane.distance(p)); d > best {
			best, s[3] = d, i
		}
	}
	if best <= eps {
		return s, false
	}
	return s, true
}

// buildHull packages hull geometry with its volume and centroid.
func buildHull(verts []vec3, tris [][3]int) native.Hull {
	h := native.Hull{
		Points:    flatten(verts),
		Triangles: make([]int32, 0, len(tris)*3),
	}
	for _, t := range tris {
		h.Triangles = append(h.Triangles, int32(t[0]), int32(t[1]), int32(t[2]))
	}
	h.Volume, h.Center = volumeAndCenter(verts, tris)
	return h
}

// volumeAndCenter sums signed tetrahedra against the first vertex. Flat
// geometry gets zero volume and the vertex mean as center.
func volumeAndCenter(verts []vec3, tris [][3]int) (float64, [3]float64) {
	if len(verts) == 0 {
		return 0, [3]float64{}
	}
	ref := verts[0]
	var volume float64
	var weighted vec3
	for _, t := range tris {
		a, b, c := verts[t[0]], verts[t[1]], verts[t[2]]
		v := a.sub(ref).dot(b.sub(ref).cross(c.sub(ref))) / 6
		volume += v
		weighted = weighted.add(ref.add(a).add(b).add(c).scale(v / 4))
	}
	if math.Abs(volume) < 1e-15 {
		var mean vec3
		for _, p := range verts {
			mean = mean.add(p)
		}
		return 0, mean.scale(1 / float64(len(verts)))
	}
	center := weighted.scale(1 / volume)
	return math.Abs(volume), [3]float64(center)
}
