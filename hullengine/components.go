package hullengine

import "sort"

// component is a set of vertices connected through shared triangles,
// together with the triangles that connect them.
type component struct {
	vertices  []int
	triangles [][3]int
}

type unionFind struct {
	parent []int
	rank   []uint8
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]uint8, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(x int) int {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	switch {
	case uf.rank[ra] < uf.rank[rb]:
		uf.parent[ra] = rb
	case uf.rank[ra] > uf.rank[rb]:
		uf.parent[rb] = ra
	default:
		uf.parent[rb] = ra
		uf.rank[ra]++
	}
}

// splitComponents groups triangles by connectivity. Vertices no triangle
// references are dropped. Components are ordered by their lowest vertex.
func splitComponents(nPoints int, tris [][3]int) []component {
	uf := newUnionFind(nPoints)
	for _, t := range tris {
		uf.union(t[0], t[1])
		uf.union(t[1], t[2])
	}

	byRoot := make(map[int]*component)
	seen := make([]bool, nPoints)
	for _, t := range tris {
		root := uf.find(t[0])
		c, ok := byRoot[root]
		if !ok {
			c = &component{}
			byRoot[root] = c
		}
		c.triangles = append(c.triangles, t)
		for _, v := range t {
			if !seen[v] {
				seen[v] = true
				c.vertices = append(c.vertices, v)
			}
		}
	}

	out := make([]component, 0, len(byRoot))
	for _, c := range byRoot {
		sort.Ints(c.vertices)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].vertices[0] < out[j].vertices[0]
	})
	return out
}
