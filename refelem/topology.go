package refelem

import (
	"fmt"

	"github.com/notargets/femtk/types"
)

// Topology lists the reference vertices of a shape and the sub-entities that carry higher order nodes.
// Node numbering of every element is: vertices, edge midpoints (Edges order), quadrilateral face
// centers (QuadFaces order), then the volume/area center when the shape has one. Each FE family uses a
// prefix of that list, so a lower order field reads the first NumNodes entries of a higher order element.
type Topology struct {
	Geom      types.GeomElType
	Vertices  [][3]float64
	Edges     [][2]int
	QuadFaces [][4]int
	Faces     [][]int // boundary faces, oriented outward
	HasCenter bool    // quad and hex carry a center node in the SECOND family
}

var topologies = map[types.GeomElType]*Topology{
	types.Line: {
		Geom:     types.Line,
		Vertices: [][3]float64{{-1, 0, 0}, {1, 0, 0}},
		Edges:    [][2]int{{0, 1}},
		Faces:    [][]int{{0}, {1}},
	},
	types.Tri: {
		Geom:     types.Tri,
		Vertices: [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Edges:    [][2]int{{0, 1}, {1, 2}, {2, 0}},
		Faces:    [][]int{{0, 1}, {1, 2}, {2, 0}},
	},
	types.Quad: {
		Geom:      types.Quad,
		Vertices:  [][3]float64{{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}},
		Edges:     [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}},
		Faces:     [][]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}},
		HasCenter: true,
	},
	types.Tet: {
		Geom:     types.Tet,
		Vertices: [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		Edges:    [][2]int{{0, 1}, {1, 2}, {2, 0}, {0, 3}, {1, 3}, {2, 3}},
		Faces:    [][]int{{0, 2, 1}, {0, 1, 3}, {1, 2, 3}, {0, 3, 2}},
	},
	types.Hex: {
		Geom: types.Hex,
		Vertices: [][3]float64{
			{-1, -1, -1}, {1, -1, -1}, {1, 1, -1}, {-1, 1, -1},
			{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1},
		},
		Edges: [][2]int{
			{0, 1}, {1, 2}, {2, 3}, {3, 0},
			{4, 5}, {5, 6}, {6, 7}, {7, 4},
			{0, 4}, {1, 5}, {2, 6}, {3, 7},
		},
		QuadFaces: [][4]int{
			{0, 3, 2, 1}, {4, 5, 6, 7}, {0, 1, 5, 4},
			{1, 2, 6, 5}, {2, 3, 7, 6}, {3, 0, 4, 7},
		},
		Faces: [][]int{
			{0, 3, 2, 1}, {4, 5, 6, 7}, {0, 1, 5, 4},
			{1, 2, 6, 5}, {2, 3, 7, 6}, {3, 0, 4, 7},
		},
		HasCenter: true,
	},
	types.Wedge: {
		Geom: types.Wedge,
		Vertices: [][3]float64{
			{0, 0, -1}, {1, 0, -1}, {0, 1, -1},
			{0, 0, 1}, {1, 0, 1}, {0, 1, 1},
		},
		Edges: [][2]int{
			{0, 1}, {1, 2}, {2, 0},
			{3, 4}, {4, 5}, {5, 3},
			{0, 3}, {1, 4}, {2, 5},
		},
		QuadFaces: [][4]int{{0, 1, 4, 3}, {1, 2, 5, 4}, {2, 0, 3, 5}},
		Faces: [][]int{
			{0, 2, 1}, {3, 4, 5},
			{0, 1, 4, 3}, {1, 2, 5, 4}, {2, 0, 3, 5},
		},
	},
}

func GetTopology(g types.GeomElType) *Topology {
	tp, ok := topologies[g]
	if !ok {
		panic(fmt.Errorf("no topology for geometry %v", g))
	}
	return tp
}

// NumNodes is the node count of a family on this shape. On simplices SERENDIPITY and SECOND coincide
// (the P2 element), on lines both give three nodes.
func (tp *Topology) NumNodes(family types.FEFamily) (n int) {
	n = len(tp.Vertices)
	if family == types.First {
		return
	}
	if tp.Geom == types.Line {
		return n + 1
	}
	n += len(tp.Edges)
	if family == types.Serendipity {
		return
	}
	n += len(tp.QuadFaces)
	if tp.HasCenter {
		n++
	}
	return
}

// Nodes returns the reference coordinates of every node of the family, in element numbering order.
func (tp *Topology) Nodes(family types.FEFamily) (nodes [][3]float64) {
	nn := tp.NumNodes(family)
	nodes = make([][3]float64, 0, nn)
	nodes = append(nodes, tp.Vertices...)
	if family == types.First {
		return
	}
	for _, e := range tp.Edges {
		nodes = append(nodes, centroid(tp.Vertices, e[:]))
	}
	for _, f := range tp.QuadFaces {
		if len(nodes) == nn {
			break
		}
		nodes = append(nodes, centroid(tp.Vertices, f[:]))
	}
	if len(nodes) < nn && tp.HasCenter {
		all := make([]int, len(tp.Vertices))
		for i := range all {
			all[i] = i
		}
		nodes = append(nodes, centroid(tp.Vertices, all))
	}
	return
}

func centroid(verts [][3]float64, ids []int) (c [3]float64) {
	for _, id := range ids {
		for d := 0; d < 3; d++ {
			c[d] += verts[id][d]
		}
	}
	for d := 0; d < 3; d++ {
		c[d] /= float64(len(ids))
	}
	return
}

// GeometricElementSpec is the immutable description of one (shape, family) pair.
type GeometricElementSpec struct {
	Geom     types.GeomElType
	Family   types.FEFamily
	Dim      int
	Nodes    [][3]float64
	NumNodes int
	basis    []monomial
	coef     [][]float64 // coef[j][i]: weight of basis polynomial j in shape function i
}

func (s *GeometricElementSpec) String() string {
	return fmt.Sprintf("%v%d", s.Geom, s.NumNodes)
}
