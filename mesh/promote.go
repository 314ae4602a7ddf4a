package mesh

import (
	"fmt"

	"github.com/notargets/femtk/refelem"
	"github.com/notargets/femtk/types"
)

// Promote raises the node family of every element, creating edge, quadrilateral face and center
// nodes as needed. Edge and face nodes are shared between elements through their vertex keys, and
// sit at the straight sided position so the geometry of the mesh is unchanged.
func (m *Mesh) Promote(family types.FEFamily) {
	if family <= m.Order {
		return
	}
	for iel, conn := range m.Elements {
		var (
			tp = refelem.GetTopology(m.ElementTypes[iel])
			nv = len(tp.Vertices)
			ne = len(tp.Edges)
			nq = len(tp.QuadFaces)
			nn = tp.NumNodes(family)
		)
		for k := len(conn); k < nn; k++ {
			var id int
			switch {
			case k < nv+ne:
				e := tp.Edges[k-nv]
				id = m.edgeNode(conn[e[0]], conn[e[1]])
			case k < nv+ne+nq:
				q := tp.QuadFaces[k-nv-ne]
				id = m.faceNode([]int{conn[q[0]], conn[q[1]], conn[q[2]], conn[q[3]]})
			default:
				id = m.AddNode(m.average(conn[:nv]))
			}
			conn = append(conn, id)
		}
		m.Elements[iel] = conn
	}
	m.Order = family
	m.resetDofs()
}

func (m *Mesh) edgeNode(v0, v1 int) (id int) {
	var (
		key = types.NewEdgeKey([2]int{v0, v1})
		ok  bool
	)
	if id, ok = m.EdgeNodes[key]; !ok {
		id = m.AddNode(m.average([]int{v0, v1}))
		m.EdgeNodes[key] = id
	}
	return
}

func (m *Mesh) faceNode(verts []int) (id int) {
	var (
		key = types.NewFaceKey(verts)
		ok  bool
	)
	if id, ok = m.FaceNodes[key]; !ok {
		id = m.AddNode(m.average(verts))
		m.FaceNodes[key] = id
	}
	return
}

func (m *Mesh) average(ids []int) (c [3]float64) {
	for _, id := range ids {
		for d := 0; d < 3; d++ {
			c[d] += m.Nodes[id][d]
		}
	}
	for d := 0; d < 3; d++ {
		c[d] /= float64(len(ids))
	}
	return
}

// orientationVolume is the sign carrying triple product of the vertex frame of a volume element.
func (m *Mesh) orientationVolume(iel int) float64 {
	var (
		v = m.Elements[iel]
		a = [3]int{1, 2, 3}
	)
	switch m.ElementTypes[iel] {
	case types.Hex:
		a = [3]int{1, 3, 4}
	case types.Tet, types.Wedge:
	default:
		return 1
	}
	var e [3][3]float64
	for i := 0; i < 3; i++ {
		for d := 0; d < 3; d++ {
			e[i][d] = m.Nodes[v[a[i]]][d] - m.Nodes[v[0]][d]
		}
	}
	return e[0][0]*(e[1][1]*e[2][2]-e[1][2]*e[2][1]) -
		e[0][1]*(e[1][0]*e[2][2]-e[1][2]*e[2][0]) +
		e[0][2]*(e[1][0]*e[2][1]-e[1][1]*e[2][0])
}

// FixOrientation reorders the vertices of inverted volume elements so every element maps from its
// reference shape with a positive Jacobian determinant. It must run before Promote.
func (m *Mesh) FixOrientation() (flipped int) {
	if m.Order != types.First {
		panic(fmt.Errorf("orientation must be fixed on a linear mesh, have %v", m.Order))
	}
	for iel, v := range m.Elements {
		if m.orientationVolume(iel) >= 0 {
			continue
		}
		switch m.ElementTypes[iel] {
		case types.Tet:
			v[1], v[2] = v[2], v[1]
		case types.Wedge:
			v[1], v[2] = v[2], v[1]
			v[4], v[5] = v[5], v[4]
		case types.Hex:
			v[1], v[3] = v[3], v[1]
			v[5], v[7] = v[7], v[5]
		}
		flipped++
	}
	return
}

// DofNumbering compresses the nodes used by one FE family into a contiguous DOF range, numbered in
// order of first appearance along the element list.
type DofNumbering struct {
	Family    types.FEFamily
	NodeToDof []int // -1 for nodes the family does not use
	DofToNode []int
}

func (dn *DofNumbering) NumDofs() int { return len(dn.DofToNode) }

func (m *Mesh) resetDofs() {
	m.mu.Lock()
	m.dofs = make(map[types.FEFamily]*DofNumbering)
	m.mu.Unlock()
}

// Dofs returns the DOF numbering of a family, building it on first use.
func (m *Mesh) Dofs(family types.FEFamily) (dn *DofNumbering) {
	m.mu.RLock()
	dn = m.dofs[family]
	m.mu.RUnlock()
	if dn != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if dn = m.dofs[family]; dn != nil {
		return
	}
	if family > m.Order {
		panic(fmt.Errorf("mesh of order %v has no %v nodes, call Promote first", m.Order, family))
	}
	dn = &DofNumbering{Family: family, NodeToDof: make([]int, m.NumNodes())}
	for i := range dn.NodeToDof {
		dn.NodeToDof[i] = -1
	}
	for iel, conn := range m.Elements {
		nn := refelem.GetTopology(m.ElementTypes[iel]).NumNodes(family)
		for _, n := range conn[:nn] {
			if dn.NodeToDof[n] < 0 {
				dn.NodeToDof[n] = len(dn.DofToNode)
				dn.DofToNode = append(dn.DofToNode, n)
			}
		}
	}
	if m.dofs == nil {
		m.dofs = make(map[types.FEFamily]*DofNumbering)
	}
	m.dofs[family] = dn
	return
}

// NumGlobalDofs is the size of the global system of a field of the family.
func (m *Mesh) NumGlobalDofs(family types.FEFamily) int {
	return m.Dofs(family).NumDofs()
}

// DofCoords is the position of the node carrying a global DOF.
func (m *Mesh) DofCoords(dof int, family types.FEFamily) [3]float64 {
	return m.Nodes[m.Dofs(family).DofToNode[dof]]
}
