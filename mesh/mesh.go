package mesh

import (
	"fmt"
	"sort"
	"sync"

	"github.com/notargets/femtk/refelem"
	"github.com/notargets/femtk/types"
	"github.com/notargets/femtk/utils"
)

// Face is a face of an element; boundary faces carry the tag of the surface they lie on.
type Face struct {
	Vertices []int // Sorted vertex indices
	Element  int   // Parent element
	LocalID  int   // Local face ID within element
	Tag      int   // Boundary tag, zero for interior faces
}

// Mesh is a mixed element mesh. Elements hold node ids in the numbering of refelem: vertices, then
// edge, face and center nodes up to Order.
type Mesh struct {
	Dim          int
	Nodes        [][3]float64
	Elements     [][]int
	ElementTypes []types.GeomElType
	ElementTags  []int
	Order        types.FEFamily

	// Connectivity (built by BuildConnectivity)
	EToE    [][]int // neighbour across each local face, -1 on the boundary
	EToF    [][]int // face id of each local face
	EToP    []int   // partition of each element
	Faces   []Face
	FaceMap map[types.FaceKey]int

	// Higher order nodes created by Promote
	EdgeNodes map[types.EdgeKey]int
	FaceNodes map[types.FaceKey]int

	// Contiguous element range owned by each rank
	Ranges [][2]int

	mu   sync.RWMutex
	dofs map[types.FEFamily]*DofNumbering
}

func NewMesh(dim int) *Mesh {
	return &Mesh{
		Dim:     dim,
		FaceMap:   make(map[types.FaceKey]int),
		EdgeNodes: make(map[types.EdgeKey]int),
		FaceNodes: make(map[types.FaceKey]int),
		dofs:      make(map[types.FEFamily]*DofNumbering),
	}
}

func (m *Mesh) NumElements() int { return len(m.Elements) }
func (m *Mesh) NumNodes() int    { return len(m.Nodes) }

// AddNode appends a node and returns its id.
func (m *Mesh) AddNode(x [3]float64) int {
	m.Nodes = append(m.Nodes, x)
	return len(m.Nodes) - 1
}

func (m *Mesh) ElementType(iel int) types.GeomElType { return m.ElementTypes[iel] }

// AddElement appends an element given its vertex node ids and returns its id.
func (m *Mesh) AddElement(g types.GeomElType, verts []int, tag int) int {
	if nv := len(refelem.GetTopology(g).Vertices); nv != len(verts) {
		panic(fmt.Errorf("%v element needs %d vertices, have %d", g, nv, len(verts)))
	}
	conn := make([]int, len(verts))
	copy(conn, verts)
	if g.Dim() > m.Dim {
		m.Dim = g.Dim()
	}
	m.Elements = append(m.Elements, conn)
	m.ElementTypes = append(m.ElementTypes, g)
	m.ElementTags = append(m.ElementTags, tag)
	return len(m.Elements) - 1
}

// faceKey keys a face of one or two vertices (points and edges) as well as 3 and 4 vertex faces.
func faceKey(verts []int) (fk types.FaceKey) {
	if len(verts) >= 3 {
		return types.NewFaceKey(verts)
	}
	sorted := append([]int{}, verts...)
	sort.Ints(sorted)
	fk = types.FaceKey{-1, -1, -1, -1}
	copy(fk[:], sorted)
	return
}

// BuildConnectivity builds element-to-element and face connectivity from shared vertex sets.
// Tags already set on faces survive a rebuild.
func (m *Mesh) BuildConnectivity() {
	var (
		ne      = m.NumElements()
		oldTags = make(map[types.FaceKey]int)
	)
	for _, f := range m.Faces {
		if f.Tag != 0 {
			oldTags[faceKey(f.Vertices)] = f.Tag
		}
	}
	m.EToE = make([][]int, ne)
	m.EToF = make([][]int, ne)
	m.Faces = m.Faces[:0]
	m.FaceMap = make(map[types.FaceKey]int)
	for elemID := 0; elemID < ne; elemID++ {
		var (
			tp       = refelem.GetTopology(m.ElementTypes[elemID])
			vertices = m.Elements[elemID]
		)
		m.EToE[elemID] = make([]int, len(tp.Faces))
		m.EToF[elemID] = make([]int, len(tp.Faces))
		for localFaceID, local := range tp.Faces {
			faceVerts := make([]int, len(local))
			for i, lv := range local {
				faceVerts[i] = vertices[lv]
			}
			key := faceKey(faceVerts)
			m.EToE[elemID][localFaceID] = -1
			if faceID, exists := m.FaceMap[key]; exists {
				// Face already exists - this is an interior face
				face := &m.Faces[faceID]
				neighborElem := face.Element
				neighborLocalID := face.LocalID
				m.EToE[elemID][localFaceID] = neighborElem
				m.EToE[neighborElem][neighborLocalID] = elemID
				m.EToF[elemID][localFaceID] = faceID
				face.Tag = 0
				continue
			}
			sorted := append([]int{}, faceVerts...)
			sort.Ints(sorted)
			faceID := len(m.Faces)
			m.Faces = append(m.Faces, Face{
				Vertices: sorted,
				Element:  elemID,
				LocalID:  localFaceID,
				Tag:      oldTags[key],
			})
			m.FaceMap[key] = faceID
			m.EToF[elemID][localFaceID] = faceID
		}
	}
}

// IsBoundary reports whether face id lies on the domain boundary.
func (m *Mesh) IsBoundary(faceID int) bool {
	f := m.Faces[faceID]
	return m.EToE[f.Element][f.LocalID] < 0
}

// BoundaryFaces lists the ids of boundary faces.
func (m *Mesh) BoundaryFaces() (ids []int) {
	for id := range m.Faces {
		if m.IsBoundary(id) {
			ids = append(ids, id)
		}
	}
	return
}

// TagBoundary labels every boundary face with tagFn applied to its centroid.
func (m *Mesh) TagBoundary(tagFn func(c [3]float64) int) {
	for _, id := range m.BoundaryFaces() {
		var (
			f = &m.Faces[id]
			c [3]float64
		)
		for _, v := range f.Vertices {
			for d := 0; d < 3; d++ {
				c[d] += m.Nodes[v][d] / float64(len(f.Vertices))
			}
		}
		f.Tag = tagFn(c)
	}
}

// SetFaceTag labels local face lf of element iel.
func (m *Mesh) SetFaceTag(iel, lf, tag int) {
	m.Faces[m.EToF[iel][lf]].Tag = tag
}

// FaceLocalNodes returns the element local node indices lying on local face lf for a family.
func FaceLocalNodes(g types.GeomElType, lf int, family types.FEFamily) (nodes []int) {
	var (
		tp   = refelem.GetTopology(g)
		face = tp.Faces[lf]
		nv   = len(tp.Vertices)
		nn   = tp.NumNodes(family)
	)
	nodes = append(nodes, face...)
	if family == types.First || len(face) < 2 {
		return
	}
	inFace := func(v int) bool {
		for _, f := range face {
			if f == v {
				return true
			}
		}
		return false
	}
	for ie, e := range tp.Edges {
		if inFace(e[0]) && inFace(e[1]) && nv+ie < nn {
			nodes = append(nodes, nv+ie)
		}
	}
	if len(face) == 4 && tp.Geom.Dim() == 3 {
		for iq, q := range tp.QuadFaces {
			if inFace(q[0]) && inFace(q[1]) && inFace(q[2]) && inFace(q[3]) {
				if id := nv + len(tp.Edges) + iq; id < nn {
					nodes = append(nodes, id)
				}
			}
		}
	}
	return
}

// BoundaryNodes collects the global node ids on boundary faces whose tag is accepted by keep.
func (m *Mesh) BoundaryNodes(family types.FEFamily, keep func(tag int) bool) (nodes []int) {
	seen := make(map[int]bool)
	for _, id := range m.BoundaryFaces() {
		f := m.Faces[id]
		if !keep(f.Tag) {
			continue
		}
		for _, ln := range FaceLocalNodes(m.ElementTypes[f.Element], f.LocalID, family) {
			n := m.Elements[f.Element][ln]
			if !seen[n] {
				seen[n] = true
				nodes = append(nodes, n)
			}
		}
	}
	sort.Ints(nodes)
	return
}

// NumDofs is the local DOF count of element iel for a field of the given family.
func (m *Mesh) NumDofs(iel int, family types.FEFamily) int {
	if family > m.Order {
		return 0
	}
	return refelem.GetTopology(m.ElementTypes[iel]).NumNodes(family)
}

// GlobalDof maps local DOF i of element iel to its global index for a family.
func (m *Mesh) GlobalDof(iel, i int, family types.FEFamily) int {
	return m.Dofs(family).NodeToDof[m.Elements[iel][i]]
}

// ElementDofs writes the global index of the first len(dofs) local DOFs of element iel.
func (m *Mesh) ElementDofs(iel int, family types.FEFamily, dofs []int) {
	dn := m.Dofs(family)
	for i, n := range m.Elements[iel][:len(dofs)] {
		dofs[i] = dn.NodeToDof[n]
	}
}

// Coords writes the coordinates of the first NumDofs(iel, family) nodes into three rows of dst,
// growing the rows as needed, and returns the node count.
func (m *Mesh) Coords(iel int, family types.FEFamily, dst [][]float64) (n int) {
	n = m.NumDofs(iel, family)
	for d := 0; d < 3; d++ {
		if cap(dst[d]) < n {
			dst[d] = make([]float64, n)
		}
		dst[d] = dst[d][:n]
	}
	for i := 0; i < n; i++ {
		x := m.Nodes[m.Elements[iel][i]]
		for d := 0; d < 3; d++ {
			dst[d][i] = x[d]
		}
	}
	return
}

// PartitionContiguous assigns each of nranks a contiguous, balanced range of elements.
func (m *Mesh) PartitionContiguous(nranks int) {
	pm := utils.NewPartitionMap(nranks, m.NumElements())
	m.Ranges = pm.Partitions
	m.EToP = make([]int, m.NumElements())
	for rank, r := range m.Ranges {
		for k := r[0]; k < r[1]; k++ {
			m.EToP[k] = rank
		}
	}
}

// OwnedRange is the element range [start, end) owned by rank.
func (m *Mesh) OwnedRange(rank int) (start, end int) {
	if m.Ranges == nil {
		m.PartitionContiguous(1)
	}
	if rank < 0 || rank >= len(m.Ranges) {
		return 0, 0
	}
	return m.Ranges[rank][0], m.Ranges[rank][1]
}

func (m *Mesh) NumRanks() int { return len(m.Ranges) }

// PrintStatistics prints mesh statistics
func (m *Mesh) PrintStatistics() {
	fmt.Printf("Mesh Statistics:\n")
	fmt.Printf("  Nodes: %d\n", m.NumNodes())
	fmt.Printf("  Elements: %d (%v)\n", m.NumElements(), m.Order)
	fmt.Printf("  Faces: %d\n", len(m.Faces))
	typeCounts := make(map[types.GeomElType]int)
	for _, t := range m.ElementTypes {
		typeCounts[t]++
	}
	fmt.Printf("  Element types:\n")
	for t, count := range typeCounts {
		fmt.Printf("    %s: %d\n", t, count)
	}
	tagCounts := make(map[int]int)
	for _, id := range m.BoundaryFaces() {
		tagCounts[m.Faces[id].Tag]++
	}
	fmt.Printf("  Boundary faces by tag: %v\n", tagCounts)
}
