package mesh

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/notargets/femtk/refelem"
	"github.com/notargets/femtk/types"
)

// PartitionConfig holds configuration for mesh partitioning
type PartitionConfig struct {
	NumPartitions    int32
	ImbalanceFactor  float32 // e.g., 1.05 for 5% imbalance
	UseEdgeWeights   bool
	UseVertexWeights bool
	Objective        string // "cut" or "vol"
	Family           types.FEFamily
}

// DefaultPartitionConfig returns default partitioning configuration
func DefaultPartitionConfig(nparts int32) *PartitionConfig {
	return &PartitionConfig{
		NumPartitions:    nparts,
		ImbalanceFactor:  1.05,
		UseEdgeWeights:   true,
		UseVertexWeights: true,
		Objective:        "vol", // minimize communication volume
	}
}

// MeshPartitioner splits the element graph of a mesh into ranks.
type MeshPartitioner struct {
	mesh   *Mesh
	config *PartitionConfig

	// Cost models
	computeCostModel func(g types.GeomElType) int32
	commCostModel    func(faceVertices int) int32
}

func NewMeshPartitioner(mesh *Mesh, config *PartitionConfig) *MeshPartitioner {
	mp := &MeshPartitioner{
		mesh:   mesh,
		config: config,
	}
	// Assembly work of an element grows with the square of its local DOF count
	mp.computeCostModel = func(g types.GeomElType) int32 {
		n := int32(refelem.GetTopology(g).NumNodes(config.Family))
		return n * n
	}
	// Shared DOFs across a face: vertices, plus its edge and center nodes above FIRST
	mp.commCostModel = func(faceVertices int) int32 {
		if config.Family == types.First || faceVertices < 2 {
			return int32(faceVertices)
		}
		cost := 2 * faceVertices
		if faceVertices == 2 {
			cost = 3
		}
		if faceVertices == 4 && config.Family == types.Second {
			cost++
		}
		return int32(cost)
	}
	return mp
}

// buildGraph converts mesh connectivity to the CSR graph form METIS takes.
func (mp *MeshPartitioner) buildGraph() (xadj, adjncy, vwgt, adjwgt []int32) {
	ne := mp.mesh.NumElements()
	if mp.config.UseVertexWeights {
		vwgt = make([]int32, ne)
		for i := 0; i < ne; i++ {
			vwgt[i] = mp.computeCostModel(mp.mesh.ElementTypes[i])
		}
	}
	xadj = make([]int32, ne+1)
	for elem := 0; elem < ne; elem++ {
		for faceIdx, neighbor := range mp.mesh.EToE[elem] {
			if neighbor >= 0 && neighbor != elem {
				adjncy = append(adjncy, int32(neighbor))
				if mp.config.UseEdgeWeights {
					face := mp.mesh.Faces[mp.mesh.EToF[elem][faceIdx]]
					adjwgt = append(adjwgt, mp.commCostModel(len(face.Vertices)))
				}
			}
		}
		xadj[elem+1] = int32(len(adjncy))
	}
	return
}

// RenumberByPartition reorders elements so each partition of EToP is a contiguous range, stable
// within a partition, and sets Ranges accordingly. Connectivity and DOF numberings are rebuilt.
func (m *Mesh) RenumberByPartition(nparts int) (err error) {
	ne := m.NumElements()
	if len(m.EToP) != ne {
		return fmt.Errorf("partition vector has %d entries for %d elements", len(m.EToP), ne)
	}
	perm := make([]int, ne)
	for i := range perm {
		perm[i] = i
		if p := m.EToP[i]; p < 0 || p >= nparts {
			return fmt.Errorf("element %d assigned to partition %d of %d", i, p, nparts)
		}
	}
	sort.SliceStable(perm, func(a, b int) bool { return m.EToP[perm[a]] < m.EToP[perm[b]] })
	var (
		elements = make([][]int, ne)
		geoms    = make([]types.GeomElType, ne)
		tags     = make([]int, ne)
		parts    = make([]int, ne)
	)
	for newID, oldID := range perm {
		elements[newID] = m.Elements[oldID]
		geoms[newID] = m.ElementTypes[oldID]
		tags[newID] = m.ElementTags[oldID]
		parts[newID] = m.EToP[oldID]
	}
	m.Elements, m.ElementTypes, m.ElementTags, m.EToP = elements, geoms, tags, parts
	m.BuildConnectivity()
	m.Ranges = make([][2]int, nparts)
	for k, p := range m.EToP {
		if k == 0 || m.EToP[k-1] != p {
			m.Ranges[p][0] = k
		}
		m.Ranges[p][1] = k + 1
	}
	// Empty partitions keep an empty range positioned after their predecessor
	for p := 1; p < nparts; p++ {
		if m.Ranges[p][1] == 0 {
			m.Ranges[p] = [2]int{m.Ranges[p-1][1], m.Ranges[p-1][1]}
		}
	}
	m.resetDofs()
	return
}

// PartitionStats holds statistics for a single partition
type PartitionStats struct {
	ID           int
	NumElements  int
	ComputeLoad  int64
	ElementTypes map[types.GeomElType]int
	NumNeighbors map[int]int // neighbor partition -> shared faces
}

// Analyze computes partition quality metrics of the mesh's current EToP.
func (mp *MeshPartitioner) Analyze() (partStats []PartitionStats, cutFaces int, imbalance float64) {
	nparts := int(mp.config.NumPartitions)
	partStats = make([]PartitionStats, nparts)
	for i := range partStats {
		partStats[i].ID = i
		partStats[i].ElementTypes = make(map[types.GeomElType]int)
		partStats[i].NumNeighbors = make(map[int]int)
	}
	m := mp.mesh
	for elem := 0; elem < m.NumElements(); elem++ {
		stats := &partStats[m.EToP[elem]]
		stats.NumElements++
		stats.ElementTypes[m.ElementTypes[elem]]++
		stats.ComputeLoad += int64(mp.computeCostModel(m.ElementTypes[elem]))
		for _, neighbor := range m.EToE[elem] {
			if neighbor > elem && m.EToP[neighbor] != m.EToP[elem] {
				cutFaces++
				partStats[m.EToP[elem]].NumNeighbors[m.EToP[neighbor]]++
				partStats[m.EToP[neighbor]].NumNeighbors[m.EToP[elem]]++
			}
		}
	}
	var (
		avgLoad float64
		maxLoad int64
		minLoad = int64(math.MaxInt64)
	)
	for _, stats := range partStats {
		avgLoad += float64(stats.ComputeLoad)
		if stats.ComputeLoad > maxLoad {
			maxLoad = stats.ComputeLoad
		}
		if stats.ComputeLoad < minLoad {
			minLoad = stats.ComputeLoad
		}
	}
	avgLoad /= float64(nparts)
	if avgLoad > 0 {
		imbalance = float64(maxLoad)/avgLoad - 1.0
	}
	return
}

// Report logs the partition quality.
func (mp *MeshPartitioner) Report(objval int32) {
	partStats, cutFaces, imbalance := mp.Analyze()
	log.Printf("Partition Analysis:")
	log.Printf("  Objective value: %d", objval)
	log.Printf("  Cut faces: %d", cutFaces)
	log.Printf("  Load imbalance: %.2f%%", imbalance*100)
	for _, stats := range partStats {
		log.Printf("  Partition %d: %d elements, load %d, types %v, %d neighbors",
			stats.ID, stats.NumElements, stats.ComputeLoad, stats.ElementTypes, len(stats.NumNeighbors))
	}
}

// Partition assigns contiguous element ranges to nranks. With METIS available (build tag metis) the
// element graph is partitioned first and the mesh renumbered; otherwise the split follows the
// existing element order.
func (m *Mesh) Partition(nranks int, family types.FEFamily) (err error) {
	if nranks < 1 {
		return fmt.Errorf("partition into %d ranks: %w", nranks, types.ErrConfiguration)
	}
	if nranks == 1 || nranks >= m.NumElements() || !metisAvailable {
		m.PartitionContiguous(nranks)
		return
	}
	config := DefaultPartitionConfig(int32(nranks))
	config.Family = family
	mp := NewMeshPartitioner(m, config)
	var objval int32
	if objval, err = mp.partitionGraph(); err != nil {
		return
	}
	if err = m.RenumberByPartition(nranks); err != nil {
		return
	}
	mp.Report(objval)
	return
}
