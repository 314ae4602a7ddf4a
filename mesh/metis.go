//go:build metis

package mesh

import (
	"fmt"

	metis "github.com/notargets/go-metis"
)

const metisAvailable = true

// partitionGraph runs METIS k-way partitioning on the element graph and stores the result in EToP.
func (mp *MeshPartitioner) partitionGraph() (objval int32, err error) {
	xadj, adjncy, vwgt, adjwgt := mp.buildGraph()

	opts := make([]int32, metis.NoOptions)
	if err = metis.SetDefaultOptions(opts); err != nil {
		return 0, fmt.Errorf("failed to set METIS options: %w", err)
	}
	if mp.config.Objective == "vol" {
		opts[metis.OptionObjType] = metis.ObjTypeVol
	} else {
		opts[metis.OptionObjType] = metis.ObjTypeCut
	}
	ubvec := []float32{mp.config.ImbalanceFactor}

	// Handle case where weights might be nil
	var vwgtPtr, adjwgtPtr []int32
	if mp.config.UseVertexWeights {
		vwgtPtr = vwgt
	}
	if mp.config.UseEdgeWeights {
		adjwgtPtr = adjwgt
	}
	part, objval, err := metis.PartGraphKwayWeighted(
		xadj, adjncy, vwgtPtr, adjwgtPtr,
		mp.config.NumPartitions, nil, ubvec, opts,
	)
	if err != nil {
		return 0, fmt.Errorf("METIS partitioning failed: %w", err)
	}
	mp.mesh.EToP = make([]int, mp.mesh.NumElements())
	for i := range mp.mesh.EToP {
		mp.mesh.EToP[i] = int(part[i])
	}
	return
}
