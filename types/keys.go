package types

import (
	"fmt"
	"math"
	"sort"
)

/*
EdgeKey stores the two vertex ids of an edge packed in a uint64, smaller id in the low word, so that an edge
shared by two elements hashes the same regardless of the direction each element walks it.
*/
type EdgeKey uint64

func NewEdgeKey(verts [2]int) (packed EdgeKey) {
	var (
		limit = math.MaxUint32
	)
	for _, vert := range verts {
		if vert < 0 || vert > limit {
			panic(fmt.Errorf("unable to pack two ints into a uint64, have %d and %d as inputs",
				verts[0], verts[1]))
		}
	}
	var i1, i2 int
	if verts[0] <= verts[1] {
		i1, i2 = verts[0], verts[1]
	} else {
		i1, i2 = verts[1], verts[0]
	}
	packed = EdgeKey(i1 + i2<<32)
	return
}

func (ek EdgeKey) GetVertices(rev bool) (verts [2]int) {
	var (
		enTmp EdgeKey
	)
	enTmp = ek >> 32
	verts[1] = int(enTmp)
	verts[0] = int(ek - enTmp*(1<<32))
	if rev {
		verts[0], verts[1] = verts[1], verts[0]
	}
	return
}

// FaceKey identifies a triangular or quadrilateral face by its sorted vertex ids; unused slots hold -1.
type FaceKey [4]int

func NewFaceKey(verts []int) (fk FaceKey) {
	if len(verts) < 3 || len(verts) > 4 {
		panic(fmt.Errorf("a face has 3 or 4 vertices, have %d", len(verts)))
	}
	sorted := make([]int, len(verts))
	copy(sorted, verts)
	sort.Ints(sorted)
	fk = FaceKey{-1, -1, -1, -1}
	copy(fk[:], sorted)
	return
}

func (fk FaceKey) NumVertices() (n int) {
	for _, v := range fk {
		if v >= 0 {
			n++
		}
	}
	return
}
