package mesh

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/notargets/femtk/types"
)

// ReadMeshFile reads a mesh file based on extension, then promotes it to the requested family.
func ReadMeshFile(filename string, family types.FEFamily) (m *Mesh, err error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".neu":
		m, err = ReadGambitNeutral(filename)
	case ".su2":
		m, err = ReadSU2(filename)
	case ".msh":
		m, err = ReadGmsh(filename)
	default:
		err = fmt.Errorf("unsupported mesh format: %s: %w", ext, types.ErrUnsupported)
	}
	if err != nil {
		return
	}
	m.Promote(family)
	return
}

// pendingTags collects boundary tags read by vertex set before the face list exists.
type pendingTags map[types.FaceKey]int

func (pt pendingTags) add(verts []int, tag int) {
	pt[faceKey(verts)] = tag
}

// finishRead orients elements, builds connectivity and applies the tags of the file.
func (m *Mesh) finishRead(pt pendingTags) (err error) {
	if m.NumElements() == 0 {
		return fmt.Errorf("mesh has no supported elements")
	}
	for iel, conn := range m.Elements {
		for _, n := range conn {
			if n < 0 || n >= m.NumNodes() {
				return fmt.Errorf("element %d references node %d of %d", iel, n, m.NumNodes())
			}
		}
	}
	m.FixOrientation()
	m.BuildConnectivity()
	for key, tag := range pt {
		faceID, ok := m.FaceMap[key]
		if !ok {
			return fmt.Errorf("boundary entry %v is not a face of the mesh", key)
		}
		m.Faces[faceID].Tag = tag
	}
	m.PartitionContiguous(1)
	return
}
