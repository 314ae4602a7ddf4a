package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/femtk/types"
)

// su2Types maps SU2 (VTK) element codes to geometries. VTK vertex order matches ours for every
// supported shape.
var su2Types = map[int]types.GeomElType{
	3:  types.Line,
	5:  types.Tri,
	9:  types.Quad,
	10: types.Tet,
	12: types.Hex,
	13: types.Wedge,
}

// getNumNodesSU2 returns the number of nodes for an SU2 element type
func getNumNodesSU2(su2Type int) int {
	switch su2Type {
	case 1:
		return 1 // Vertex, a boundary marker of a 1D mesh
	case 3:
		return 2 // Line
	case 5:
		return 3 // Triangle
	case 9:
		return 4 // Quad
	case 10:
		return 4 // Tet
	case 12:
		return 8 // Hex
	case 13:
		return 6 // Prism
	default:
		return 0
	}
}

// ReadSU2 reads an SU2 native format file. Markers tag faces with their name when it is an
// integer, with their position (from 1) otherwise.
func ReadSU2(filename string) (m *Mesh, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if m, err = ParseSU2(file); err != nil {
		err = fmt.Errorf("%s: %w", filename, err)
	}
	return
}

// ParseSU2 reads the SU2 format from r.
func ParseSU2(r io.Reader) (m *Mesh, err error) {
	var (
		scanner = bufio.NewScanner(r)
		ndime   int
		pt      = make(pendingTags)
	)
	m = NewMesh(0)
	record := func() ([]int, error) {
		if !scanner.Scan() {
			return nil, fmt.Errorf("unexpected end of file")
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 1 {
			return nil, fmt.Errorf("empty element record")
		}
		code, _ := strconv.Atoi(fields[0])
		nn := getNumNodesSU2(code)
		if nn == 0 {
			return nil, fmt.Errorf("SU2 element type %d: %w", code, types.ErrUnsupported)
		}
		if len(fields) < 1+nn {
			return nil, fmt.Errorf("short element record %q", scanner.Text())
		}
		rec := make([]int, 1+nn)
		rec[0] = code
		for j := 0; j < nn; j++ {
			rec[1+j], _ = strconv.Atoi(fields[1+j])
		}
		return rec, nil
	}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Skip comments
		if strings.HasPrefix(line, "%") || line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "NDIME="):
			fmt.Sscanf(line, "NDIME=%d", &ndime)
			if ndime < 1 || ndime > 3 {
				return nil, fmt.Errorf("NDIME=%d", ndime)
			}
		case strings.HasPrefix(line, "NELEM="):
			var nelem int
			fmt.Sscanf(line, "NELEM=%d", &nelem)
			for i := 0; i < nelem; i++ {
				rec, err := record()
				if err != nil {
					return nil, err
				}
				g, ok := su2Types[rec[0]]
				if !ok || g.Dim() != ndime {
					return nil, fmt.Errorf("element %d of type %d in a %dD mesh: %w",
						i, rec[0], ndime, types.ErrUnsupported)
				}
				m.AddElement(g, rec[1:], 0)
			}
		case strings.HasPrefix(line, "NPOIN="):
			var npoin int
			fmt.Sscanf(line, "NPOIN=%d", &npoin)
			if ndime == 0 {
				return nil, fmt.Errorf("NPOIN before NDIME")
			}
			m.Nodes = make([][3]float64, npoin)
			for i := 0; i < npoin; i++ {
				if !scanner.Scan() {
					return nil, fmt.Errorf("truncated point list")
				}
				fields := strings.Fields(scanner.Text())
				if len(fields) < ndime {
					return nil, fmt.Errorf("short point record %q", scanner.Text())
				}
				// Point ID is the optional trailing field
				ptID := i
				if len(fields) > ndime {
					ptID, _ = strconv.Atoi(fields[len(fields)-1])
				}
				if ptID < 0 || ptID >= npoin {
					return nil, fmt.Errorf("point id %d out of range", ptID)
				}
				for j := 0; j < ndime; j++ {
					if m.Nodes[ptID][j], err = strconv.ParseFloat(fields[j], 64); err != nil {
						return nil, err
					}
				}
			}
		case strings.HasPrefix(line, "NMARK="):
			var nmark int
			fmt.Sscanf(line, "NMARK=%d", &nmark)
			for i := 0; i < nmark; i++ {
				var (
					tagName      string
					nMarkerElems int
				)
				for tagName == "" && scanner.Scan() {
					markerLine := strings.TrimSpace(scanner.Text())
					if strings.HasPrefix(markerLine, "MARKER_TAG=") {
						tagName = strings.TrimSpace(strings.TrimPrefix(markerLine, "MARKER_TAG="))
					}
				}
				if !scanner.Scan() {
					return nil, fmt.Errorf("marker %q has no element count", tagName)
				}
				fmt.Sscanf(strings.TrimSpace(scanner.Text()), "MARKER_ELEMS=%d", &nMarkerElems)
				tag, convErr := strconv.Atoi(tagName)
				if convErr != nil {
					tag = i + 1
				}
				for j := 0; j < nMarkerElems; j++ {
					rec, err := record()
					if err != nil {
						return nil, fmt.Errorf("marker %q: %w", tagName, err)
					}
					pt.add(rec[1:], tag)
				}
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	if err = m.finishRead(pt); err != nil {
		return nil, err
	}
	return
}
