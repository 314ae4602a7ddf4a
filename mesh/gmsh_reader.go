package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/notargets/femtk/refelem"
	"github.com/notargets/femtk/types"
)

// gmshTypes maps the linear Gmsh element types to geometries. Gmsh vertex order matches ours.
var gmshTypes = map[int]types.GeomElType{
	1: types.Line,
	2: types.Tri,
	3: types.Quad,
	4: types.Tet,
	5: types.Hex,
	6: types.Wedge,
}

// ReadGmsh reads a Gmsh 2.2 ASCII file.
func ReadGmsh(filename string) (m *Mesh, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if m, err = ParseGmsh(file); err != nil {
		err = fmt.Errorf("%s: %w", filename, err)
	}
	return
}

type gmshElement struct {
	g        types.GeomElType
	physical int
	nodes    []int
}

// ParseGmsh reads the Gmsh 2.2 ASCII format from r. Elements of the highest dimension present
// form the mesh, tagged with their physical group; elements one dimension lower tag the boundary
// faces they cover. Point elements are ignored, so a 1D mesh carries no boundary tags.
func ParseGmsh(r io.Reader) (m *Mesh, err error) {
	var (
		scanner  = bufio.NewScanner(r)
		nodeID   = make(map[int]int)
		elements []gmshElement
		dim      int
	)
	const maxScanTokenSize = 1024 * 1024 * 10
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)
	m = NewMesh(0)
	count := func(section string) (n int, err error) {
		if !scanner.Scan() {
			return 0, fmt.Errorf("unexpected EOF in %s", section)
		}
		if n, err = strconv.Atoi(strings.TrimSpace(scanner.Text())); err != nil {
			return 0, fmt.Errorf("invalid count in %s: %v", section, err)
		}
		return
	}
	skipTo := func(end string) error {
		for scanner.Scan() {
			if strings.TrimSpace(scanner.Text()) == end {
				return nil
			}
		}
		return fmt.Errorf("missing %s", end)
	}
	for scanner.Scan() {
		switch strings.TrimSpace(scanner.Text()) {
		case "$MeshFormat":
			if !scanner.Scan() {
				return nil, fmt.Errorf("unexpected EOF in MeshFormat")
			}
			parts := strings.Fields(scanner.Text())
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid MeshFormat line")
			}
			if !strings.HasPrefix(parts[0], "2") || parts[1] != "0" {
				return nil, fmt.Errorf("gmsh format %s, file type %s: %w", parts[0], parts[1], types.ErrUnsupported)
			}
			if err = skipTo("$EndMeshFormat"); err != nil {
				return
			}
		case "$Nodes":
			var nn int
			if nn, err = count("Nodes"); err != nil {
				return
			}
			for i := 0; i < nn; i++ {
				if !scanner.Scan() {
					return nil, fmt.Errorf("unexpected EOF in Nodes at node %d", i)
				}
				fields := strings.Fields(scanner.Text())
				if len(fields) < 4 {
					return nil, fmt.Errorf("invalid node entry %q", scanner.Text())
				}
				var (
					id int
					x  [3]float64
				)
				if id, err = strconv.Atoi(fields[0]); err != nil {
					return nil, fmt.Errorf("invalid node ID: %v", err)
				}
				for j := range x {
					if x[j], err = strconv.ParseFloat(fields[j+1], 64); err != nil {
						return nil, fmt.Errorf("invalid coordinate: %v", err)
					}
				}
				nodeID[id] = m.AddNode(x)
			}
			if err = skipTo("$EndNodes"); err != nil {
				return
			}
		case "$Elements":
			var ne int
			if ne, err = count("Elements"); err != nil {
				return
			}
			for i := 0; i < ne; i++ {
				if !scanner.Scan() {
					return nil, fmt.Errorf("unexpected EOF in Elements at element %d", i)
				}
				var el gmshElement
				if el, err = parseGmshElement(scanner.Text(), nodeID); err != nil {
					return
				}
				if el.nodes == nil {
					continue
				}
				if el.g.Dim() > dim {
					dim = el.g.Dim()
				}
				elements = append(elements, el)
			}
			if err = skipTo("$EndElements"); err != nil {
				return
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %v", err)
	}
	pt := make(pendingTags)
	for _, el := range elements {
		switch el.g.Dim() {
		case dim:
			m.AddElement(el.g, el.nodes, el.physical)
		case dim - 1:
			pt.add(el.nodes, el.physical)
		}
	}
	if err = m.finishRead(pt); err != nil {
		return nil, err
	}
	return
}

// parseGmshElement reads "id type ntags tags... nodes...". Point elements return no nodes.
func parseGmshElement(line string, nodeID map[int]int) (el gmshElement, err error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return el, fmt.Errorf("invalid element entry %q", line)
	}
	ints := make([]int, len(fields))
	for i, f := range fields {
		if ints[i], err = strconv.Atoi(f); err != nil {
			return el, fmt.Errorf("invalid element entry %q: %v", line, err)
		}
	}
	code, ntags := ints[1], ints[2]
	if code == 15 {
		return
	}
	if len(ints) < 3+ntags {
		return el, fmt.Errorf("element %d: %d tags on a short entry", ints[0], ntags)
	}
	g, ok := gmshTypes[code]
	if !ok {
		return el, fmt.Errorf("gmsh element type %d: %w", code, types.ErrUnsupported)
	}
	conn := ints[3+ntags:]
	if len(conn) != len(refelem.GetTopology(g).Vertices) {
		return el, fmt.Errorf("element %d of type %v has %d nodes", ints[0], g, len(conn))
	}
	el.g = g
	if ntags > 0 {
		el.physical = ints[3]
	}
	el.nodes = make([]int, len(conn))
	for i, id := range conn {
		if el.nodes[i], ok = nodeID[id]; !ok {
			return el, fmt.Errorf("element %d references unknown node %d", ints[0], id)
		}
	}
	return
}
