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

// gambitTypes maps the NTYPE code of a neutral file to the element geometry.
var gambitTypes = map[int]types.GeomElType{
	1: types.Line,
	2: types.Quad,
	3: types.Tri,
	4: types.Hex,
	5: types.Wedge,
	6: types.Tet,
}

// gambitNodeOrder gives, for each local vertex of our numbering, the neutral file node position.
// Gambit numbers brick vertices lexicographically.
var gambitNodeOrder = map[types.GeomElType][]int{
	types.Hex: {0, 1, 3, 2, 4, 5, 7, 6},
}

// gambitFaces lists the neutral file face definitions per element code, in file node positions.
var gambitFaces = map[int][][]int{
	1: {{0}, {1}},
	2: {{0, 1}, {1, 2}, {2, 3}, {3, 0}},
	3: {{0, 1}, {1, 2}, {2, 0}},
	4: {{0, 1, 5, 4}, {1, 3, 7, 5}, {3, 2, 6, 7}, {2, 0, 4, 6}, {1, 0, 2, 3}, {4, 5, 7, 6}},
	5: {{0, 1, 4, 3}, {1, 2, 5, 4}, {2, 0, 3, 5}, {0, 2, 1}, {3, 4, 5}},
	6: {{1, 0, 2}, {0, 1, 3}, {1, 2, 3}, {2, 0, 3}},
}

// ReadGambitNeutral reads a Gambit neutral file of linear elements. Element groups become element
// tags; boundary condition sets of element/face entries tag faces with the set name when it is an
// integer, with the set's position otherwise.
func ReadGambitNeutral(filename string) (m *Mesh, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if m, err = ParseGambitNeutral(file); err != nil {
		err = fmt.Errorf("%s: %w", filename, err)
	}
	return
}

// ParseGambitNeutral reads the neutral format from r.
func ParseGambitNeutral(r io.Reader) (m *Mesh, err error) {
	var (
		scanner   = bufio.NewScanner(r)
		numnp     int
		nelem     int
		ndfcd     = 3
		fileConn  [][]int // raw neutral connectivity, 0 based
		fileTypes []int
		pt        = make(pendingTags)
		nbc       int
	)
	m = NewMesh(0)
	next := func() (string, bool) {
		if !scanner.Scan() {
			return "", false
		}
		return strings.TrimSpace(scanner.Text()), true
	}
	// Read until we find the problem size parameters
	for {
		line, ok := next()
		if !ok {
			return nil, fmt.Errorf("no NUMNP/NELEM header found")
		}
		if strings.Contains(line, "NUMNP") && strings.Contains(line, "NELEM") {
			line, _ = next()
			values := strings.Fields(line)
			if len(values) < 5 {
				return nil, fmt.Errorf("short problem size line %q", line)
			}
			numnp, _ = strconv.Atoi(values[0])
			nelem, _ = strconv.Atoi(values[1])
			ndfcd, _ = strconv.Atoi(values[4])
			break
		}
	}
	m.Nodes = make([][3]float64, numnp)
	for {
		line, ok := next()
		if !ok {
			break
		}
		switch {
		case line == "ENDOFSECTION":
			continue
		case strings.Contains(line, "NODAL COORDINATES"):
			for {
				if line, ok = next(); !ok || line == "ENDOFSECTION" {
					break
				}
				fields := strings.Fields(line)
				if len(fields) < 1+ndfcd {
					return nil, fmt.Errorf("short coordinate line %q", line)
				}
				id, _ := strconv.Atoi(fields[0])
				if id < 1 || id > numnp {
					return nil, fmt.Errorf("node id %d out of range [1, %d]", id, numnp)
				}
				for d := 0; d < ndfcd && d < 3; d++ {
					if m.Nodes[id-1][d], err = strconv.ParseFloat(fields[1+d], 64); err != nil {
						return nil, err
					}
				}
			}
		case strings.Contains(line, "ELEMENTS/CELLS"):
			for {
				if line, ok = next(); !ok || line == "ENDOFSECTION" {
					break
				}
				// Format: NE NTYPE NDP NODE1 NODE2 ..., continued on following lines past 7 nodes
				fields := strings.Fields(line)
				if len(fields) < 3 {
					continue
				}
				code, _ := strconv.Atoi(fields[1])
				ndp, _ := strconv.Atoi(fields[2])
				nodes := fields[3:]
				for len(nodes) < ndp {
					if line, ok = next(); !ok {
						return nil, fmt.Errorf("truncated element %s", fields[0])
					}
					nodes = append(nodes, strings.Fields(line)...)
				}
				g, known := gambitTypes[code]
				if !known {
					return nil, fmt.Errorf("element %s: NTYPE %d: %w", fields[0], code, types.ErrUnsupported)
				}
				conn := make([]int, ndp)
				for j := range conn {
					v, _ := strconv.Atoi(nodes[j])
					conn[j] = v - 1
				}
				verts, err := gambitVertices(g, conn)
				if err != nil {
					return nil, fmt.Errorf("element %s: %w", fields[0], err)
				}
				m.AddElement(g, verts, 0)
				fileConn = append(fileConn, conn)
				fileTypes = append(fileTypes, code)
			}
			if len(fileConn) != nelem {
				return nil, fmt.Errorf("read %d elements, header declares %d", len(fileConn), nelem)
			}
		case strings.HasPrefix(line, "GROUP:"):
			// Format: GROUP: NGP ELEMENTS: NELGP MATERIAL: MTYP NFLAGS: NFLAGS
			var (
				parts    = strings.Fields(line)
				groupID  int
				numElems int
			)
			for i := 0; i < len(parts)-1; i++ {
				switch parts[i] {
				case "GROUP:":
					groupID, _ = strconv.Atoi(parts[i+1])
				case "ELEMENTS:":
					numElems, _ = strconv.Atoi(parts[i+1])
				}
			}
			next() // entity name
			next() // flags
			for elementsRead := 0; elementsRead < numElems; {
				if line, ok = next(); !ok || line == "ENDOFSECTION" {
					break
				}
				for _, field := range strings.Fields(line) {
					elemID, _ := strconv.Atoi(field)
					if elemID > 0 && elemID <= m.NumElements() {
						m.ElementTags[elemID-1] = groupID
					}
					elementsRead++
				}
			}
		case strings.Contains(line, "BOUNDARY CONDITIONS"):
			nbc++
			line, _ = next()
			parts := strings.Fields(line)
			if len(parts) < 3 {
				return nil, fmt.Errorf("short boundary set header %q", line)
			}
			tag, convErr := strconv.Atoi(parts[0])
			if convErr != nil {
				tag = nbc
			}
			itype, _ := strconv.Atoi(parts[1])
			nentry, _ := strconv.Atoi(parts[2])
			if itype != 1 {
				return nil, fmt.Errorf("boundary set %q: nodal sets: %w", parts[0], types.ErrUnsupported)
			}
			for i := 0; i < nentry; i++ {
				if line, ok = next(); !ok {
					return nil, fmt.Errorf("truncated boundary set %q", parts[0])
				}
				// Format: ELEM ELEMTYPE FACE
				f := strings.Fields(line)
				if len(f) < 3 {
					return nil, fmt.Errorf("short boundary entry %q", line)
				}
				elem, _ := strconv.Atoi(f[0])
				face, _ := strconv.Atoi(f[2])
				if elem < 1 || elem > len(fileConn) {
					return nil, fmt.Errorf("boundary entry references element %d", elem)
				}
				faces := gambitFaces[fileTypes[elem-1]]
				if face < 1 || face > len(faces) {
					return nil, fmt.Errorf("boundary entry references face %d of element %d", face, elem)
				}
				verts := make([]int, len(faces[face-1]))
				for j, pos := range faces[face-1] {
					verts[j] = fileConn[elem-1][pos]
				}
				pt.add(verts, tag)
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

// gambitVertices reorders neutral file vertices into our local numbering.
func gambitVertices(g types.GeomElType, conn []int) (verts []int, err error) {
	if nv := len(refelem.GetTopology(g).Vertices); len(conn) != nv {
		return nil, fmt.Errorf("%v with %d nodes, only linear elements are read: %w",
			g, len(conn), types.ErrUnsupported)
	}
	order, reorder := gambitNodeOrder[g]
	if !reorder {
		return conn, nil
	}
	verts = make([]int, len(conn))
	for i, pos := range order {
		verts[i] = conn[pos]
	}
	return
}
