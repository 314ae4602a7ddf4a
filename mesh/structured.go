package mesh

import (
	"fmt"
	"math"

	"github.com/notargets/femtk/types"
)

// Boundary tags of the structured generators. The square is labelled counter clockwise from the
// bottom; the cube adds its bottom and top.
const (
	TagBottom = 1 // y = ymin
	TagRight  = 2 // x = xmax
	TagTop    = 3 // y = ymax
	TagLeft   = 4 // x = xmin
	TagBack   = 5 // z = zmin
	TagFront  = 6 // z = zmax
)

const boundaryTol = 1.e-10

// NewLine meshes [x0, x1] with n line elements, tagged TagLeft at x0 and TagRight at x1.
func NewLine(n int, x0, x1 float64, family types.FEFamily) (m *Mesh, err error) {
	if n < 1 || !(x1 > x0) {
		err = fmt.Errorf("line of %d elements on [%g, %g]: %w", n, x0, x1, types.ErrConfiguration)
		return
	}
	m = NewMesh(1)
	for i := 0; i <= n; i++ {
		m.AddNode([3]float64{x0 + (x1-x0)*float64(i)/float64(n)})
	}
	for i := 0; i < n; i++ {
		m.AddElement(types.Line, []int{i, i + 1}, 0)
	}
	m.finish(family, func(c [3]float64) int {
		if math.Abs(c[0]-x0) < boundaryTol {
			return TagLeft
		}
		return TagRight
	})
	return
}

// NewRectangle meshes [lo, hi] with nx by ny cells of quadrilaterals, or of two triangles each.
func NewRectangle(nx, ny int, g types.GeomElType, lo, hi [2]float64,
	family types.FEFamily) (m *Mesh, err error) {
	if nx < 1 || ny < 1 || !(hi[0] > lo[0] && hi[1] > lo[1]) {
		err = fmt.Errorf("rectangle of %d x %d cells: %w", nx, ny, types.ErrConfiguration)
		return
	}
	if g != types.Quad && g != types.Tri {
		err = fmt.Errorf("rectangle cells must be quad or tri, have %v: %w", g, types.ErrConfiguration)
		return
	}
	m = NewMesh(2)
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			m.AddNode([3]float64{
				lo[0] + (hi[0]-lo[0])*float64(i)/float64(nx),
				lo[1] + (hi[1]-lo[1])*float64(j)/float64(ny),
			})
		}
	}
	id := func(i, j int) int { return i + j*(nx+1) }
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			a, b, c, d := id(i, j), id(i+1, j), id(i+1, j+1), id(i, j+1)
			if g == types.Quad {
				m.AddElement(types.Quad, []int{a, b, c, d}, 0)
				continue
			}
			m.AddElement(types.Tri, []int{a, b, c}, 0)
			m.AddElement(types.Tri, []int{a, c, d}, 0)
		}
	}
	m.finish(family, func(c [3]float64) int {
		switch {
		case math.Abs(c[1]-lo[1]) < boundaryTol:
			return TagBottom
		case math.Abs(c[0]-hi[0]) < boundaryTol:
			return TagRight
		case math.Abs(c[1]-hi[1]) < boundaryTol:
			return TagTop
		default:
			return TagLeft
		}
	})
	return
}

// kuhn lists the six tetrahedra of a cube around its main diagonal, as corner bit masks (x=1, y=2, z=4).
var kuhn = [6][4]int{
	{0, 1, 3, 7}, {0, 1, 5, 7}, {0, 2, 3, 7},
	{0, 2, 6, 7}, {0, 4, 5, 7}, {0, 4, 6, 7},
}

// NewBox meshes [lo, hi] with nx by ny by nz cells of hexahedra, six Kuhn tetrahedra or two
// wedges extruded along z.
func NewBox(nx, ny, nz int, g types.GeomElType, lo, hi [3]float64,
	family types.FEFamily) (m *Mesh, err error) {
	if nx < 1 || ny < 1 || nz < 1 || !(hi[0] > lo[0] && hi[1] > lo[1] && hi[2] > lo[2]) {
		err = fmt.Errorf("box of %d x %d x %d cells: %w", nx, ny, nz, types.ErrConfiguration)
		return
	}
	if g != types.Hex && g != types.Tet && g != types.Wedge {
		err = fmt.Errorf("box cells must be hex, tet or wedge, have %v: %w", g, types.ErrConfiguration)
		return
	}
	m = NewMesh(3)
	for k := 0; k <= nz; k++ {
		for j := 0; j <= ny; j++ {
			for i := 0; i <= nx; i++ {
				m.AddNode([3]float64{
					lo[0] + (hi[0]-lo[0])*float64(i)/float64(nx),
					lo[1] + (hi[1]-lo[1])*float64(j)/float64(ny),
					lo[2] + (hi[2]-lo[2])*float64(k)/float64(nz),
				})
			}
		}
	}
	id := func(i, j, k int) int { return i + (nx+1)*(j+(ny+1)*k) }
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				var corner [8]int
				for b := 0; b < 8; b++ {
					corner[b] = id(i+b&1, j+(b>>1)&1, k+(b>>2)&1)
				}
				switch g {
				case types.Hex:
					m.AddElement(types.Hex, []int{
						corner[0], corner[1], corner[3], corner[2],
						corner[4], corner[5], corner[7], corner[6],
					}, 0)
				case types.Wedge:
					m.AddElement(types.Wedge, []int{
						corner[0], corner[1], corner[3], corner[4], corner[5], corner[7]}, 0)
					m.AddElement(types.Wedge, []int{
						corner[0], corner[3], corner[2], corner[4], corner[7], corner[6]}, 0)
				case types.Tet:
					for _, t := range kuhn {
						m.AddElement(types.Tet, []int{
							corner[t[0]], corner[t[1]], corner[t[2]], corner[t[3]]}, 0)
					}
				}
			}
		}
	}
	m.FixOrientation()
	m.finish(family, func(c [3]float64) int {
		switch {
		case math.Abs(c[2]-lo[2]) < boundaryTol:
			return TagBack
		case math.Abs(c[2]-hi[2]) < boundaryTol:
			return TagFront
		case math.Abs(c[1]-lo[1]) < boundaryTol:
			return TagBottom
		case math.Abs(c[0]-hi[0]) < boundaryTol:
			return TagRight
		case math.Abs(c[1]-hi[1]) < boundaryTol:
			return TagTop
		default:
			return TagLeft
		}
	})
	return
}

func (m *Mesh) finish(family types.FEFamily, tagFn func(c [3]float64) int) {
	m.BuildConnectivity()
	m.TagBoundary(tagFn)
	m.Promote(family)
	m.PartitionContiguous(1)
}

// NewUnitInterval meshes [-1/2, 1/2] with n elements.
func NewUnitInterval(n int, family types.FEFamily) (*Mesh, error) {
	return NewLine(n, -0.5, 0.5, family)
}

// NewUnitSquare meshes [-1/2, 1/2]^2 with n by n cells.
func NewUnitSquare(n int, g types.GeomElType, family types.FEFamily) (*Mesh, error) {
	return NewRectangle(n, n, g, [2]float64{-0.5, -0.5}, [2]float64{0.5, 0.5}, family)
}

// NewUnitCube meshes [-1/2, 1/2]^3 with n by n by n cells.
func NewUnitCube(n int, g types.GeomElType, family types.FEFamily) (*Mesh, error) {
	return NewBox(n, n, n, g, [3]float64{-0.5, -0.5, -0.5}, [3]float64{0.5, 0.5, 0.5}, family)
}
