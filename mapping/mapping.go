package mapping

import (
	"fmt"
	"math"

	"github.com/notargets/femtk/refelem"
	"github.com/notargets/femtk/types"
)

// MINDET is the smallest admissible Jacobian determinant.
const MINDET = 1.e-14

// planarTol bounds |Jac_z| / detJac for a boundary curve whose normal is requested.
const planarTol = 1.e-10

var (
	ErrDegenerateGeometry   = fmt.Errorf("degenerate element: %w", types.ErrGeometry)
	ErrUnsupportedOperation = fmt.Errorf("normal of a volume element: %w", types.ErrUnsupported)
	ErrNonPlanarCurve       = fmt.Errorf("curve normal needs a curve in the z=0 plane: %w", types.ErrUnsupported)
)

// Kind tags the (topological dimension, space dimension) specialization of a map.
type Kind uint8

const (
	Dim1In3 Kind = iota
	Dim2In3
	Dim3In3
)

func (k Kind) String() string {
	return [...]string{"Dim1In3", "Dim2In3", "Dim3In3"}[k]
}

// Dim is the topological dimension D of the kind.
func (k Kind) Dim() int { return int(k) + 1 }

// Result holds the quantities of one (element, quadrature point) evaluation. Jac is D x 3 and
// JacInv is 3 x D; entries outside those blocks are zero.
type Result struct {
	Kind   Kind
	Jac    [3][3]float64
	JacInv [3][3]float64
	DetJac float64
}

// Map is the geometric mapping of one element family. It is read only and may be shared.
type Map struct {
	Kind     Kind
	Table    *refelem.Table
	SpaceDim int // dimension of the problem; coordinates are always padded to three rows
}

// planar is a surface element of a two dimensional problem: its Jacobian is square and its
// determinant keeps its sign, so a clockwise element is a fault.
func (m Map) planar() bool { return m.Kind == Dim2In3 && m.SpaceDim == 2 }

var kindByGeom = map[types.GeomElType]Kind{
	types.Hex:   Dim3In3,
	types.Tet:   Dim3In3,
	types.Wedge: Dim3In3,
	types.Quad:  Dim2In3,
	types.Tri:   Dim2In3,
	types.Line:  Dim1In3,
}

// New selects the specialization for a geometry name and a requested space dimension.
func New(geomName string, spaceDim int, table *refelem.Table) (m Map, err error) {
	var g types.GeomElType
	if g, err = types.NewGeomElType(geomName); err != nil {
		return
	}
	return NewFromGeom(g, spaceDim, table)
}

func NewFromGeom(g types.GeomElType, spaceDim int, table *refelem.Table) (m Map, err error) {
	kind, ok := kindByGeom[g]
	switch {
	case !ok:
		err = fmt.Errorf("no mapping for geometry %v: %w", g, types.ErrConfiguration)
	case table == nil || table.Spec.Geom != g:
		err = fmt.Errorf("mapping for %v needs a %v table: %w", g, g, types.ErrConfiguration)
	case spaceDim < kind.Dim() || spaceDim > 3:
		err = fmt.Errorf("a %v element cannot live in %d-space: %w", g, spaceDim, types.ErrConfiguration)
	}
	if err != nil {
		return
	}
	m = Map{Kind: kind, Table: table, SpaceDim: spaceDim}
	return
}

// ComputeJacobian evaluates Jac, JacInv and detJac at quadrature point ig. coords holds the
// physical node coordinates as three rows of NumNodes columns.
func (m Map) ComputeJacobian(coords [][]float64, ig int, res *Result) (err error) {
	var (
		dphi = m.Table.DPhi[ig]
		D    = m.Kind.Dim()
		n    = m.Table.NumNodes()
	)
	*res = Result{Kind: m.Kind}
	for r := 0; r < D; r++ {
		for d := 0; d < 3; d++ {
			var s float64
			x := coords[d][:n]
			for i, dr := range dphi[r][:n] {
				s += dr * x[i]
			}
			res.Jac[r][d] = s
		}
	}
	switch {
	case m.Kind == Dim1In3:
		err = res.line()
	case m.planar():
		err = res.planarSurface()
	case m.Kind == Dim2In3:
		err = res.surface()
	default:
		err = res.volume()
	}
	return
}

func (res *Result) line() error {
	J := &res.Jac
	JJt := J[0][0]*J[0][0] + J[0][1]*J[0][1] + J[0][2]*J[0][2]
	res.DetJac = math.Sqrt(JJt)
	if res.DetJac <= MINDET {
		return fmt.Errorf("detJac = %g: %w", res.DetJac, ErrDegenerateGeometry)
	}
	for d := 0; d < 3; d++ {
		res.JacInv[d][0] = J[0][d] / JJt
	}
	return nil
}

func (res *Result) surface() error {
	var (
		J   = &res.Jac
		g00 = J[0][0]*J[0][0] + J[0][1]*J[0][1] + J[0][2]*J[0][2]
		g01 = J[0][0]*J[1][0] + J[0][1]*J[1][1] + J[0][2]*J[1][2]
		g11 = J[1][0]*J[1][0] + J[1][1]*J[1][1] + J[1][2]*J[1][2]
		det = g00*g11 - g01*g01
	)
	res.DetJac = math.Sqrt(math.Abs(det))
	if res.DetJac <= MINDET {
		return fmt.Errorf("detJac = %g: %w", res.DetJac, ErrDegenerateGeometry)
	}
	inv := [2][2]float64{{g11 / det, -g01 / det}, {-g01 / det, g00 / det}}
	for i := 0; i < 3; i++ {
		for j := 0; j < 2; j++ {
			res.JacInv[i][j] = J[0][i]*inv[0][j] + J[1][i]*inv[1][j]
		}
	}
	return nil
}

func (res *Result) planarSurface() error {
	J := &res.Jac
	det := J[0][0]*J[1][1] - J[0][1]*J[1][0]
	res.DetJac = det
	if det <= MINDET {
		return fmt.Errorf("detJac = %g: %w", det, ErrDegenerateGeometry)
	}
	res.JacInv[0][0] = J[1][1] / det
	res.JacInv[0][1] = -J[0][1] / det
	res.JacInv[1][0] = -J[1][0] / det
	res.JacInv[1][1] = J[0][0] / det
	return nil
}

func (res *Result) volume() error {
	J := &res.Jac
	det := J[0][0]*(J[1][1]*J[2][2]-J[1][2]*J[2][1]) +
		J[0][1]*(J[1][2]*J[2][0]-J[1][0]*J[2][2]) +
		J[0][2]*(J[1][0]*J[2][1]-J[1][1]*J[2][0])
	res.DetJac = det
	if det <= MINDET {
		return fmt.Errorf("detJac = %g: %w", det, ErrDegenerateGeometry)
	}
	oodet := 1. / det
	res.JacInv = [3][3]float64{
		{
			(J[1][1]*J[2][2] - J[1][2]*J[2][1]) * oodet,
			(J[0][2]*J[2][1] - J[0][1]*J[2][2]) * oodet,
			(J[0][1]*J[1][2] - J[0][2]*J[1][1]) * oodet,
		},
		{
			(J[1][2]*J[2][0] - J[1][0]*J[2][2]) * oodet,
			(J[0][0]*J[2][2] - J[0][2]*J[2][0]) * oodet,
			(J[0][2]*J[1][0] - J[0][0]*J[1][2]) * oodet,
		},
		{
			(J[1][0]*J[2][1] - J[1][1]*J[2][0]) * oodet,
			(J[0][1]*J[2][0] - J[0][0]*J[2][1]) * oodet,
			(J[0][0]*J[1][1] - J[0][1]*J[1][0]) * oodet,
		},
	}
	return nil
}

// ComputeNormal returns the unit normal of a boundary element from a computed Jacobian.
// The sign is outward only when the caller numbers the boundary element nodes anticlockwise
// seen from outside. For a curve the normal is taken in the z=0 plane, and a curve leaving
// that plane is refused.
func (m Map) ComputeNormal(res *Result) (n [3]float64, err error) {
	J := &res.Jac
	switch res.Kind {
	case Dim1In3:
		if math.Abs(J[0][2]) > planarTol*res.DetJac {
			err = ErrNonPlanarCurve
			return
		}
		n = [3]float64{J[0][1] / res.DetJac, -J[0][0] / res.DetJac, 0}
	case Dim2In3:
		n = [3]float64{
			J[0][1]*J[1][2] - J[1][1]*J[0][2],
			J[1][0]*J[0][2] - J[1][2]*J[0][0],
			J[0][0]*J[1][1] - J[1][0]*J[0][1],
		}
		norm := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		if norm <= MINDET {
			err = fmt.Errorf("tangent rows are parallel: %w", ErrDegenerateGeometry)
			return
		}
		for d := range n {
			n[d] /= norm
		}
	default:
		err = ErrUnsupportedOperation
	}
	return
}

// PhysicalPoint interpolates the node coordinates at quadrature point ig.
func (m Map) PhysicalPoint(coords [][]float64, ig int) (x [3]float64) {
	phi := m.Table.Phi[ig]
	for d := 0; d < 3; d++ {
		for i, p := range phi {
			x[d] += p * coords[d][i]
		}
	}
	return
}
