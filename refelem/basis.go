package refelem

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femtk/types"
)

// monomial x^p[0] y^p[1] z^p[2]
type monomial [3]int

// polynomial spans of each (shape, family); the node sets of topology.go are unisolvent for them.
func basisFor(g types.GeomElType, family types.FEFamily) (basis []monomial) {
	quadratic := family != types.First
	switch g {
	case types.Line:
		basis = []monomial{{0, 0, 0}, {1, 0, 0}}
		if quadratic {
			basis = append(basis, monomial{2, 0, 0})
		}
	case types.Tri:
		basis = completeP(2, 1)
		if quadratic {
			basis = completeP(2, 2)
		}
	case types.Tet:
		basis = completeP(3, 1)
		if quadratic {
			basis = completeP(3, 2)
		}
	case types.Quad:
		basis = tensorQ(2, 1)
		switch family {
		case types.Serendipity:
			basis = append(basis, monomial{2, 0, 0}, monomial{0, 2, 0},
				monomial{2, 1, 0}, monomial{1, 2, 0})
		case types.Second:
			basis = tensorQ(2, 2)
		}
	case types.Hex:
		basis = tensorQ(3, 1)
		switch family {
		case types.Serendipity:
			basis = append(basis,
				monomial{2, 0, 0}, monomial{0, 2, 0}, monomial{0, 0, 2},
				monomial{2, 1, 0}, monomial{2, 0, 1}, monomial{1, 2, 0},
				monomial{0, 2, 1}, monomial{1, 0, 2}, monomial{0, 1, 2},
				monomial{2, 1, 1}, monomial{1, 2, 1}, monomial{1, 1, 2})
		case types.Second:
			basis = tensorQ(3, 2)
		}
	case types.Wedge:
		var tri []monomial
		if quadratic {
			tri = completeP(2, 2)
		} else {
			tri = completeP(2, 1)
		}
		zPowers := 1
		if family == types.Second {
			zPowers = 2
		}
		for pz := 0; pz <= zPowers; pz++ {
			for _, m := range tri {
				basis = append(basis, monomial{m[0], m[1], pz})
			}
		}
		if family == types.Serendipity {
			basis = append(basis, monomial{0, 0, 2}, monomial{1, 0, 2}, monomial{0, 1, 2})
		}
	}
	return
}

// completeP lists the monomials of total degree <= order in dim variables.
func completeP(dim, order int) (basis []monomial) {
	for total := 0; total <= order; total++ {
		for a := total; a >= 0; a-- {
			if dim == 2 {
				basis = append(basis, monomial{a, total - a, 0})
				continue
			}
			for b := total - a; b >= 0; b-- {
				basis = append(basis, monomial{a, b, total - a - b})
			}
		}
	}
	return
}

// tensorQ lists the monomials of degree <= order in each of dim variables.
func tensorQ(dim, order int) (basis []monomial) {
	zMax := 0
	if dim == 3 {
		zMax = order
	}
	for c := 0; c <= zMax; c++ {
		for b := 0; b <= order; b++ {
			for a := 0; a <= order; a++ {
				basis = append(basis, monomial{a, b, c})
			}
		}
	}
	return
}

func ipow(x float64, n int) float64 {
	switch {
	case n < 0:
		return 0
	case n == 0:
		return 1
	}
	r := x
	for i := 1; i < n; i++ {
		r *= x
	}
	return r
}

func (m monomial) value(r [3]float64) float64 {
	return ipow(r[0], m[0]) * ipow(r[1], m[1]) * ipow(r[2], m[2])
}

// deriv is d/dr_d of the monomial.
func (m monomial) deriv(r [3]float64, d int) float64 {
	if m[d] == 0 {
		return 0
	}
	dm := m
	dm[d]--
	return float64(m[d]) * dm.value(r)
}

// deriv2 is d2/(dr_a dr_b) of the monomial.
func (m monomial) deriv2(r [3]float64, a, b int) float64 {
	if m[a] == 0 {
		return 0
	}
	dm := m
	dm[a]--
	return float64(m[a]) * dm.deriv(r, b)
}

// HessianPairs lists the (a, b) reference direction pairs of the stored second derivative components:
// xx in 1D; xx, yy, xy in 2D; xx, yy, zz, xy, yz, zx in 3D.
func HessianPairs(dim int) [][2]int {
	switch dim {
	case 1:
		return [][2]int{{0, 0}}
	case 2:
		return [][2]int{{0, 0}, {1, 1}, {0, 1}}
	default:
		return [][2]int{{0, 0}, {1, 1}, {2, 2}, {0, 1}, {1, 2}, {2, 0}}
	}
}

// NewGeometricElementSpec builds the nodal shape functions of a (shape, family) pair by inverting the
// Vandermonde matrix of its monomial basis at the reference nodes.
func NewGeometricElementSpec(g types.GeomElType, family types.FEFamily) (s *GeometricElementSpec, err error) {
	tp, ok := topologies[g]
	if !ok {
		err = fmt.Errorf("no reference element for geometry %v: %w", g, types.ErrConfiguration)
		return
	}
	s = &GeometricElementSpec{
		Geom:   g,
		Family: family,
		Dim:    g.Dim(),
		Nodes:  tp.Nodes(family),
		basis:  basisFor(g, family),
	}
	s.NumNodes = len(s.Nodes)
	if len(s.basis) != s.NumNodes {
		panic(fmt.Errorf("%v %v: %d basis monomials for %d nodes", g, family, len(s.basis), s.NumNodes))
	}
	var (
		n = s.NumNodes
		V = mat.NewDense(n, n, nil)
		C mat.Dense
	)
	for i, r := range s.Nodes {
		for j, m := range s.basis {
			V.Set(i, j, m.value(r))
		}
	}
	if err = C.Inverse(V); err != nil {
		err = fmt.Errorf("vandermonde of %v is not invertible: %v: %w", s, err, types.ErrConfiguration)
		return
	}
	s.coef = make([][]float64, n)
	for j := 0; j < n; j++ {
		s.coef[j] = make([]float64, n)
		for i := 0; i < n; i++ {
			s.coef[j][i] = C.At(j, i)
		}
	}
	return
}

// Eval fills phi[i], dphi[d][i] and, when d2phi is not nil, d2phi[c][i] at reference point r.
func (s *GeometricElementSpec) Eval(r [3]float64, phi []float64, dphi, d2phi [][]float64) {
	var (
		n     = s.NumNodes
		pairs = HessianPairs(s.Dim)
	)
	for i := 0; i < n; i++ {
		phi[i] = 0
		for d := 0; d < s.Dim; d++ {
			dphi[d][i] = 0
		}
		if d2phi != nil {
			for c := range pairs {
				d2phi[c][i] = 0
			}
		}
	}
	for j, m := range s.basis {
		var (
			v  = m.value(r)
			dv [3]float64
			hv [6]float64
		)
		for d := 0; d < s.Dim; d++ {
			dv[d] = m.deriv(r, d)
		}
		if d2phi != nil {
			for c, p := range pairs {
				hv[c] = m.deriv2(r, p[0], p[1])
			}
		}
		for i, cji := range s.coef[j] {
			if cji == 0 {
				continue
			}
			phi[i] += cji * v
			for d := 0; d < s.Dim; d++ {
				dphi[d][i] += cji * dv[d]
			}
			if d2phi != nil {
				for c := range pairs {
					d2phi[c][i] += cji * hv[c]
				}
			}
		}
	}
}
