package shape

import (
	"fmt"

	"github.com/notargets/femtk/mapping"
	"github.com/notargets/femtk/refelem"
	"github.com/notargets/femtk/types"
)

var ErrRuleMismatch = fmt.Errorf("geometry and field tables use different quadrature rules: %w", types.ErrConfiguration)

// Values are the physical space quantities of one quadrature point.
type Values struct {
	Weight  float64
	Phi     []float64
	GradPhi [][3]float64
	// NablaPhi is written only when WithHessian is set: 1 component in 1D, xx yy xy in 2D,
	// xx yy zz xy yz zx in 3D.
	WithHessian bool
	NablaPhi    [][]float64
	Geometry    mapping.Result
}

// Evaluator combines a geometry map with a field table. When both come from the same table the
// element is isoparametric.
type Evaluator struct {
	Field    *refelem.Table
	Geometry mapping.Map
}

func NewIsoparametric(m mapping.Map) *Evaluator {
	return &Evaluator{Field: m.Table, Geometry: m}
}

// NewEvaluator pairs a field table with a geometry map built on a possibly different table. Both
// must index the same quadrature rule on the same shape.
func NewEvaluator(field *refelem.Table, geometry mapping.Map) (e *Evaluator, err error) {
	gt := geometry.Table
	switch {
	case field.Spec.Geom != gt.Spec.Geom:
		err = fmt.Errorf("field %v on geometry %v: %w", field.Spec, gt.Spec, types.ErrConfiguration)
	case !field.Rule.Same(gt.Rule):
		err = fmt.Errorf("field %v, geometry %v: %w", field, gt, ErrRuleMismatch)
	}
	if err != nil {
		return
	}
	e = &Evaluator{Field: field, Geometry: geometry}
	return
}

func (e *Evaluator) Isoparametric() bool { return e.Field == e.Geometry.Table }

func (e *Evaluator) NumPoints() int { return e.Field.NumPoints() }

// NewValues allocates the output buffers for this evaluator.
func (e *Evaluator) NewValues(withHessian bool) (v *Values) {
	n := e.Field.NumNodes()
	v = &Values{
		Phi:         make([]float64, n),
		GradPhi:     make([][3]float64, n),
		WithHessian: withHessian,
	}
	if withHessian {
		ncomp := len(refelem.HessianPairs(e.Field.Dim()))
		v.NablaPhi = make([][]float64, n)
		for i := range v.NablaPhi {
			v.NablaPhi[i] = make([]float64, ncomp)
		}
	}
	return
}

// Evaluate fills v at quadrature point ig. coords are the geometry nodes, three rows.
func (e *Evaluator) Evaluate(coords [][]float64, ig int, v *Values) (err error) {
	if err = e.Geometry.ComputeJacobian(coords, ig, &v.Geometry); err != nil {
		return
	}
	var (
		JI   = &v.Geometry.JacInv
		D    = e.Field.Dim()
		phi  = e.Field.Phi[ig]
		dphi = e.Field.DPhi[ig]
	)
	v.Weight = v.Geometry.DetJac * e.Field.Weight(ig)
	copy(v.Phi, phi)
	for i := range phi {
		var g [3]float64
		for a := 0; a < 3; a++ {
			for d := 0; d < D; d++ {
				g[a] += dphi[d][i] * JI[a][d]
			}
		}
		v.GradPhi[i] = g
	}
	if v.WithHessian {
		e.hessian(ig, JI, v)
	}
	return
}

// hessian contracts the reference second derivatives twice with JacInv. Curvature terms of the
// geometry map are not included.
func (e *Evaluator) hessian(ig int, JI *[3][3]float64, v *Values) {
	var (
		D     = e.Field.Dim()
		d2phi = e.Field.D2Phi[ig]
		pairs = refelem.HessianPairs(D)
	)
	if D == 1 {
		var s float64
		for a := 0; a < 3; a++ {
			s += JI[a][0] * JI[a][0]
		}
		for i := range v.NablaPhi {
			v.NablaPhi[i][0] = d2phi[0][i] * s
		}
		return
	}
	for i := range v.NablaPhi {
		var H [3][3]float64
		for c, p := range pairs {
			H[p[0]][p[1]] = d2phi[c][i]
			H[p[1]][p[0]] = d2phi[c][i]
		}
		for c, p := range pairs {
			var s float64
			for q := 0; q < D; q++ {
				for r := 0; r < D; r++ {
					s += H[q][r] * JI[p[0]][q] * JI[p[1]][r]
				}
			}
			v.NablaPhi[i][c] = s
		}
	}
}

// Interpolate returns sum_i Phi[i]*u[i] and the matching physical gradient.
func (v *Values) Interpolate(u []float64) (val float64, grad [3]float64) {
	for i, p := range v.Phi {
		val += p * u[i]
		for a := 0; a < 3; a++ {
			grad[a] += v.GradPhi[i][a] * u[i]
		}
	}
	return
}
