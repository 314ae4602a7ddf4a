package refelem

import (
	"fmt"
	"sync"

	"github.com/notargets/femtk/types"
)

// Table holds one element family's shape functions and derivatives tabulated at a quadrature rule.
// It is read only once built and may be shared between goroutines.
type Table struct {
	Spec  *GeometricElementSpec
	Rule  *QuadratureRule
	Phi   [][]float64   // [ig][i]
	DPhi  [][][]float64 // [ig][d][i]
	D2Phi [][][]float64 // [ig][c][i], c follows HessianPairs(Dim)
}

func NewTable(spec *GeometricElementSpec, rule *QuadratureRule) (tb *Table, err error) {
	if spec.Geom != rule.Geom {
		err = fmt.Errorf("rule for %v used with element %v: %w", rule.Geom, spec, types.ErrConfiguration)
		return
	}
	var (
		nq    = rule.Len()
		n     = spec.NumNodes
		ncomp = len(HessianPairs(spec.Dim))
	)
	tb = &Table{
		Spec:  spec,
		Rule:  rule,
		Phi:   make([][]float64, nq),
		DPhi:  make([][][]float64, nq),
		D2Phi: make([][][]float64, nq),
	}
	for ig := 0; ig < nq; ig++ {
		tb.Phi[ig] = make([]float64, n)
		tb.DPhi[ig] = newRows(spec.Dim, n)
		tb.D2Phi[ig] = newRows(ncomp, n)
		spec.Eval(rule.Points[ig], tb.Phi[ig], tb.DPhi[ig], tb.D2Phi[ig])
	}
	return
}

func newRows(nr, nc int) (rows [][]float64) {
	data := make([]float64, nr*nc)
	rows = make([][]float64, nr)
	for r := range rows {
		rows[r] = data[r*nc : (r+1)*nc]
	}
	return
}

func (tb *Table) Dim() int      { return tb.Spec.Dim }
func (tb *Table) NumNodes() int { return tb.Spec.NumNodes }
func (tb *Table) NumPoints() int {
	return tb.Rule.Len()
}

// Weight is the reference quadrature weight at ig.
func (tb *Table) Weight(ig int) float64 { return tb.Rule.Weights[ig] }

func (tb *Table) String() string {
	return fmt.Sprintf("%v/%v degree %d (%d points)", tb.Spec, tb.Spec.Family, tb.Rule.Degree, tb.Rule.Len())
}

type tableKey struct {
	geom   types.GeomElType
	family types.FEFamily
	degree int
}

var (
	tableMu    sync.Mutex
	tableCache = make(map[tableKey]*Table)
)

// Get returns the shared table for a (shape, family, quadrature degree) triple, building it on first use.
func Get(g types.GeomElType, family types.FEFamily, degree int) (tb *Table, err error) {
	tableMu.Lock()
	defer tableMu.Unlock()
	key := tableKey{g, family, degree}
	if tb = tableCache[key]; tb != nil {
		return
	}
	var (
		spec *GeometricElementSpec
		rule *QuadratureRule
	)
	if spec, err = NewGeometricElementSpec(g, family); err != nil {
		return
	}
	if rule, err = GetQuadratureRule(g, degree); err != nil {
		return
	}
	if tb, err = NewTable(spec, rule); err != nil {
		return
	}
	tableCache[key] = tb
	return
}

// DefaultDegree is the quadrature degree the assembly uses for a family: enough for the
// product of two gradients on an affine element plus the source term.
func DefaultDegree(family types.FEFamily) int {
	switch family {
	case types.First:
		return 3
	default:
		return 5
	}
}
