package refelem

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/notargets/femtk/types"
)

var (
	allGeoms    = []types.GeomElType{types.Line, types.Tri, types.Quad, types.Tet, types.Hex, types.Wedge}
	allFamilies = []types.FEFamily{types.First, types.Serendipity, types.Second}
)

func factorial(n int) float64 {
	f := 1.
	for i := 2; i <= n; i++ {
		f *= float64(i)
	}
	return f
}

func TestGaussLegendre(t *testing.T) {
	{
		x, w := GaussLegendre(2)
		assert.InDeltaSlice(t, []float64{-1 / math.Sqrt(3), 1 / math.Sqrt(3)}, x, 1.e-14)
		assert.InDeltaSlice(t, []float64{1, 1}, w, 1.e-14)
	}
	{
		x, w := GaussLegendre(3)
		assert.InDeltaSlice(t, []float64{-math.Sqrt(0.6), 0, math.Sqrt(0.6)}, x, 1.e-14)
		assert.InDeltaSlice(t, []float64{5. / 9, 8. / 9, 5. / 9}, w, 1.e-14)
	}
	assert.Panics(t, func() { GaussLegendre(0) })
}

func TestQuadratureRules(t *testing.T) {
	volume := map[types.GeomElType]float64{
		types.Line: 2, types.Tri: 0.5, types.Quad: 4, types.Tet: 1. / 6, types.Hex: 8, types.Wedge: 1,
	}
	for _, g := range allGeoms {
		for degree := 0; degree <= 7; degree++ {
			q, err := GetQuadratureRule(g, degree)
			require.NoError(t, err)
			var sum float64
			for _, w := range q.Weights {
				assert.True(t, w > 0)
				sum += w
			}
			assert.InDelta(t, volume[g], sum, 1.e-13, "%v degree %d", g, degree)
		}
	}
	{ // Exactness on the simplices
		for degree := 1; degree <= 6; degree++ {
			qt, _ := GetQuadratureRule(types.Tri, degree)
			qT, _ := GetQuadratureRule(types.Tet, degree)
			for a := 0; a <= degree; a++ {
				for b := 0; a+b <= degree; b++ {
					var sum float64
					for ig, r := range qt.Points {
						sum += qt.Weights[ig] * math.Pow(r[0], float64(a)) * math.Pow(r[1], float64(b))
					}
					exact := factorial(a) * factorial(b) / factorial(a+b+2)
					assert.InDelta(t, exact, sum, 1.e-14)
					c := degree - a - b
					sum = 0
					for ig, r := range qT.Points {
						sum += qT.Weights[ig] * math.Pow(r[0], float64(a)) *
							math.Pow(r[1], float64(b)) * math.Pow(r[2], float64(c))
					}
					exact = factorial(a) * factorial(b) * factorial(c) / factorial(a+b+c+3)
					assert.InDelta(t, exact, sum, 1.e-14)
				}
			}
		}
	}
	{ // Same rule identity through the cache
		q1, _ := GetQuadratureRule(types.Quad, 3)
		q2, _ := GetQuadratureRule(types.Quad, 3)
		q3, _ := GetQuadratureRule(types.Quad, 5)
		assert.True(t, q1 == q2)
		assert.True(t, q1.Same(q2))
		assert.False(t, q1.Same(q3))
	}
}

func TestShapeFunctions(t *testing.T) {
	counts := map[types.GeomElType][3]int{
		types.Line: {2, 3, 3}, types.Tri: {3, 6, 6}, types.Quad: {4, 8, 9},
		types.Tet: {4, 10, 10}, types.Hex: {8, 20, 27}, types.Wedge: {6, 15, 18},
	}
	for _, g := range allGeoms {
		for _, family := range allFamilies {
			spec, err := NewGeometricElementSpec(g, family)
			require.NoError(t, err)
			n := spec.NumNodes
			assert.Equal(t, counts[g][family], n, "%v %v", g, family)
			var (
				phi   = make([]float64, n)
				dphi  = newRows(spec.Dim, n)
				d2phi = newRows(len(HessianPairs(spec.Dim)), n)
			)
			// Kronecker property at the nodes
			for k, r := range spec.Nodes {
				spec.Eval(r, phi, dphi, nil)
				for i := 0; i < n; i++ {
					want := 0.
					if i == k {
						want = 1
					}
					assert.InDelta(t, want, phi[i], 1.e-12, "%v node %d fn %d", spec, k, i)
				}
			}
			// Partition of unity and vanishing derivative sums at an interior point
			r := [3]float64{0.21, 0.17, 0.13}
			spec.Eval(r, phi, dphi, d2phi)
			assert.InDelta(t, 1, sum(phi), 1.e-12)
			for d := range dphi {
				assert.InDelta(t, 0, sum(dphi[d]), 1.e-11)
			}
			for c := range d2phi {
				assert.InDelta(t, 0, sum(d2phi[c]), 1.e-10)
			}
			// Derivatives against central differences
			pairs := HessianPairs(spec.Dim)
			for i := 0; i < n; i++ {
				for d := 0; d < spec.Dim; d++ {
					f := func(x float64) float64 {
						rr := r
						rr[d] = x
						p := make([]float64, n)
						spec.Eval(rr, p, newRows(spec.Dim, n), nil)
						return p[i]
					}
					num := fd.Derivative(f, r[d], &fd.Settings{Formula: fd.Central})
					assert.InDelta(t, num, dphi[d][i], 1.e-6, "%v dphi[%d][%d]", spec, d, i)
				}
				for c, p := range pairs {
					f := func(x float64) float64 {
						rr := r
						rr[p[1]] = x
						ph := make([]float64, n)
						dd := newRows(spec.Dim, n)
						spec.Eval(rr, ph, dd, nil)
						return dd[p[0]][i]
					}
					num := fd.Derivative(f, r[p[1]], &fd.Settings{Formula: fd.Central})
					assert.InDelta(t, num, d2phi[c][i], 1.e-6, "%v d2phi[%d][%d]", spec, c, i)
				}
			}
		}
	}
}

func TestTable(t *testing.T) {
	tb, err := Get(types.Quad, types.Second, 5)
	require.NoError(t, err)
	assert.Equal(t, 9, tb.NumNodes())
	assert.Equal(t, 9, tb.NumPoints())
	assert.Equal(t, 2, tb.Dim())
	again, _ := Get(types.Quad, types.Second, 5)
	assert.True(t, tb == again)
	lin, _ := Get(types.Quad, types.First, 5)
	assert.True(t, lin.Rule == tb.Rule)
	for ig := 0; ig < tb.NumPoints(); ig++ {
		assert.InDelta(t, 1, sum(tb.Phi[ig]), 1.e-12)
		assert.InDelta(t, 1, sum(lin.Phi[ig]), 1.e-12)
	}
	{ // A rule from another shape is refused
		spec, _ := NewGeometricElementSpec(types.Tri, types.First)
		rule, _ := GetQuadratureRule(types.Quad, 2)
		_, err = NewTable(spec, rule)
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
	{ // Topology prefixes
		tp := GetTopology(types.Hex)
		nodes := tp.Nodes(types.Second)
		assert.Equal(t, 27, len(nodes))
		assert.Equal(t, [3]float64{0, 0, 0}, nodes[26])
		assert.Equal(t, [3]float64{0, 0, -1}, nodes[20])
		assert.Equal(t, tp.Nodes(types.Serendipity), nodes[:20])
	}
}

func sum(v []float64) (s float64) {
	for _, x := range v {
		s += x
	}
	return
}
