package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/femtk/mapping"
	"github.com/notargets/femtk/refelem"
	"github.com/notargets/femtk/types"
)

func coordsOf(tb *refelem.Table, f func(r [3]float64) [3]float64) (x [][]float64) {
	n := tb.NumNodes()
	x = [][]float64{make([]float64, n), make([]float64, n), make([]float64, n)}
	for i, r := range tb.Spec.Nodes {
		p := f(r)
		for d := 0; d < 3; d++ {
			x[d][i] = p[d]
		}
	}
	return
}

// affine maps keeping lower dimensional shapes in their own coordinate subspace
func affine(dim int) func(r [3]float64) [3]float64 {
	return func(r [3]float64) (p [3]float64) {
		switch dim {
		case 1:
			p = [3]float64{2.5*r[0] + 1, 0, 0}
		case 2:
			p = [3]float64{1.5*r[0] + 0.4*r[1] + 1, -0.3*r[0] + 0.8*r[1], 0}
		default:
			p = [3]float64{
				1.5*r[0] + 0.3*r[1] - 0.2*r[2] + 1,
				0.1*r[0] + 0.9*r[1] + 0.25*r[2] - 2,
				0.2*r[0] - 0.1*r[1] + 1.2*r[2] + 0.5,
			}
		}
		return
	}
}

// curved adds a quadratic bow that a SECOND family geometry represents exactly.
func curved(dim int) func(r [3]float64) [3]float64 {
	a := affine(dim)
	return func(r [3]float64) (p [3]float64) {
		p = a(r)
		if dim >= 2 {
			p[0] += 0.05 * r[1] * r[1]
			p[1] += 0.05 * r[0] * r[0]
		}
		return
	}
}

var geoms = []types.GeomElType{types.Line, types.Tri, types.Quad, types.Tet, types.Hex, types.Wedge}

func TestPartitionOfUnityAndPatch(t *testing.T) {
	for _, g := range geoms {
		for _, family := range []types.FEFamily{types.First, types.Serendipity, types.Second} {
			tb, err := refelem.Get(g, family, 4)
			require.NoError(t, err)
			m, err := mapping.NewFromGeom(g, 3, tb)
			require.NoError(t, err)
			e := NewIsoparametric(m)
			assert.True(t, e.Isoparametric())
			warp := affine(g.Dim())
			if family == types.Second {
				warp = curved(g.Dim())
			}
			x := coordsOf(tb, warp)
			v := e.NewValues(false)
			for ig := 0; ig < e.NumPoints(); ig++ {
				require.NoError(t, e.Evaluate(x, ig, v))
				assert.True(t, v.Weight > 0)
				var (
					sp float64
					sg [3]float64
				)
				for i := range v.Phi {
					sp += v.Phi[i]
					for a := 0; a < 3; a++ {
						sg[a] += v.GradPhi[i][a]
					}
				}
				assert.InDelta(t, 1, sp, 1.e-12, "%v", tb)
				assert.InDeltaSlice(t, []float64{0, 0, 0}, sg[:], 1.e-10, "%v", tb)
				// The coordinate functions have unit gradients
				for a := 0; a < g.Dim(); a++ {
					_, grad := v.Interpolate(x[a])
					want := [3]float64{}
					want[a] = 1
					assert.InDeltaSlice(t, want[:], grad[:], 1.e-10, "%v d/dx%d", tb, a)
				}
			}
		}
	}
}

func TestNonIsoparametric(t *testing.T) {
	geomTable, _ := refelem.Get(types.Quad, types.Second, 5)
	fieldTable, _ := refelem.Get(types.Quad, types.First, 5)
	m, err := mapping.NewFromGeom(types.Quad, 2, geomTable)
	require.NoError(t, err)
	e, err := NewEvaluator(fieldTable, m)
	require.NoError(t, err)
	assert.False(t, e.Isoparametric())
	var (
		x      = coordsOf(geomTable, curved(2))
		v      = e.NewValues(false)
		area   float64
		linear = make([]float64, 4)
	)
	// a field linear in the reference coordinates of the vertices
	for i := 0; i < 4; i++ {
		linear[i] = 2*fieldTable.Spec.Nodes[i][0] - fieldTable.Spec.Nodes[i][1]
	}
	for ig := 0; ig < e.NumPoints(); ig++ {
		require.NoError(t, e.Evaluate(x, ig, v))
		assert.Equal(t, 4, len(v.Phi))
		var sp float64
		for _, p := range v.Phi {
			sp += p
		}
		assert.InDelta(t, 1, sp, 1.e-13)
		area += v.Weight
	}
	// The bow terms integrate to zero net area change on the symmetric square
	assert.InDelta(t, 4*(1.5*0.8+0.3*0.4), area, 1.e-10)
	{ // Tables on different rules are refused
		other, _ := refelem.Get(types.Quad, types.First, 3)
		_, err = NewEvaluator(other, m)
		assert.ErrorIs(t, err, ErrRuleMismatch)
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
	{ // So are tables on different shapes
		tri, _ := refelem.Get(types.Tri, types.First, 5)
		_, err = NewEvaluator(tri, m)
		assert.ErrorIs(t, err, types.ErrConfiguration)
	}
}

func TestHessian(t *testing.T) {
	{ // 1D: u = x^2 on a stretched line
		tb, _ := refelem.Get(types.Line, types.Second, 3)
		m, _ := mapping.NewFromGeom(types.Line, 1, tb)
		e := NewIsoparametric(m)
		x := coordsOf(tb, affine(1))
		u := make([]float64, tb.NumNodes())
		for i := range u {
			u[i] = x[0][i] * x[0][i]
		}
		v := e.NewValues(true)
		for ig := 0; ig < e.NumPoints(); ig++ {
			require.NoError(t, e.Evaluate(x, ig, v))
			require.Equal(t, 1, len(v.NablaPhi[0]))
			var s float64
			for i := range u {
				s += v.NablaPhi[i][0] * u[i]
			}
			assert.InDelta(t, 2, s, 1.e-10)
		}
	}
	{ // 2D: u = x^2 + 3xy - y^2
		tb, _ := refelem.Get(types.Quad, types.Second, 3)
		m, _ := mapping.NewFromGeom(types.Quad, 2, tb)
		e := NewIsoparametric(m)
		x := coordsOf(tb, affine(2))
		u := make([]float64, tb.NumNodes())
		for i := range u {
			X, Y := x[0][i], x[1][i]
			u[i] = X*X + 3*X*Y - Y*Y
		}
		v := e.NewValues(true)
		for ig := 0; ig < e.NumPoints(); ig++ {
			require.NoError(t, e.Evaluate(x, ig, v))
			var s [3]float64
			for i := range u {
				for c := 0; c < 3; c++ {
					s[c] += v.NablaPhi[i][c] * u[i]
				}
			}
			assert.InDeltaSlice(t, []float64{2, -2, 3}, s[:], 1.e-10)
		}
	}
	{ // 3D: u = x^2 + 2y^2 - z^2 + xy + 4yz - 3zx
		tb, _ := refelem.Get(types.Hex, types.Second, 3)
		m, _ := mapping.NewFromGeom(types.Hex, 3, tb)
		e := NewIsoparametric(m)
		x := coordsOf(tb, affine(3))
		u := make([]float64, tb.NumNodes())
		for i := range u {
			X, Y, Z := x[0][i], x[1][i], x[2][i]
			u[i] = X*X + 2*Y*Y - Z*Z + X*Y + 4*Y*Z - 3*Z*X
		}
		v := e.NewValues(true)
		for ig := 0; ig < e.NumPoints(); ig++ {
			require.NoError(t, e.Evaluate(x, ig, v))
			var s [6]float64
			for i := range u {
				for c := 0; c < 6; c++ {
					s[c] += v.NablaPhi[i][c] * u[i]
				}
			}
			assert.InDeltaSlice(t, []float64{2, 4, -2, 1, 4, -3}, s[:], 1.e-9)
		}
	}
	{ // Without the flag the buffer is never allocated
		tb, _ := refelem.Get(types.Tri, types.First, 2)
		m, _ := mapping.NewFromGeom(types.Tri, 2, tb)
		e := NewIsoparametric(m)
		v := e.NewValues(false)
		require.NoError(t, e.Evaluate(coordsOf(tb, affine(2)), 0, v))
		assert.Nil(t, v.NablaPhi)
	}
}

func TestEvaluateDegenerate(t *testing.T) {
	tb, _ := refelem.Get(types.Tri, types.First, 2)
	m, _ := mapping.NewFromGeom(types.Tri, 2, tb)
	e := NewIsoparametric(m)
	x := coordsOf(tb, affine(2))
	for d := 0; d < 3; d++ {
		x[d][2] = x[d][1]
	}
	err := e.Evaluate(x, 0, e.NewValues(false))
	assert.ErrorIs(t, err, mapping.ErrDegenerateGeometry)
}
