package mapping

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femtk/refelem"
	"github.com/notargets/femtk/types"
)

// coordsOf places the reference nodes of tb through f, as three rows.
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

func skew(r [3]float64) [3]float64 {
	return [3]float64{
		1.5*r[0] + 0.3*r[1] - 0.2*r[2] + 1,
		0.1*r[0] + 0.9*r[1] + 0.25*r[2] - 2,
		0.2*r[0] - 0.1*r[1] + 1.2*r[2] + 0.5,
	}
}

func identity(r [3]float64) [3]float64 { return r }

func checkInverse(t *testing.T, res *Result) {
	D := res.Kind.Dim()
	J := mat.NewDense(D, 3, nil)
	JI := mat.NewDense(3, D, nil)
	for r := 0; r < D; r++ {
		for d := 0; d < 3; d++ {
			J.Set(r, d, res.Jac[r][d])
			JI.Set(d, r, res.JacInv[d][r])
		}
	}
	var prod mat.Dense
	prod.Mul(J, JI)
	eye := mat.NewDiagDense(D, nil)
	for i := 0; i < D; i++ {
		eye.SetDiag(i, 1)
	}
	assert.True(t, mat.EqualApprox(&prod, eye, 1.e-12), "%v\n%v", res.Kind, mat.Formatted(&prod))
}

func TestMappingKinds(t *testing.T) {
	geoms := []types.GeomElType{types.Line, types.Tri, types.Quad, types.Tet, types.Hex, types.Wedge}
	for _, g := range geoms {
		for _, family := range []types.FEFamily{types.First, types.Second} {
			tb, err := refelem.Get(g, family, 3)
			require.NoError(t, err)
			m, err := NewFromGeom(g, 3, tb)
			require.NoError(t, err)
			assert.Equal(t, g.Dim(), m.Kind.Dim())
			for _, f := range []func([3]float64) [3]float64{identity, skew} {
				x := coordsOf(tb, f)
				var res Result
				for ig := 0; ig < tb.NumPoints(); ig++ {
					require.NoError(t, m.ComputeJacobian(x, ig, &res))
					assert.True(t, res.DetJac > 0)
					checkInverse(t, &res)
				}
			}
			{ // The identity map has a unit determinant on full dimensional elements
				var res Result
				require.NoError(t, m.ComputeJacobian(coordsOf(tb, identity), 0, &res))
				assert.InDelta(t, 1, res.DetJac, 1.e-12)
			}
		}
	}
}

func TestMappingVolume(t *testing.T) {
	// Integrating detJac reproduces the measure of the mapped element
	tb, _ := refelem.Get(types.Hex, types.Serendipity, 3)
	m, _ := NewFromGeom(types.Hex, 3, tb)
	x := coordsOf(tb, skew)
	var (
		res Result
		vol float64
	)
	for ig := 0; ig < tb.NumPoints(); ig++ {
		require.NoError(t, m.ComputeJacobian(x, ig, &res))
		vol += res.DetJac * tb.Weight(ig)
	}
	A := mat.NewDense(3, 3, []float64{1.5, 0.3, -0.2, 0.1, 0.9, 0.25, 0.2, -0.1, 1.2})
	assert.InDelta(t, 8*mat.Det(A), vol, 1.e-12)
	pt := m.PhysicalPoint(x, 0)
	want := skew(tb.Rule.Points[0])
	assert.InDeltaSlice(t, want[:], pt[:], 1.e-12)
}

func TestNormals(t *testing.T) {
	{ // Curve in the z=0 plane
		tb, _ := refelem.Get(types.Line, types.Serendipity, 3)
		m, err := New("line", 2, tb)
		require.NoError(t, err)
		x := coordsOf(tb, func(r [3]float64) [3]float64 {
			return [3]float64{r[0], 0.3*r[0]*r[0] + 0.5*r[0], 0}
		})
		var res Result
		for ig := 0; ig < tb.NumPoints(); ig++ {
			require.NoError(t, m.ComputeJacobian(x, ig, &res))
			n, err := m.ComputeNormal(&res)
			require.NoError(t, err)
			assert.InDelta(t, 1, math.Sqrt(n[0]*n[0]+n[1]*n[1]+n[2]*n[2]), 1.e-13)
			assert.InDelta(t, 0, n[0]*res.Jac[0][0]+n[1]*res.Jac[0][1]+n[2]*res.Jac[0][2], 1.e-13)
		}
		// Walking along +x, the normal points to -y
		require.NoError(t, m.ComputeJacobian(coordsOf(tb, identity), 0, &res))
		n, _ := m.ComputeNormal(&res)
		assert.InDeltaSlice(t, []float64{0, -1, 0}, n[:], 1.e-14)
	}
	{ // A curve leaving the plane is refused
		tb, _ := refelem.Get(types.Line, types.First, 2)
		m, _ := New("line", 3, tb)
		var res Result
		require.NoError(t, m.ComputeJacobian(coordsOf(tb, skew), 0, &res))
		_, err := m.ComputeNormal(&res)
		assert.ErrorIs(t, err, ErrNonPlanarCurve)
		assert.ErrorIs(t, err, types.ErrUnsupported)
	}
	{ // Skewed surfaces in space
		for _, g := range []string{"tri", "quad"} {
			geom, _ := types.NewGeomElType(g)
			tb, _ := refelem.Get(geom, types.Second, 4)
			m, err := New(g, 3, tb)
			require.NoError(t, err)
			x := coordsOf(tb, func(r [3]float64) [3]float64 {
				p := skew(r)
				p[2] += 0.1 * r[0] * r[1]
				return p
			})
			var res Result
			for ig := 0; ig < tb.NumPoints(); ig++ {
				require.NoError(t, m.ComputeJacobian(x, ig, &res))
				checkInverse(t, &res)
				n, err := m.ComputeNormal(&res)
				require.NoError(t, err)
				assert.InDelta(t, 1, math.Sqrt(n[0]*n[0]+n[1]*n[1]+n[2]*n[2]), 1.e-13)
				for r := 0; r < 2; r++ {
					assert.InDelta(t, 0, n[0]*res.Jac[r][0]+n[1]*res.Jac[r][1]+n[2]*res.Jac[r][2], 1.e-12)
				}
			}
		}
	}
	{ // A flat anticlockwise quad points up
		tb, _ := refelem.Get(types.Quad, types.First, 2)
		m, _ := New("quad", 3, tb)
		var res Result
		require.NoError(t, m.ComputeJacobian(coordsOf(tb, identity), 0, &res))
		n, _ := m.ComputeNormal(&res)
		assert.InDeltaSlice(t, []float64{0, 0, 1}, n[:], 1.e-14)
	}
	{ // Volumes have no normal
		tb, _ := refelem.Get(types.Tet, types.First, 2)
		m, _ := New("tet", 3, tb)
		var res Result
		require.NoError(t, m.ComputeJacobian(coordsOf(tb, identity), 0, &res))
		_, err := m.ComputeNormal(&res)
		assert.ErrorIs(t, err, ErrUnsupportedOperation)
		assert.True(t, errors.Is(err, types.ErrUnsupported))
	}
}

func TestDegenerateGeometry(t *testing.T) {
	collapse := func(tb *refelem.Table, a, b int) [][]float64 {
		x := coordsOf(tb, skew)
		for d := 0; d < 3; d++ {
			x[d][b] = x[d][a]
		}
		return x
	}
	for _, g := range []types.GeomElType{types.Line, types.Tri, types.Tet} {
		tb, _ := refelem.Get(g, types.First, 2)
		m, _ := NewFromGeom(g, 3, tb)
		var res Result
		err := m.ComputeJacobian(collapse(tb, 0, 1), 0, &res)
		assert.ErrorIs(t, err, ErrDegenerateGeometry, "%v", g)
		assert.ErrorIs(t, err, types.ErrGeometry)
	}
	{ // An inverted tet has a negative determinant
		tb, _ := refelem.Get(types.Tet, types.First, 2)
		m, _ := NewFromGeom(types.Tet, 3, tb)
		x := coordsOf(tb, identity)
		for d := 0; d < 3; d++ {
			x[d][1], x[d][2] = x[d][2], x[d][1]
		}
		var res Result
		assert.ErrorIs(t, m.ComputeJacobian(x, 0, &res), types.ErrGeometry)
		assert.True(t, res.DetJac < 0)
	}
	{ // A clockwise quad is inverted in the plane, but only a flipped surface in 3-space
		tb, _ := refelem.Get(types.Quad, types.First, 2)
		x := coordsOf(tb, func(r [3]float64) [3]float64 { return [3]float64{-2 * r[0], r[1], 0} })
		planar, _ := NewFromGeom(types.Quad, 2, tb)
		var res Result
		assert.ErrorIs(t, planar.ComputeJacobian(x, 0, &res), ErrDegenerateGeometry)
		assert.InDelta(t, -2, res.DetJac, 1.e-14)
		surface, _ := NewFromGeom(types.Quad, 3, tb)
		require.NoError(t, surface.ComputeJacobian(x, 0, &res))
		assert.InDelta(t, 2, res.DetJac, 1.e-14)
	}
}

func TestFactory(t *testing.T) {
	tb, _ := refelem.Get(types.Quad, types.First, 2)
	_, err := New("pyramid", 3, tb)
	assert.ErrorIs(t, err, types.ErrConfiguration)
	_, err = New("quad", 1, tb)
	assert.ErrorIs(t, err, types.ErrConfiguration)
	_, err = New("tri", 3, tb)
	assert.ErrorIs(t, err, types.ErrConfiguration)
	m, err := New("QUAD", 2, tb)
	require.NoError(t, err)
	assert.Equal(t, Dim2In3, m.Kind)
	assert.Equal(t, "Dim2In3", m.Kind.String())
	{ // A planar map uses the square inverse
		x := coordsOf(tb, func(r [3]float64) [3]float64 { return [3]float64{1.5*r[0] + 0.4*r[1], -0.3*r[0] + 0.8*r[1], 0} })
		var res Result
		for ig := 0; ig < tb.NumPoints(); ig++ {
			require.NoError(t, m.ComputeJacobian(x, ig, &res))
			assert.InDelta(t, 1.32, res.DetJac, 1.e-13)
			checkInverse(t, &res)
		}
	}
}
