package norms

import (
	"math"
	"testing"

	"github.com/notargets/femtk/assembly"
	"github.com/notargets/femtk/mesh"
	"github.com/notargets/femtk/solution"
	"github.com/notargets/femtk/types"
	"github.com/notargets/femtk/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func interpolated(t *testing.T, n int, g types.GeomElType, family types.FEFamily,
	fn func(x [3]float64) float64) (m *mesh.Mesh, s *solution.Solution) {
	m, err := mesh.NewUnitSquare(n, g, family)
	require.NoError(t, err)
	s = solution.New(m)
	_, err = s.AddField("U", family)
	require.NoError(t, err)
	require.NoError(t, s.Initialize("U", fn))
	return
}

func TestComputeErrorNorms(t *testing.T) {
	var (
		linear = func(x [3]float64) float64 { return 1 + x[0] + 2*x[1] }
		quad   = func(x [3]float64) float64 { return x[0] * x[0] }
	)
	{ // Interpolants of members of the space carry no error
		for _, g := range []types.GeomElType{types.Quad, types.Tri} {
			m, s := interpolated(t, 3, g, types.First, linear)
			l2, h1, err := ComputeErrorNorms(m, s, "U", func(x [3]float64) (float64, [3]float64) {
				return linear(x), [3]float64{1, 2}
			}, 0, nil)
			require.NoError(t, err)
			assert.InDelta(t, 0, l2, 1.e-12)
			assert.InDelta(t, 0, h1, 1.e-12)
		}
		m, s := interpolated(t, 2, types.Quad, types.Serendipity, quad)
		l2, h1, err := ComputeErrorNorms(m, s, "U", func(x [3]float64) (float64, [3]float64) {
			return quad(x), [3]float64{2 * x[0]}
		}, 0, nil)
		require.NoError(t, err)
		assert.InDelta(t, 0, l2, 1.e-12)
		assert.InDelta(t, 0, h1, 1.e-12)
	}
	{ // A zero field against x^2 on [-1/2,1/2]^2: int x^4 = 1/80, int 4x^2 = 1/3
		m, s := interpolated(t, 2, types.Quad, types.Second, func([3]float64) float64 { return 0 })
		exact := func(x [3]float64) (float64, [3]float64) { return quad(x), [3]float64{2 * x[0]} }
		l2, h1, err := ComputeErrorNorms(m, s, "U", exact, 0, nil)
		require.NoError(t, err)
		assert.InDelta(t, math.Sqrt(1./80), l2, 1.e-12)
		assert.InDelta(t, math.Sqrt(1./3), h1, 1.e-12)

		m.PartitionContiguous(3)
		l2p, h1p, err := ComputeErrorNorms(m, s, "U", exact, 0, utils.NewComm(3))
		require.NoError(t, err)
		assert.InDelta(t, l2, l2p, 1.e-14)
		assert.InDelta(t, h1, h1p, 1.e-14)

		_, _, err = ComputeErrorNorms(m, s, "V", exact, 0, nil)
		assert.ErrorIs(t, err, assembly.ErrUnknownField)
	}
}

func TestConvergenceOrder(t *testing.T) {
	assert.Nil(t, ConvergenceOrder([]float64{1}))
	order := ConvergenceOrder([]float64{1, 0.25, 0.03125})
	assert.InDeltaSlice(t, []float64{2, 3}, order, 1.e-14)
}
