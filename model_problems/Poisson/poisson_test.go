package Poisson

import (
	"bytes"
	"strings"
	"testing"

	"github.com/notargets/femtk/InputParameters"
	"github.com/notargets/femtk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitSquareConvergence(t *testing.T) {
	{ // Q1, Q8 and Q9 on three levels
		ip := InputParameters.NewInputParametersFE()
		ip.Levels = 3
		ip.BaseDivisions = 4
		c, err := NewConvergence(ip, testing.Verbose())
		require.NoError(t, err)
		studies, err := c.Run()
		require.NoError(t, err)
		require.Equal(t, 3, len(studies))
		if testing.Verbose() {
			PrintStudies(ip.Title, studies)
		}
		var buf bytes.Buffer
		require.NoError(t, WriteCSV(&buf, ip.Title, studies))
		assert.Equal(t, 1+9, strings.Count(buf.String(), "\n"))
		want := map[types.FEFamily][2]float64{
			types.First:       {2, 1},
			types.Serendipity: {3, 2},
			types.Second:      {3, 2},
		}
		for _, st := range studies {
			l2, h1 := st.Orders()
			require.Equal(t, 2, len(l2))
			w := want[st.Family]
			assert.InDelta(t, w[0], l2[1], 0.2, "%v L2", st.Family)
			assert.InDelta(t, w[1], h1[1], 0.2, "%v H1", st.Family)
			for l := 1; l < len(st.Levels); l++ {
				assert.Less(t, st.Levels[l].L2, st.Levels[l-1].L2)
			}
		}
	}
	{ // P1 triangles on two ranks agree with one rank
		ip := InputParameters.NewInputParametersFE()
		ip.Geometry = "tri"
		ip.Families = []string{"first"}
		c1, err := NewConvergence(ip, false)
		require.NoError(t, err)
		serial, err := c1.SolveLevel(8, types.First)
		require.NoError(t, err)

		ip2 := *ip
		ip2.Ranks = 2
		c2, err := NewConvergence(&ip2, false)
		require.NoError(t, err)
		parallel, err := c2.SolveLevel(8, types.First)
		require.NoError(t, err)
		assert.InDelta(t, serial.L2, parallel.L2, 1.e-10)
		assert.InDelta(t, serial.H1, parallel.H1, 1.e-10)
		assert.Equal(t, 81, serial.NDofs)
	}
	{ // Bilinear fields on biquadratic coordinates, with the gradient projection
		ip := InputParameters.NewInputParametersFE()
		ip.Families = []string{"first"}
		ip.QuadratureDegree = 5
		iso, err := NewConvergence(ip, false)
		require.NoError(t, err)
		want, err := iso.SolveLevel(4, types.First)
		require.NoError(t, err)
		assert.Zero(t, want.ProjNNZ)

		ip2 := *ip
		ip2.GeometryFamily = "second"
		ip2.Projection = true
		c, err := NewConvergence(&ip2, testing.Verbose())
		require.NoError(t, err)
		lev, err := c.SolveLevel(4, types.First)
		require.NoError(t, err)
		assert.Equal(t, 25, lev.NDofs)
		assert.InDelta(t, want.L2, lev.L2, 1.e-12)
		assert.InDelta(t, want.H1, lev.H1, 1.e-12)
		assert.Greater(t, lev.ProjNNZ, 0)
		assert.LessOrEqual(t, lev.ProjNNZ, 2*25*25)
	}
	{ // Trilinear bricks still converge at second order
		ip := InputParameters.NewInputParametersFE()
		ip.Geometry = "hex"
		ip.BaseDivisions = 4
		ip.Families = []string{"first"}
		ip.Levels = 2
		c, err := NewConvergence(ip, false)
		require.NoError(t, err)
		studies, err := c.Run()
		require.NoError(t, err)
		l2, _ := studies[0].Orders()
		assert.Greater(t, l2[0], 1.6)
	}
}
