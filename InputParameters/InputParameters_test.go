package InputParameters

import (
	"testing"

	"github.com/notargets/femtk/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var studyYAML = `
Title: "Triangles"
Geometry: tri
Families: [first, second]
Levels: 3
BaseDivisions: 4
Ranks: 2
Partitioner: contiguous
Tolerance: 1.e-10
BCs:
  2: neumann
  4: dirichlet
`

func TestParse(t *testing.T) {
	{
		ip := NewInputParametersFE()
		require.NoError(t, ip.Parse([]byte(studyYAML)))
		assert.Equal(t, "Triangles", ip.Title)
		g, err := ip.GeomElType()
		require.NoError(t, err)
		assert.Equal(t, types.Tri, g)
		fams, err := ip.FEFamilies()
		require.NoError(t, err)
		assert.Equal(t, []types.FEFamily{types.First, types.Second}, fams)
		flags, err := ip.BCFlags()
		require.NoError(t, err)
		assert.Equal(t, types.BC_Neuman, flags[2])
		assert.Equal(t, types.BC_Dirichlet, flags[4])
		assert.Equal(t, 3, ip.Levels)
		assert.Equal(t, 2, ip.Ranks)
		assert.Equal(t, 1.e-10, ip.Tolerance)
		ip.Print()
	}
	{ // Defaults survive a partial file
		ip := NewInputParametersFE()
		require.NoError(t, ip.Parse([]byte("Levels: 2\n")))
		assert.Equal(t, "quad", ip.Geometry)
		assert.Equal(t, 3, len(ip.Families))
		_, separate, err := ip.GeomFamily()
		require.NoError(t, err)
		assert.False(t, separate)
		assert.False(t, ip.Projection)
	}
	{ // Separate geometry interpolation and the projection switch
		ip := NewInputParametersFE()
		require.NoError(t, ip.Parse([]byte("Families: [first]\nGeometryFamily: second\nProjection: true\n")))
		gf, separate, err := ip.GeomFamily()
		require.NoError(t, err)
		assert.True(t, separate)
		assert.Equal(t, types.Second, gf)
		assert.True(t, ip.Projection)
	}
	{ // Faults
		for _, bad := range []string{
			"Geometry: pyramid\n",
			"Families: [cubic]\n",
			"BCs:\n  1: robin\n",
			"Levels: 0\n",
			"Partitioner: scotch\n",
			"GeometryFamily: cubic\n",
			"Levels: [\n",
		} {
			ip := NewInputParametersFE()
			assert.ErrorIs(t, ip.Parse([]byte(bad)), types.ErrConfiguration, bad)
		}
	}
}
