package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypes(t *testing.T) {
	{ // Test packed int for edge labeling
		en := NewEdgeKey([2]int{1, 0})
		assert.Equal(t, EdgeKey(1<<32), en)
		assert.Equal(t, [2]int{0, 1}, en.GetVertices(false))
		assert.Equal(t, [2]int{1, 0}, en.GetVertices(true))

		en = NewEdgeKey([2]int{100, 1})
		assert.Equal(t, EdgeKey(100*(1<<32)+1), en)
		assert.Equal(t, [2]int{1, 100}, en.GetVertices(false))

		en = NewEdgeKey([2]int{1<<32 - 1, 1<<32 - 1})
		assert.Equal(t, EdgeKey(1<<64-1), en)
		assert.Equal(t, [2]int{1<<32 - 1, 1<<32 - 1}, en.GetVertices(false))

		assert.Panics(t, func() { NewEdgeKey([2]int{-1, 2}) })
	}
	{ // Face keys are independent of the walk direction
		assert.Equal(t, NewFaceKey([]int{4, 1, 7, 3}), NewFaceKey([]int{3, 7, 1, 4}))
		assert.Equal(t, FaceKey{2, 5, 9, -1}, NewFaceKey([]int{9, 2, 5}))
		assert.Equal(t, 3, NewFaceKey([]int{9, 2, 5}).NumVertices())
		assert.Panics(t, func() { NewFaceKey([]int{1, 2}) })
	}
	{ // Geometry and family labels
		for label, want := range map[string]GeomElType{"Hex": Hex, "prism": Wedge, " tri ": Tri, "line": Line} {
			g, err := NewGeomElType(label)
			require.NoError(t, err)
			assert.Equal(t, want, g)
		}
		_, err := NewGeomElType("pyramid")
		assert.True(t, errors.Is(err, ErrConfiguration))
		assert.Equal(t, 3, Wedge.Dim())
		assert.Equal(t, 2, Tri.Dim())
		assert.Equal(t, 1, Line.Dim())
		assert.Equal(t, "quad", Quad.String())

		f, err := NewFEFamily("biquadratic")
		require.NoError(t, err)
		assert.Equal(t, Second, f)
		assert.Equal(t, "SERENDIPITY", Serendipity.String())
		_, err = NewFEFamily("cubic")
		assert.True(t, errors.Is(err, ErrConfiguration))
	}
	{
		assert.Equal(t, BC_Neuman, BCNameMap["neumann"])
		assert.Equal(t, "Dirichlet", BC_Dirichlet.String())
	}
}
