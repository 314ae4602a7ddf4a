package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	{
		studies, err := readCSV(strings.NewReader(`Title,Family,N,Dofs,L2,H1
square,FIRST,8,81,4.0e-3,1.0e-1
square,FIRST,4,25,1.6e-2,2.0e-1
square,SECOND,4,81,1.0e-3,1.0e-2
`))
		require.NoError(t, err)
		require.Equal(t, 2, len(studies))
		assert.Equal(t, []int{4, 8}, studies[0].n)
		assert.Equal(t, []float64{1.6e-2, 4.0e-3}, studies[0].l2)
		assert.Equal(t, "SECOND", studies[1].family)
	}
	{
		_, err := readCSV(strings.NewReader("h\nsquare,FIRST,4\n"))
		assert.Error(t, err)
		_, err = readCSV(strings.NewReader("h,,,,,\nsquare,FIRST,four,1,1,1\n"))
		assert.Error(t, err)
	}
}
