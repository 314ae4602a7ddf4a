package utils

import (
	"fmt"
)

// NestMatrix composes closed matrices laid out on a block grid into one matrix. A nil block is
// implicitly zero. Every block in a block row shares the row count, every block in a block column
// shares the column count.
func NestMatrix(blocks [][]*GlobalMatrix, name string) (R *GlobalMatrix, err error) {
	var (
		nrBlocks = len(blocks)
		ncBlocks int
	)
	if nrBlocks == 0 {
		err = fmt.Errorf("nest %q has no blocks", name)
		return
	}
	ncBlocks = len(blocks[0])
	rowDims := make([]int, nrBlocks)
	colDims := make([]int, ncBlocks)
	for i := range rowDims {
		rowDims[i] = -1
	}
	for j := range colDims {
		colDims[j] = -1
	}
	for i, row := range blocks {
		if len(row) != ncBlocks {
			err = fmt.Errorf("nest %q: block row %d has %d blocks, want %d", name, i, len(row), ncBlocks)
			return
		}
		for j, b := range row {
			if b == nil {
				continue
			}
			nr, nc := b.Dims()
			if (rowDims[i] >= 0 && rowDims[i] != nr) || (colDims[j] >= 0 && colDims[j] != nc) {
				err = fmt.Errorf("nest %q: block (%d,%d) is %d x %d, inconsistent with its neighbours",
					name, i, j, nr, nc)
				return
			}
			rowDims[i], colDims[j] = nr, nc
		}
	}
	rowOff := offsets(rowDims)
	colOff := offsets(colDims)
	if rowOff == nil || colOff == nil {
		err = fmt.Errorf("nest %q: a block row or column is entirely empty", name)
		return
	}
	R = NewGlobalMatrix(rowOff[nrBlocks], colOff[ncBlocks], name)
	for i, row := range blocks {
		for j, b := range row {
			if b == nil {
				continue
			}
			b.DoNonZero(func(r, c int, v float64) {
				R.dok.Set(rowOff[i]+r, colOff[j]+c, v)
			})
		}
	}
	err = R.Close(nil)
	return
}

func offsets(dims []int) (off []int) {
	off = make([]int, len(dims)+1)
	for i, d := range dims {
		if d < 0 {
			return nil
		}
		off[i+1] = off[i] + d
	}
	return
}
