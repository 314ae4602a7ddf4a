package utils

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// GlobalVector is a distributed vector shared by the ranks of one Comm. Writes are serialized by a
// mutex; Close is the collective commit point.
type GlobalVector struct {
	mu     sync.Mutex
	data   []float64
	closed bool
	name   string
}

func NewGlobalVector(n int, name string) *GlobalVector {
	return &GlobalVector{data: make([]float64, n), name: name}
}

func (v *GlobalVector) Len() int     { return len(v.data) }
func (v *GlobalVector) Name() string { return v.name }

func (v *GlobalVector) Zero() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.data {
		v.data[i] = 0
	}
	v.closed = false
}

// AddVector adds values at the global ids; negative ids are skipped.
func (v *GlobalVector) AddVector(values []float64, ids []int) {
	if len(values) < len(ids) {
		panic(fmt.Errorf("vector %q: %d values for %d indices", v.name, len(values), len(ids)))
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = false
	for ii, i := range ids {
		if i >= 0 {
			v.data[i] += values[ii]
		}
	}
}

func (v *GlobalVector) Set(i int, val float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = false
	v.data[i] = val
}

// Close is collective over comm, see GlobalMatrix.Close.
func (v *GlobalVector) Close(comm *Comm) (err error) {
	if err = comm.Barrier(); err != nil {
		return
	}
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	return comm.Barrier()
}

func (v *GlobalVector) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

func (v *GlobalVector) At(i int) float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.data[i]
}

// Data returns a copy of the values.
func (v *GlobalVector) Data() (d []float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	d = make([]float64, len(v.data))
	copy(d, v.data)
	return
}

// L1Norm is the sum of absolute values, the global reduction of per rank partial sums.
func (v *GlobalVector) L1Norm() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.data) == 0 {
		return 0
	}
	return floats.Norm(v.data, 1)
}

func (v *GlobalVector) L2Norm() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.data) == 0 {
		return 0
	}
	return floats.Norm(v.data, 2)
}

// VecDense wraps a copy of the values for gonum.
func (v *GlobalVector) VecDense() *mat.VecDense {
	return mat.NewVecDense(len(v.data), v.Data())
}
