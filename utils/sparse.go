package utils

import (
	"fmt"
	"sync"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// GlobalMatrix is the assembled sparse operator. Contributions accumulate in a DOK under a mutex;
// Close finalizes them into CSR. Writing after Close reopens the matrix.
type GlobalMatrix struct {
	mu     sync.Mutex
	nr, nc int
	dok    *sparse.DOK
	csr    *sparse.CSR
	closed bool
	name   string
}

func NewGlobalMatrix(nr, nc int, name string) (m *GlobalMatrix) {
	m = &GlobalMatrix{nr: nr, nc: nc, name: name}
	m.Zero()
	return
}

// Dims, At and T satisfy mat.Matrix.
func (m *GlobalMatrix) Dims() (r, c int) { return m.nr, m.nc }
func (m *GlobalMatrix) T() mat.Matrix    { return mat.Transpose{Matrix: m} }

func (m *GlobalMatrix) At(i, j int) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return m.csr.At(i, j)
	}
	return m.dok.At(i, j)
}

func (m *GlobalMatrix) Name() string { return m.name }

// Zero discards every contribution.
func (m *GlobalMatrix) Zero() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dok = sparse.NewDOK(m.nr, m.nc)
	m.csr = nil
	m.closed = false
}

// AddBlock adds the row major block values[len(rows)*len(cols)] at the given global indices.
// Negative indices are skipped, which is how constrained rows are kept out of the operator.
func (m *GlobalMatrix) AddBlock(values []float64, rows, cols []int) {
	nc := len(cols)
	if len(values) < len(rows)*nc {
		panic(fmt.Errorf("matrix %q: block of %d values for %d x %d indices", m.name, len(values), len(rows), nc))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reopen()
	for ii, i := range rows {
		if i < 0 {
			continue
		}
		for jj, j := range cols {
			if j < 0 {
				continue
			}
			v := values[ii*nc+jj]
			if v == 0 {
				continue
			}
			m.dok.Set(i, j, m.dok.At(i, j)+v)
		}
	}
}

// Set stores a single value, replacing what was there.
func (m *GlobalMatrix) Set(i, j int, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reopen()
	m.dok.Set(i, j, v)
}

func (m *GlobalMatrix) reopen() {
	if m.closed {
		m.closed = false
		m.csr = nil
	}
}

// Close is collective over comm: every rank commits its contributions before rank zero
// finalizes the storage, and no rank returns before the result is readable. A nil comm closes
// locally.
func (m *GlobalMatrix) Close(comm *Comm) (err error) {
	if err = comm.Barrier(); err != nil {
		return
	}
	m.mu.Lock()
	if !m.closed {
		m.csr = m.dok.ToCSR()
		m.closed = true
	}
	m.mu.Unlock()
	return comm.Barrier()
}

func (m *GlobalMatrix) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// CSR is the finalized storage; the matrix must be closed.
func (m *GlobalMatrix) CSR() *sparse.CSR {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkClosed()
	return m.csr
}

func (m *GlobalMatrix) NNZ() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return m.csr.NNZ()
	}
	return m.dok.NNZ()
}

func (m *GlobalMatrix) checkClosed() {
	if !m.closed {
		err := fmt.Errorf("attempt to read the open matrix named: \"%v\", call Close first", m.name)
		panic(err)
	}
}

// MulVec computes dst = A*x on the closed matrix.
func (m *GlobalMatrix) MulVec(dst, x []float64) {
	raw := m.CSR().RawMatrix()
	for i := 0; i < raw.I; i++ {
		var s float64
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			s += raw.Data[k] * x[raw.Ind[k]]
		}
		dst[i] = s
	}
}

// Diagonal returns the main diagonal of the closed matrix.
func (m *GlobalMatrix) Diagonal() (d []float64) {
	raw := m.CSR().RawMatrix()
	d = make([]float64, raw.I)
	for i := 0; i < raw.I; i++ {
		for k := raw.Indptr[i]; k < raw.Indptr[i+1]; k++ {
			if raw.Ind[k] == i {
				d[i] += raw.Data[k]
			}
		}
	}
	return
}

// DoNonZero calls fn for every stored entry of the closed matrix.
func (m *GlobalMatrix) DoNonZero(fn func(i, j int, v float64)) {
	m.CSR().DoNonZero(fn)
}

// ToDense copies the closed matrix into a gonum dense matrix.
func (m *GlobalMatrix) ToDense() (A *mat.Dense) {
	A = mat.NewDense(m.nr, m.nc, nil)
	m.DoNonZero(func(i, j int, v float64) {
		A.Set(i, j, A.At(i, j)+v)
	})
	return
}

func (m *GlobalMatrix) String() string {
	if !m.Closed() {
		return fmt.Sprintf("%s: open %d x %d, %d stored", m.name, m.nr, m.nc, m.NNZ())
	}
	return fmt.Sprintf("%s = %v\n", m.name, mat.Formatted(m.ToDense(), mat.Squeeze()))
}
