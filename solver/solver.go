// Package solver solves the closed linear systems produced by the assembler.
package solver

import (
	"fmt"
	"log"

	"github.com/notargets/femtk/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var ErrNotConverged = fmt.Errorf("conjugate gradient did not converge")

type Config struct {
	Tolerance  float64 // relative to |b|
	MaxIter    int     // zero means the system size
	DenseLimit int     // systems up to this size are factored directly
	Verbose    bool
}

func DefaultConfig() Config {
	return Config{Tolerance: 1.e-12, DenseLimit: 64}
}

type Stats struct {
	Iterations int
	Residual   float64 // final |r|/|b|
	Dense      bool
}

// Solve returns x with A x = b. A must be closed, symmetric and positive definite unless the
// system is small enough for the dense path.
func Solve(A *utils.GlobalMatrix, b *utils.GlobalVector, cfg Config) (x []float64, st Stats, err error) {
	n, nc := A.Dims()
	if n != nc || n != b.Len() {
		return nil, st, fmt.Errorf("system %q is %d x %d with a right hand side of %d", A.Name(), n, nc, b.Len())
	}
	if n <= cfg.DenseLimit {
		st.Dense = true
		x, err = SolveDense(A.ToDense(), b.Data())
		return
	}
	return CG(A, b.Data(), cfg)
}

// SolveDense factors A with gonum.
func SolveDense(A *mat.Dense, b []float64) (x []float64, err error) {
	var (
		n  = len(b)
		xv = mat.NewVecDense(n, nil)
	)
	if err = xv.SolveVec(A, mat.NewVecDense(n, b)); err != nil {
		return nil, fmt.Errorf("dense solve: %w", err)
	}
	x = make([]float64, n)
	copy(x, xv.RawVector().Data)
	return
}

// CG is the Jacobi preconditioned conjugate gradient method, starting from zero.
func CG(A *utils.GlobalMatrix, b []float64, cfg Config) (x []float64, st Stats, err error) {
	var (
		n     = len(b)
		dinv  = A.Diagonal()
		r     = make([]float64, n)
		z     = make([]float64, n)
		p     = make([]float64, n)
		Ap    = make([]float64, n)
		bnorm = floats.Norm(b, 2)
	)
	x = make([]float64, n)
	if bnorm == 0 {
		return
	}
	for i, d := range dinv {
		if d == 0 {
			dinv[i] = 1
			continue
		}
		dinv[i] = 1 / d
	}
	maxIter := cfg.MaxIter
	if maxIter == 0 {
		maxIter = n
	}
	copy(r, b)
	floats.MulTo(z, dinv, r)
	copy(p, z)
	rz := floats.Dot(r, z)
	for st.Iterations = 0; st.Iterations < maxIter; st.Iterations++ {
		A.MulVec(Ap, p)
		pAp := floats.Dot(p, Ap)
		if pAp <= 0 {
			return x, st, fmt.Errorf("%q is not positive definite (p.Ap = %g): %w", A.Name(), pAp, ErrNotConverged)
		}
		alpha := rz / pAp
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, Ap)
		st.Residual = floats.Norm(r, 2) / bnorm
		if cfg.Verbose {
			log.Printf("CG %4d  |r|/|b| = %8.3e\n", st.Iterations, st.Residual)
		}
		if st.Residual < cfg.Tolerance {
			st.Iterations++
			return
		}
		floats.MulTo(z, dinv, r)
		rzNew := floats.Dot(r, z)
		beta := rzNew / rz
		rz = rzNew
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
	}
	err = fmt.Errorf("%d iterations, |r|/|b| = %g: %w", st.Iterations, st.Residual, ErrNotConverged)
	return
}
