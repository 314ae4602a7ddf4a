package assembly

import "github.com/notargets/femtk/tape"

// QPoint is what a kernel sees of one quadrature point.
type QPoint struct {
	Elem    int
	X       [3]float64 // physical position
	Weight  float64
	Phi     []float64
	GradPhi [][3]float64
}

// Kernel is the weak form of a PDE. Residual writes the integrand of every local equation into res,
// given the interpolated unknown u and its physical gradient gradU (three components) as tracked
// values; the assembler weights and sums it over the quadrature points. All arithmetic on u must go
// through tape.Real so that the tangent is recorded.
type Kernel interface {
	Residual(qp *QPoint, u tape.Real, gradU []tape.Real, res []tape.Real)
}

// KernelFunc adapts a function to Kernel.
type KernelFunc func(qp *QPoint, u tape.Real, gradU []tape.Real, res []tape.Real)

func (f KernelFunc) Residual(qp *QPoint, u tape.Real, gradU []tape.Real, res []tape.Real) {
	f(qp, u, gradU, res)
}

// Poisson is -lap(u) = f: R_i = grad(phi_i).grad(u) - f phi_i.
type Poisson struct {
	Source func(x [3]float64) float64
}

func (k Poisson) Residual(qp *QPoint, u tape.Real, gradU []tape.Real, res []tape.Real) {
	var f float64
	if k.Source != nil {
		f = k.Source(qp.X)
	}
	for i := range res {
		g := qp.GradPhi[i]
		res[i] = tape.LinComb(g[:], gradU).AddConst(-f * qp.Phi[i])
	}
}

// Cubic is the mass type residual R_i = phi_i u^3.
type Cubic struct{}

func (Cubic) Residual(qp *QPoint, u tape.Real, gradU []tape.Real, res []tape.Real) {
	u3 := u.Mul(u).Mul(u)
	for i := range res {
		res[i] = u3.Scale(qp.Phi[i])
	}
}

// NonlinearPoisson is -lap(u) + u (du/dx + du/dy) = f.
type NonlinearPoisson struct {
	Source func(x [3]float64) float64
}

func (k NonlinearPoisson) Residual(qp *QPoint, u tape.Real, gradU []tape.Real, res []tape.Real) {
	var f float64
	if k.Source != nil {
		f = k.Source(qp.X)
	}
	adv := u.Mul(gradU[0].Add(gradU[1]))
	for i := range res {
		g := qp.GradPhi[i]
		res[i] = tape.LinComb(g[:], gradU).MulAdd(adv, tape.Const(qp.Phi[i])).AddConst(-f * qp.Phi[i])
	}
}
