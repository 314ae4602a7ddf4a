package refelem

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/femtk/types"
)

// QuadratureRule is an ordered set of reference points and weights, exact for polynomials up to Degree.
type QuadratureRule struct {
	Geom    types.GeomElType
	Degree  int
	Points  [][3]float64
	Weights []float64
}

func (q *QuadratureRule) Len() int { return len(q.Weights) }

// Same reports whether two rules index identical point sets.
func (q *QuadratureRule) Same(o *QuadratureRule) bool {
	if q == o {
		return true
	}
	return q != nil && o != nil && q.Geom == o.Geom && q.Degree == o.Degree
}

// GaussLegendre returns the N point Gauss-Legendre rule on [-1,1], computed with Golub-Welsch on the
// symmetric Jacobi matrix of the Legendre recurrence.
func GaussLegendre(N int) (X, W []float64) {
	if N < 1 {
		panic(fmt.Errorf("gauss rule needs at least one point, have %d", N))
	}
	if N == 1 {
		return []float64{0}, []float64{2}
	}
	JJ := mat.NewSymDense(N, nil)
	for i := 0; i < N-1; i++ {
		ip1 := float64(i + 1)
		b := ip1 / math.Sqrt(4*ip1*ip1-1)
		JJ.SetSym(i, i+1, b)
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(JJ, true); !ok {
		panic("eigenvalue decomposition failed")
	}
	X = eig.Values(nil)
	VV := mat.NewDense(N, N, nil)
	eig.VectorsTo(VV)
	W = make([]float64, N)
	for j := 0; j < N; j++ {
		v := VV.At(0, j)
		W[j] = 2 * v * v
	}
	return
}

// pointsFor is the number of 1D Gauss points integrating degree p exactly.
func pointsFor(p int) int {
	if p < 0 {
		p = 0
	}
	return p/2 + 1
}

// gauss01 maps the N point rule onto [0,1].
func gauss01(N int) (X, W []float64) {
	X, W = GaussLegendre(N)
	for i := range X {
		X[i] = 0.5 * (X[i] + 1)
		W[i] *= 0.5
	}
	return
}

func NewQuadratureRule(g types.GeomElType, degree int) (q *QuadratureRule, err error) {
	q = &QuadratureRule{Geom: g, Degree: degree}
	switch g {
	case types.Line:
		x, w := GaussLegendre(pointsFor(degree))
		for i := range x {
			q.add([3]float64{x[i], 0, 0}, w[i])
		}
	case types.Quad:
		x, w := GaussLegendre(pointsFor(degree))
		for j := range x {
			for i := range x {
				q.add([3]float64{x[i], x[j], 0}, w[i]*w[j])
			}
		}
	case types.Hex:
		x, w := GaussLegendre(pointsFor(degree))
		for k := range x {
			for j := range x {
				for i := range x {
					q.add([3]float64{x[i], x[j], x[k]}, w[i]*w[j]*w[k])
				}
			}
		}
	case types.Tri:
		q.addTriangle(degree, 0, 1)
	case types.Wedge:
		z, wz := GaussLegendre(pointsFor(degree))
		for k := range z {
			q.addTriangle(degree, z[k], wz[k])
		}
	case types.Tet:
		// collapsed coordinates x = u, y = (1-u)v, z = (1-u)(1-v)w
		var (
			u, wu = gauss01(pointsFor(degree + 2))
			v, wv = gauss01(pointsFor(degree + 1))
			s, ws = gauss01(pointsFor(degree))
		)
		for i := range u {
			for j := range v {
				for k := range s {
					r := [3]float64{u[i], (1 - u[i]) * v[j], (1 - u[i]) * (1 - v[j]) * s[k]}
					q.add(r, wu[i]*wv[j]*ws[k]*(1-u[i])*(1-u[i])*(1-v[j]))
				}
			}
		}
	default:
		err = fmt.Errorf("no quadrature for geometry %v: %w", g, types.ErrConfiguration)
		q = nil
	}
	return
}

// addTriangle appends the collapsed rule x = u, y = (1-u)v at height z, scaling every weight by wz.
func (q *QuadratureRule) addTriangle(degree int, z, wz float64) {
	var (
		u, wu = gauss01(pointsFor(degree + 1))
		v, wv = gauss01(pointsFor(degree))
	)
	for i := range u {
		for j := range v {
			q.add([3]float64{u[i], (1 - u[i]) * v[j], z}, wz*wu[i]*wv[j]*(1-u[i]))
		}
	}
}

func (q *QuadratureRule) add(r [3]float64, w float64) {
	q.Points = append(q.Points, r)
	q.Weights = append(q.Weights, w)
}

var (
	ruleMu    sync.Mutex
	ruleCache = make(map[[2]int]*QuadratureRule)
)

// GetQuadratureRule returns the shared rule of a (shape, degree) pair.
func GetQuadratureRule(g types.GeomElType, degree int) (q *QuadratureRule, err error) {
	ruleMu.Lock()
	defer ruleMu.Unlock()
	key := [2]int{int(g), degree}
	if q = ruleCache[key]; q != nil {
		return
	}
	if q, err = NewQuadratureRule(g, degree); err != nil {
		return
	}
	ruleCache[key] = q
	return
}
