// Package norms measures the discretization error of a field against a known solution.
package norms

import (
	"fmt"
	"math"

	"github.com/notargets/femtk/assembly"
	"github.com/notargets/femtk/refelem"
	"github.com/notargets/femtk/shape"
	"github.com/notargets/femtk/types"
	"github.com/notargets/femtk/utils"
	"gonum.org/v1/gonum/floats"
)

// Exact is a reference solution and its gradient.
type Exact func(x [3]float64) (u float64, grad [3]float64)

// ComputeErrorNorms integrates (u_h - u)^2 and |grad u_h - grad u|^2 over the owned elements of
// every rank and returns the L2 norm and the H1 seminorm of the error. Each rank deposits its
// partial sums in its own slot of a rank sized vector; the closed vectors are summed. A zero
// degree integrates two orders above the assembly default.
func ComputeErrorNorms(m assembly.Mesh, sol assembly.Solution, field string, exact Exact,
	degree int, comm *utils.Comm) (l2, h1 float64, err error) {
	idx, ok := sol.FieldIndex(field)
	if !ok {
		return 0, 0, fmt.Errorf("%q: %w", field, assembly.ErrUnknownField)
	}
	family := sol.Family(idx)
	if degree == 0 {
		degree = refelem.DefaultDegree(family) + 2
	}
	evals, err := assembly.NewEvaluators(m, family, family, degree)
	if err != nil {
		return
	}
	if comm == nil {
		comm = utils.NewComm(1)
	}
	var (
		sumL2 = utils.NewGlobalVector(comm.Size(), "L2 "+field)
		sumH1 = utils.NewGlobalVector(comm.Size(), "H1 "+field)
	)
	err = comm.Run(func(rank int) (err error) {
		var (
			coords = make([][]float64, 3)
			uloc   = make([]float64, types.MaxElementNodes)
			dofs   = make([]int, types.MaxElementNodes)
			values = make(map[types.GeomElType]*shape.Values, len(evals))
			el2    float64
			eh1    float64
		)
		start, end := m.OwnedRange(rank)
		for iel := start; iel < end; iel++ {
			n := m.NumDofs(iel, family)
			if n == 0 {
				continue
			}
			g := m.ElementType(iel)
			ev, vals := evals[g], values[g]
			if vals == nil {
				vals = ev.NewValues(false)
				values[g] = vals
			}
			m.ElementDofs(iel, family, dofs[:n])
			for i, dof := range dofs[:n] {
				uloc[i] = sol.Value(idx, dof)
			}
			m.Coords(iel, family, coords)
			for ig := 0; ig < ev.NumPoints(); ig++ {
				if err = ev.Evaluate(coords, ig, vals); err != nil {
					return &assembly.ElementError{Elem: iel, Err: err}
				}
				uh, gh := vals.Interpolate(uloc[:n])
				u, g := exact(ev.Geometry.PhysicalPoint(coords, ig))
				el2 += vals.Weight * (uh - u) * (uh - u)
				for a := 0; a < 3; a++ {
					eh1 += vals.Weight * (gh[a] - g[a]) * (gh[a] - g[a])
				}
			}
		}
		sumL2.Set(rank, el2)
		sumH1.Set(rank, eh1)
		if err = sumL2.Close(comm); err != nil {
			return
		}
		return sumH1.Close(comm)
	})
	if err != nil {
		return
	}
	return math.Sqrt(sumL2.L1Norm()), math.Sqrt(sumH1.L1Norm()), nil
}

// ConvergenceOrder is log2(e[i]/e[i+1]) for successive halvings of the mesh size.
func ConvergenceOrder(e []float64) (order []float64) {
	if len(e) < 2 {
		return
	}
	order = make([]float64, len(e)-1)
	floats.DivTo(order, e[:len(e)-1], e[1:])
	for i, r := range order {
		order[i] = math.Log2(r)
	}
	return
}
