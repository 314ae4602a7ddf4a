package assembly

import (
	"fmt"

	"github.com/notargets/femtk/types"
	"github.com/notargets/femtk/utils"
)

// BuildProjection assembles, for every spatial direction k of the mesh, P_k(i,j) = int phi_i d_k phi_j
// over the family's DOFs. The weak form is linear so no tape is involved. ndofs is the global DOF
// count of the family.
func BuildProjection(m Mesh, family types.FEFamily, ndofs, degree int,
	comm *utils.Comm) (P []*utils.GlobalMatrix, err error) {
	evals, err := NewEvaluators(m, family, family, degree)
	if err != nil {
		return
	}
	var dim int
	for g := range evals {
		if g.Dim() > dim {
			dim = g.Dim()
		}
	}
	if dim == 0 {
		return nil, fmt.Errorf("projection on a mesh without elements: %w", types.ErrConfiguration)
	}
	P = make([]*utils.GlobalMatrix, dim)
	for k := range P {
		P[k] = utils.NewGlobalMatrix(ndofs, ndofs, fmt.Sprintf("P%c", "xyz"[k]))
	}
	if comm == nil {
		comm = utils.NewComm(1)
	}
	err = comm.Run(func(rank int) (err error) {
		var (
			ws     = newWorkspace(evals)
			blocks = make([][]float64, dim)
		)
		start, end := m.OwnedRange(rank)
		for iel := start; iel < end; iel++ {
			n := m.NumDofs(iel, family)
			if n == 0 {
				continue
			}
			g := m.ElementType(iel)
			ev, vals := evals[g], ws.values[g]
			dofs := ws.dofs[:n]
			m.ElementDofs(iel, family, dofs)
			m.Coords(iel, family, ws.coords)
			for k := range blocks {
				if cap(blocks[k]) < n*n {
					blocks[k] = make([]float64, n*n)
				}
				blocks[k] = blocks[k][:n*n]
				for i := range blocks[k] {
					blocks[k][i] = 0
				}
			}
			for ig := 0; ig < ev.NumPoints(); ig++ {
				if err = ev.Evaluate(ws.coords, ig, vals); err != nil {
					return &ElementError{Elem: iel, Err: err}
				}
				for i := 0; i < n; i++ {
					wphi := vals.Weight * vals.Phi[i]
					for j := 0; j < n; j++ {
						for k := range blocks {
							blocks[k][i*n+j] += wphi * vals.GradPhi[j][k]
						}
					}
				}
			}
			for k := range blocks {
				P[k].AddBlock(blocks[k], dofs, dofs)
			}
		}
		for k := range P {
			if err = P[k].Close(comm); err != nil {
				return
			}
		}
		return
	})
	if err != nil {
		return nil, err
	}
	return
}

// NestProjection stacks the direction matrices into one (dim n) x n block column, for inspection.
func NestProjection(P []*utils.GlobalMatrix) (*utils.GlobalMatrix, error) {
	blocks := make([][]*utils.GlobalMatrix, len(P))
	for k := range P {
		blocks[k] = []*utils.GlobalMatrix{P[k]}
	}
	return utils.NestMatrix(blocks, "P")
}
