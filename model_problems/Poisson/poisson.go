package Poisson

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"time"

	"github.com/notargets/femtk/InputParameters"
	"github.com/notargets/femtk/assembly"
	"github.com/notargets/femtk/mesh"
	"github.com/notargets/femtk/norms"
	"github.com/notargets/femtk/solution"
	"github.com/notargets/femtk/solver"
	"github.com/notargets/femtk/types"
	"github.com/notargets/femtk/utils"
)

/*
Manufactured solution on the centered unit cube [-1/2,1/2]^d:

				u = prod_k cos(pi x_k)
				f = -lap(u) = d pi^2 u

u vanishes on every side, so the Dirichlet data is homogeneous. A side declared natural in the
input carries the zero flux condition, which the solution does not satisfy; such a study
measures the modelling error as well.

The problem is linear, one Newton step from u = 0 solves it.

A GeometryFamily in the input interpolates the coordinates with a family other than the field's,
on a mesh promoted to the higher of the two. With Projection set every level also builds the
gradient projection matrices P_k = int phi_i d_k phi_j and their block column.
*/

type Level struct {
	N       int // cells per side
	H       float64
	NDofs   int
	L2, H1  float64
	Iters   int
	Time    time.Duration
	ProjNNZ int // stored entries of the nested projection, when built
}

type Study struct {
	Family types.FEFamily
	Levels []Level
}

type Convergence struct {
	IP      *InputParameters.InputParametersFE
	Verbose bool
	geom    types.GeomElType
	bcs     map[int]types.BCFLAG
	dim     int
	geomFam types.FEFamily
	sepGeom bool
}

func NewConvergence(ip *InputParameters.InputParametersFE, verbose bool) (c *Convergence, err error) {
	if err = ip.Validate(); err != nil {
		return
	}
	c = &Convergence{IP: ip, Verbose: verbose}
	if c.geom, err = ip.GeomElType(); err != nil {
		return
	}
	if c.bcs, err = ip.BCFlags(); err != nil {
		return
	}
	if c.geomFam, c.sepGeom, err = ip.GeomFamily(); err != nil {
		return
	}
	c.dim = c.geom.Dim()
	return
}

func (c *Convergence) exact(x [3]float64) (u float64, grad [3]float64) {
	var cs, sn [3]float64
	u = 1
	for k := 0; k < c.dim; k++ {
		sn[k], cs[k] = math.Sincos(math.Pi * x[k])
		u *= cs[k]
	}
	for k := 0; k < c.dim; k++ {
		grad[k] = -math.Pi * sn[k]
		for l := 0; l < c.dim; l++ {
			if l != k {
				grad[k] *= cs[l]
			}
		}
	}
	return
}

func (c *Convergence) source(x [3]float64) float64 {
	u, _ := c.exact(x)
	return float64(c.dim) * math.Pi * math.Pi * u
}

func (c *Convergence) newMesh(n int, family types.FEFamily) (m *mesh.Mesh, err error) {
	order := family
	if c.sepGeom && c.geomFam > order {
		order = c.geomFam
	}
	if c.IP.MeshFile != "" {
		if m, err = mesh.ReadMeshFile(c.IP.MeshFile, order); err != nil {
			return
		}
		c.dim = m.Dim
	} else {
		switch c.dim {
		case 1:
			m, err = mesh.NewUnitInterval(n, order)
		case 2:
			m, err = mesh.NewUnitSquare(n, c.geom, order)
		default:
			m, err = mesh.NewUnitCube(n, c.geom, order)
		}
		if err != nil {
			return
		}
	}
	switch {
	case c.IP.Ranks == 1:
	case c.IP.Partitioner == "metis":
		err = m.Partition(c.IP.Ranks, family)
	default:
		m.PartitionContiguous(c.IP.Ranks)
	}
	return
}

// SolveLevel assembles and solves one mesh of n cells per side and measures the error.
func (c *Convergence) SolveLevel(n int, family types.FEFamily) (lev Level, err error) {
	start := time.Now()
	m, err := c.newMesh(n, family)
	if err != nil {
		return
	}
	sol := solution.New(m)
	u, err := sol.AddField("U", family)
	if err != nil {
		return
	}
	if _, err = sol.SetBoundaryCondition("U", func(x [3]float64, tag int) (types.BCFLAG, float64) {
		if flag, ok := c.bcs[tag]; ok && flag == types.BC_Neuman {
			return types.BC_Neuman, 0
		}
		g, _ := c.exact(x)
		return types.BC_Dirichlet, g
	}); err != nil {
		return
	}
	comm := utils.NewComm(max(1, m.NumRanks()))
	a, err := assembly.New(m, sol, assembly.Poisson{Source: c.source},
		assembly.Config{
			Field:            "U",
			QuadratureDegree: c.IP.QuadratureDegree,
			SeparateGeometry: c.sepGeom,
			GeometryFamily:   c.geomFam,
		}, comm)
	if err != nil {
		return
	}
	if err = a.Assemble(); err != nil {
		return
	}
	cfg := solver.DefaultConfig()
	if c.IP.Tolerance > 0 {
		cfg.Tolerance = c.IP.Tolerance
	}
	cfg.MaxIter = c.IP.MaxIterations
	du, st, err := solver.Solve(a.Jacobian, a.Residual, cfg)
	if err != nil {
		return lev, fmt.Errorf("%v level n = %d: %w", family, n, err)
	}
	u.Update(du)
	lev = Level{N: n, H: 1 / float64(n), NDofs: len(u.Values), Iters: st.Iterations}
	if lev.L2, lev.H1, err = norms.ComputeErrorNorms(m, sol, "U", c.exact, 0, comm); err != nil {
		return
	}
	if c.IP.Projection {
		if lev.ProjNNZ, err = c.projection(m, family, lev.NDofs, comm); err != nil {
			return
		}
	}
	lev.Time = time.Since(start)
	if c.Verbose {
		log.Printf("%v n = %3d: %d dofs, %d iterations, L2 = %8.3e, H1 = %8.3e, %v\n",
			family, n, lev.NDofs, lev.Iters, lev.L2, lev.H1, lev.Time)
	}
	return
}

// projection builds the gradient projection of the level and returns the size of its block column.
// Verbose runs print the nested matrix when it is small enough to read.
func (c *Convergence) projection(m *mesh.Mesh, family types.FEFamily, ndofs int,
	comm *utils.Comm) (nnz int, err error) {
	P, err := assembly.BuildProjection(m, family, ndofs, c.IP.QuadratureDegree, comm)
	if err != nil {
		return
	}
	nest, err := assembly.NestProjection(P)
	if err != nil {
		return
	}
	nnz = nest.NNZ()
	if c.Verbose {
		nr, nc := nest.Dims()
		log.Printf("%v projection %d x %d, %d stored\n", family, nr, nc, nnz)
		if nr <= 64 {
			fmt.Print(nest)
		}
	}
	return
}

// Run solves every family on the refinement levels of the input. A mesh file gives a single level.
func (c *Convergence) Run() (studies []Study, err error) {
	families, err := c.IP.FEFamilies()
	if err != nil {
		return
	}
	nlev := c.IP.Levels
	if c.IP.MeshFile != "" {
		nlev = 1
	}
	for _, family := range families {
		st := Study{Family: family}
		n := c.IP.BaseDivisions
		for l := 0; l < nlev; l++ {
			var lev Level
			if lev, err = c.SolveLevel(n, family); err != nil {
				return
			}
			st.Levels = append(st.Levels, lev)
			n *= 2
		}
		studies = append(studies, st)
	}
	return
}

func (st Study) errors() (l2, h1 []float64) {
	for _, lev := range st.Levels {
		l2 = append(l2, lev.L2)
		h1 = append(h1, lev.H1)
	}
	return
}

// Orders are the observed L2 and H1 seminorm rates between successive levels.
func (st Study) Orders() (l2, h1 []float64) {
	e2, e1 := st.errors()
	return norms.ConvergenceOrder(e2), norms.ConvergenceOrder(e1)
}

func PrintStudies(title string, studies []Study) {
	fmt.Printf("%s\n", title)
	for _, norm := range []string{"L2", "H1"} {
		fmt.Printf("\n%s error\n", norm)
		fmt.Printf("%-12s %5s %8s %12s %8s\n", "Family", "N", "Dofs", "Error", "Order")
		for _, st := range studies {
			o2, o1 := st.Orders()
			orders := o2
			if norm == "H1" {
				orders = o1
			}
			for l, lev := range st.Levels {
				e := lev.L2
				if norm == "H1" {
					e = lev.H1
				}
				ratio := "-"
				if l > 0 {
					ratio = fmt.Sprintf("%8.3f", orders[l-1])
				}
				fmt.Printf("%-12v %5d %8d %12.4e %8s\n", st.Family, lev.N, lev.NDofs, e, ratio)
			}
		}
	}
}

// WriteCSV writes one row per level, the input of tools/convOrder.
func WriteCSV(w io.Writer, title string, studies []Study) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Title", "Family", "N", "Dofs", "L2", "H1"})
	for _, st := range studies {
		for _, lev := range st.Levels {
			_ = cw.Write([]string{title, st.Family.String(), fmt.Sprint(lev.N), fmt.Sprint(lev.NDofs),
				fmt.Sprintf("%.8e", lev.L2), fmt.Sprintf("%.8e", lev.H1)})
		}
	}
	cw.Flush()
	return cw.Error()
}
