// Package assembly walks the owned elements of a mesh, evaluates a weak form kernel at the
// quadrature points and scatters the residual and its exact tangent, taken from a differentiation
// tape, into the global system.
package assembly

import (
	"fmt"

	"github.com/notargets/femtk/mapping"
	"github.com/notargets/femtk/refelem"
	"github.com/notargets/femtk/shape"
	"github.com/notargets/femtk/tape"
	"github.com/notargets/femtk/types"
	"github.com/notargets/femtk/utils"
)

var ErrUnknownField = fmt.Errorf("unknown field: %w", types.ErrConfiguration)

// Mesh is the mesh and partition collaborator.
type Mesh interface {
	NumElements() int
	ElementType(iel int) types.GeomElType
	NumDofs(iel int, family types.FEFamily) int
	ElementDofs(iel int, family types.FEFamily, dofs []int)
	Coords(iel int, family types.FEFamily, dst [][]float64) int
	OwnedRange(rank int) (start, end int)
}

// Solution is the solution state collaborator. Fields are addressed by their registration index.
type Solution interface {
	FieldIndex(name string) (idx int, ok bool)
	Family(idx int) types.FEFamily
	NumDofs(idx int) int
	Value(idx, dof int) float64
	SetValue(idx, dof int, val float64)
	Constraint(idx, dof int) (g float64, fixed bool)
}

// ElementError carries the id of the element whose assembly failed.
type ElementError struct {
	Elem int
	Err  error
}

func (e *ElementError) Error() string { return fmt.Sprintf("element %d: %v", e.Elem, e.Err) }
func (e *ElementError) Unwrap() error { return e.Err }

type Config struct {
	Field string
	// GeometryFamily interpolates the coordinates when SeparateGeometry is set, otherwise the
	// field's own family does (isoparametric).
	GeometryFamily   types.FEFamily
	SeparateGeometry bool
	QuadratureDegree int // zero selects refelem.DefaultDegree of the higher family
	DisableDirichlet bool
}

// Local is the result of one element: the Newton right hand side -R, the tangent dR/du in column
// order (Jacobian[j*n+i] = dR_i/du_j) and the global DOF of every local row.
type Local struct {
	Dofs     []int
	Residual []float64
	Jacobian []float64
}

func (l Local) NumDofs() int { return len(l.Dofs) }

// At is dR_i/du_j.
func (l Local) At(i, j int) float64 { return l.Jacobian[j*len(l.Dofs)+i] }

type Assembler struct {
	Mesh     Mesh
	Sol      Solution
	Kernel   Kernel
	Comm     *utils.Comm
	Residual *utils.GlobalVector
	Jacobian *utils.GlobalMatrix

	field      int
	family     types.FEFamily
	geomFamily types.FEFamily
	evals      map[types.GeomElType]*shape.Evaluator
	dirichlet  bool
}

// New validates the configuration against the mesh and the solution registry; every failure is a
// configuration fault and nothing is assembled.
func New(m Mesh, sol Solution, kernel Kernel, cfg Config, comm *utils.Comm) (a *Assembler, err error) {
	idx, ok := sol.FieldIndex(cfg.Field)
	if !ok {
		return nil, fmt.Errorf("%q: %w", cfg.Field, ErrUnknownField)
	}
	if kernel == nil {
		return nil, fmt.Errorf("no kernel for field %q: %w", cfg.Field, types.ErrConfiguration)
	}
	a = &Assembler{
		Mesh:       m,
		Sol:        sol,
		Kernel:     kernel,
		Comm:       comm,
		field:      idx,
		family:     sol.Family(idx),
		geomFamily: sol.Family(idx),
		dirichlet:  !cfg.DisableDirichlet,
	}
	if cfg.SeparateGeometry {
		a.geomFamily = cfg.GeometryFamily
	}
	if a.evals, err = NewEvaluators(m, a.family, a.geomFamily, cfg.QuadratureDegree); err != nil {
		return nil, err
	}
	n := sol.NumDofs(idx)
	a.Residual = utils.NewGlobalVector(n, "Residual "+cfg.Field)
	a.Jacobian = utils.NewGlobalMatrix(n, n, "Jacobian "+cfg.Field)
	return
}

func maxFamily(a, b types.FEFamily) types.FEFamily {
	if a > b {
		return a
	}
	return b
}

// NewEvaluators builds one shape evaluator per element geometry present in the mesh. A zero degree
// selects the default rule of the higher family.
func NewEvaluators(m Mesh, family, geomFamily types.FEFamily,
	degree int) (evals map[types.GeomElType]*shape.Evaluator, err error) {
	if degree == 0 {
		degree = refelem.DefaultDegree(maxFamily(family, geomFamily))
	}
	evals = make(map[types.GeomElType]*shape.Evaluator)
	for iel := 0; iel < m.NumElements(); iel++ {
		g := m.ElementType(iel)
		if m.NumDofs(iel, family) > 0 && m.NumDofs(iel, geomFamily) == 0 {
			return nil, fmt.Errorf("element %d has no %v geometry nodes: %w", iel, geomFamily, types.ErrConfiguration)
		}
		if _, done := evals[g]; done {
			continue
		}
		var (
			field, geom *refelem.Table
			gm          mapping.Map
			ev          *shape.Evaluator
		)
		if field, err = refelem.Get(g, family, degree); err != nil {
			return
		}
		if geom, err = refelem.Get(g, geomFamily, degree); err != nil {
			return
		}
		if gm, err = mapping.NewFromGeom(g, 3, geom); err != nil {
			return
		}
		if ev, err = shape.NewEvaluator(field, gm); err != nil {
			return
		}
		evals[g] = ev
	}
	return
}

// Workspace is the per rank scratch of the element loop: the tape and every local buffer. A
// workspace must not be shared between goroutines.
type Workspace struct {
	Tape   *tape.Tape
	coords [][]float64
	values map[types.GeomElType]*shape.Values
	qp     QPoint
	dofs   []int
	rows   []int
	u      []float64
	rhs    []float64
	lift   []float64
	jac    []float64
	block  []float64
	gcol   [3][]float64
	acc    []tape.Real
	res    []tape.Real
	gradU  []tape.Real
}

func (a *Assembler) NewWorkspace() (ws *Workspace) {
	return newWorkspace(a.evals)
}

func newWorkspace(evals map[types.GeomElType]*shape.Evaluator) (ws *Workspace) {
	ws = &Workspace{
		Tape:   tape.New(),
		coords: make([][]float64, 3),
		values: make(map[types.GeomElType]*shape.Values),
		gradU:  make([]tape.Real, 3),
	}
	for g, ev := range evals {
		ws.values[g] = ev.NewValues(false)
	}
	ws.resize(types.MaxElementNodes)
	return
}

func (ws *Workspace) resize(n int) {
	if cap(ws.dofs) >= n {
		return
	}
	ws.dofs = make([]int, n)
	ws.rows = make([]int, n)
	ws.u = make([]float64, n)
	ws.rhs = make([]float64, n)
	ws.lift = make([]float64, n)
	ws.jac = make([]float64, n*n)
	ws.block = make([]float64, n*n)
	for d := range ws.gcol {
		ws.gcol[d] = make([]float64, n)
	}
	ws.acc = make([]tape.Real, n)
	ws.res = make([]tape.Real, n)
}

// AssembleElement records element iel on the workspace tape, extracts its local residual and
// tangent and scatters them into the global system. Elements without DOFs return an empty Local.
// The returned slices alias the workspace and are valid until its next use.
func (a *Assembler) AssembleElement(ws *Workspace, iel int) (loc Local, err error) {
	var (
		g  = a.Mesh.ElementType(iel)
		n  = a.Mesh.NumDofs(iel, a.family)
		ev = a.evals[g]
		tp = ws.Tape
	)
	if n == 0 {
		return
	}
	ws.resize(n)
	// Local to global map, coordinates and current values
	dofs := ws.dofs[:n]
	u := ws.u[:n]
	a.Mesh.ElementDofs(iel, a.family, dofs)
	for i, dof := range dofs {
		u[i] = a.Sol.Value(a.field, dof)
	}
	a.Mesh.Coords(iel, a.geomFamily, ws.coords)

	tp.NewRecording()
	U := tp.Vars(u)
	acc := ws.acc[:n]
	for i := range acc {
		acc[i] = tape.Const(0)
	}
	var (
		vals = ws.values[g]
		res  = ws.res[:n]
		qp   = &ws.qp
	)
	for ig := 0; ig < ev.NumPoints(); ig++ {
		if err = ev.Evaluate(ws.coords, ig, vals); err != nil {
			return loc, &ElementError{Elem: iel, Err: err}
		}
		qp.Elem = iel
		qp.X = ev.Geometry.PhysicalPoint(ws.coords, ig)
		qp.Weight = vals.Weight
		qp.Phi = vals.Phi
		qp.GradPhi = vals.GradPhi
		for d := 0; d < 3; d++ {
			col := ws.gcol[d][:n]
			for i := range col {
				col[i] = vals.GradPhi[i][d]
			}
			ws.gradU[d] = tape.LinComb(col, U)
		}
		uq := tape.LinComb(vals.Phi, U)
		for i := range res {
			res[i] = tape.Const(0)
		}
		a.Kernel.Residual(qp, uq, ws.gradU, res)
		w := tape.Const(vals.Weight)
		for i := range acc {
			acc[i] = acc[i].MulAdd(res[i], w)
		}
	}
	rhs := ws.rhs[:n]
	for i := range rhs {
		rhs[i] = -acc[i].Value()
	}
	tp.Dependent(acc...)
	tp.Independent(U...)
	jac := ws.jac[:n*n]
	err = tp.Jacobian(jac)
	tp.ClearDependents()
	tp.ClearIndependents()
	if err != nil {
		return loc, &ElementError{Elem: iel, Err: err}
	}
	loc = Local{Dofs: dofs, Residual: rhs, Jacobian: jac}
	a.scatter(ws, loc)
	return
}

// scatter adds the element into the global system. Constrained DOFs are masked out of both rows
// and columns; the known correction g - u of a constrained column is moved to the right hand side.
func (a *Assembler) scatter(ws *Workspace, loc Local) {
	var (
		n     = loc.NumDofs()
		rows  = ws.rows[:n]
		block = ws.block[:n*n]
		rhs   = ws.lift[:n]
	)
	copy(rhs, loc.Residual)
	for j, d := range loc.Dofs {
		rows[j] = d
		if !a.dirichlet {
			continue
		}
		g, fixed := a.Sol.Constraint(a.field, d)
		if !fixed {
			continue
		}
		rows[j] = -1
		if c := g - a.Sol.Value(a.field, d); c != 0 {
			for i := 0; i < n; i++ {
				rhs[i] -= loc.At(i, j) * c
			}
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			block[i*n+j] = loc.At(i, j)
		}
	}
	a.Residual.AddVector(rhs, rows)
	a.Jacobian.AddBlock(block, rows, rows)
}

// Assemble zeroes the global system, assembles every rank's owned elements concurrently, applies
// the Dirichlet rows and closes both containers collectively. The first element fault aborts the
// run and is returned as an *ElementError.
func (a *Assembler) Assemble() (err error) {
	a.Residual.Zero()
	a.Jacobian.Zero()
	comm := a.Comm
	if comm == nil {
		comm = utils.NewComm(1)
	}
	return comm.Run(func(rank int) (err error) {
		ws := a.NewWorkspace()
		start, end := a.Mesh.OwnedRange(rank)
		for iel := start; iel < end; iel++ {
			if _, err = a.AssembleElement(ws, iel); err != nil {
				return
			}
		}
		if rank == 0 && a.dirichlet {
			ApplyDirichlet(a.Sol, a.field, a.Jacobian, a.Residual)
		}
		if err = a.Residual.Close(comm); err != nil {
			return
		}
		return a.Jacobian.Close(comm)
	})
}

// ApplyDirichlet writes an identity row and the residual g - u for every constrained DOF of a
// field, so one Newton step lands on the boundary value. Assembly leaves those rows empty.
func ApplyDirichlet(sol Solution, field int, J *utils.GlobalMatrix, b *utils.GlobalVector) (nfixed int) {
	for dof := 0; dof < sol.NumDofs(field); dof++ {
		g, fixed := sol.Constraint(field, dof)
		if !fixed {
			continue
		}
		J.Set(dof, dof, 1)
		b.Set(dof, g-sol.Value(field, dof))
		nfixed++
	}
	return
}
