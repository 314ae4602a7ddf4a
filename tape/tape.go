// Package tape records the elementary operations of a computation over tracked variables and
// extracts exact derivatives from the recording by reverse sweeps.
package tape

import (
	"fmt"

	"github.com/notargets/femtk/types"
)

var ErrDiscipline = fmt.Errorf("differentiation tape misuse: %w", types.ErrTapeDiscipline)

type operand struct {
	idx     int
	partial float64
}

// statement: variable lhs depends on ops[start:end] of the tape.
type statement struct {
	lhs, end int
}

// Tape is a reverse mode recording. One tape serves one element at a time; tapes are not safe
// for concurrent use, give each goroutine its own.
type Tape struct {
	recording bool
	gen       int
	nvar      int
	stmts     []statement
	ops       []operand
	indep     []int
	dep       []int
	adj       []float64
	err       error
}

func New() *Tape { return &Tape{} }

// NewRecording discards the previous recording and its registrations. Variables from earlier
// recordings become invalid.
func (t *Tape) NewRecording() {
	t.recording = true
	t.gen++
	t.nvar = 0
	t.stmts = t.stmts[:0]
	t.ops = t.ops[:0]
	t.indep = t.indep[:0]
	t.dep = t.dep[:0]
	t.err = nil
}

func (t *Tape) Recording() bool { return t.recording }

// Err is the first misuse seen since the last NewRecording.
func (t *Tape) Err() error { return t.err }

func (t *Tape) fail(format string, args ...interface{}) {
	if t.err == nil {
		t.err = fmt.Errorf(format+": %w", append(args, ErrDiscipline)...)
	}
}

// NumStatements is the number of recorded operations.
func (t *Tape) NumStatements() int { return len(t.stmts) }

// Var creates a tracked leaf variable.
func (t *Tape) Var(val float64) Real {
	if !t.recording {
		t.fail("variable created outside a recording")
		return Const(val)
	}
	idx := t.nvar
	t.nvar++
	return Real{t: t, gen: t.gen, idx: idx, val: val}
}

// Vars creates one tracked leaf per value.
func (t *Tape) Vars(vals []float64) (r []Real) {
	r = make([]Real, len(vals))
	for i, v := range vals {
		r[i] = t.Var(v)
	}
	return
}

func (t *Tape) record(val float64, ops ...operand) Real {
	if !t.recording {
		t.fail("operation recorded outside a recording")
		return Const(val)
	}
	var live int
	for _, op := range ops {
		if op.idx >= 0 {
			t.ops = append(t.ops, op)
			live++
		}
	}
	if live == 0 {
		return Const(val)
	}
	lhs := t.nvar
	t.nvar++
	t.stmts = append(t.stmts, statement{lhs: lhs, end: len(t.ops)})
	return Real{t: t, gen: t.gen, idx: lhs, val: val}
}

func (t *Tape) check(r Real) bool {
	if r.t == nil {
		return true
	}
	if r.t != t || r.gen != t.gen {
		t.fail("variable from another recording")
		return false
	}
	return true
}

// Independent registers the tracked inputs, in Jacobian column order.
func (t *Tape) Independent(vars ...Real) {
	for _, v := range vars {
		if !t.check(v) {
			return
		}
		if v.index() < 0 {
			t.fail("constant registered as independent")
			return
		}
		t.indep = append(t.indep, v.idx)
	}
}

// Dependent registers outputs, in Jacobian row order. An untracked output yields a zero row.
func (t *Tape) Dependent(vars ...Real) {
	for _, v := range vars {
		if !t.check(v) {
			return
		}
		t.dep = append(t.dep, v.index())
	}
}

func (t *Tape) ClearIndependents() { t.indep = t.indep[:0] }
func (t *Tape) ClearDependents()   { t.dep = t.dep[:0] }

func (t *Tape) NumIndependents() int { return len(t.indep) }
func (t *Tape) NumDependents() int   { return len(t.dep) }

// Jacobian writes d dep_i / d indep_j into jac[j*m+i] (column ordered), m = NumDependents.
func (t *Tape) Jacobian(jac []float64) (err error) {
	var (
		m = len(t.dep)
		n = len(t.indep)
	)
	switch {
	case t.err != nil:
		return t.err
	case !t.recording:
		return fmt.Errorf("jacobian requested without a recording: %w", ErrDiscipline)
	case m == 0:
		return fmt.Errorf("jacobian requested with no dependent variables: %w", ErrDiscipline)
	case n == 0:
		return fmt.Errorf("jacobian requested with no independent variables: %w", ErrDiscipline)
	case len(jac) < m*n:
		return fmt.Errorf("jacobian buffer holds %d values, need %d: %w", len(jac), m*n, ErrDiscipline)
	}
	if cap(t.adj) < t.nvar {
		t.adj = make([]float64, t.nvar)
	}
	adj := t.adj[:t.nvar]
	for i, d := range t.dep {
		if d < 0 {
			for j := 0; j < n; j++ {
				jac[j*m+i] = 0
			}
			continue
		}
		for k := range adj {
			adj[k] = 0
		}
		adj[d] = 1
		for s := len(t.stmts) - 1; s >= 0; s-- {
			st := t.stmts[s]
			a := adj[st.lhs]
			if a == 0 {
				continue
			}
			start := 0
			if s > 0 {
				start = t.stmts[s-1].end
			}
			for _, op := range t.ops[start:st.end] {
				adj[op.idx] += a * op.partial
			}
		}
		for j, ind := range t.indep {
			jac[j*m+i] = adj[ind]
		}
	}
	return
}
