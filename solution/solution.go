// Package solution holds the named scalar fields of a problem, one value per global DOF of the
// field's FE family, with their Dirichlet constraints.
package solution

import (
	"fmt"
	"sort"

	"github.com/notargets/femtk/mesh"
	"github.com/notargets/femtk/types"
)

var ErrUnknownField = fmt.Errorf("unknown field: %w", types.ErrConfiguration)

type Field struct {
	Name   string
	Family types.FEFamily
	Values []float64
	// Fixed marks Dirichlet DOFs, Boundary holds their prescribed values.
	Fixed    []bool
	Boundary []float64
}

// BoundaryCondition gives, for a boundary node at x on a face tagged tag, the kind of condition and
// the prescribed value. Nodes shared by a Dirichlet face and a natural face are constrained.
type BoundaryCondition func(x [3]float64, tag int) (types.BCFLAG, float64)

type Solution struct {
	Mesh   *mesh.Mesh
	fields []*Field
	index  map[string]int
}

func New(m *mesh.Mesh) *Solution {
	return &Solution{Mesh: m, index: make(map[string]int)}
}

// AddField registers a zero valued field. The mesh must carry the nodes of the family.
func (s *Solution) AddField(name string, family types.FEFamily) (f *Field, err error) {
	if _, dup := s.index[name]; dup {
		return nil, fmt.Errorf("field %q registered twice: %w", name, types.ErrConfiguration)
	}
	if family > s.Mesh.Order {
		return nil, fmt.Errorf("field %q of family %v on a mesh of order %v: %w",
			name, family, s.Mesh.Order, types.ErrConfiguration)
	}
	n := s.Mesh.NumGlobalDofs(family)
	f = &Field{
		Name:     name,
		Family:   family,
		Values:   make([]float64, n),
		Fixed:    make([]bool, n),
		Boundary: make([]float64, n),
	}
	s.index[name] = len(s.fields)
	s.fields = append(s.fields, f)
	return
}

// Field looks a field up by name.
func (s *Solution) Field(name string) (f *Field, err error) {
	idx, ok := s.index[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownField)
	}
	return s.fields[idx], nil
}

func (s *Solution) Names() (names []string) {
	for _, f := range s.fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return
}

// FieldIndex, Family, Value, SetValue and Constraint address a field by its registration index.
func (s *Solution) FieldIndex(name string) (idx int, ok bool) {
	idx, ok = s.index[name]
	return
}

func (s *Solution) Family(idx int) types.FEFamily      { return s.fields[idx].Family }
func (s *Solution) Value(idx, dof int) float64          { return s.fields[idx].Values[dof] }
func (s *Solution) SetValue(idx, dof int, val float64)  { s.fields[idx].Values[dof] = val }
func (s *Solution) NumDofs(idx int) int                 { return len(s.fields[idx].Values) }
func (s *Solution) Constraint(idx, dof int) (g float64, fixed bool) {
	f := s.fields[idx]
	return f.Boundary[dof], f.Fixed[dof]
}

// Initialize sets every DOF of the field from fn at the DOF's node.
func (s *Solution) Initialize(name string, fn func(x [3]float64) float64) (err error) {
	var f *Field
	if f, err = s.Field(name); err != nil {
		return
	}
	for dof := range f.Values {
		f.Values[dof] = fn(s.Mesh.DofCoords(dof, f.Family))
	}
	return
}

// SetBoundaryCondition evaluates bc on every boundary node of the field and records the Dirichlet
// constraints. It returns the number of constrained DOFs.
func (s *Solution) SetBoundaryCondition(name string, bc BoundaryCondition) (nfixed int, err error) {
	var f *Field
	if f, err = s.Field(name); err != nil {
		return
	}
	for i := range f.Fixed {
		f.Fixed[i] = false
		f.Boundary[i] = 0
	}
	dn := s.Mesh.Dofs(f.Family)
	for _, faceID := range s.Mesh.BoundaryFaces() {
		face := s.Mesh.Faces[faceID]
		el := s.Mesh.Elements[face.Element]
		for _, ln := range mesh.FaceLocalNodes(s.Mesh.ElementTypes[face.Element], face.LocalID, f.Family) {
			node := el[ln]
			flag, val := bc(s.Mesh.Nodes[node], face.Tag)
			if flag != types.BC_Dirichlet {
				continue
			}
			dof := dn.NodeToDof[node]
			if !f.Fixed[dof] {
				nfixed++
			}
			f.Fixed[dof] = true
			f.Boundary[dof] = val
		}
	}
	return
}

// ApplyDirichlet copies the prescribed boundary values into the field.
func (f *Field) ApplyDirichlet() {
	for dof, fixed := range f.Fixed {
		if fixed {
			f.Values[dof] = f.Boundary[dof]
		}
	}
}

// Update adds a correction to every DOF, the Newton step u += du.
func (f *Field) Update(du []float64) {
	if len(du) != len(f.Values) {
		panic(fmt.Errorf("field %q: correction of length %d for %d DOFs", f.Name, len(du), len(f.Values)))
	}
	for i, d := range du {
		f.Values[i] += d
	}
}
