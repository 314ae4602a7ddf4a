package types

import (
	"fmt"
	"strings"
)

// GeomElType enumerates the reference shapes, in the order the mesh files use.
type GeomElType uint8

const (
	Hex GeomElType = iota
	Tet
	Wedge
	Quad
	Tri
	Line
)

// MaxElementNodes is the node count of the richest element (hex27).
const MaxElementNodes = 27

var geomNames = [...]string{"hex", "tet", "wedge", "quad", "tri", "line"}

func (g GeomElType) String() string {
	if int(g) >= len(geomNames) {
		return fmt.Sprintf("GeomElType(%d)", g)
	}
	return geomNames[g]
}

// Dim is the topological dimension of the reference shape.
func (g GeomElType) Dim() int {
	switch g {
	case Hex, Tet, Wedge:
		return 3
	case Quad, Tri:
		return 2
	default:
		return 1
	}
}

var GeomNameMap = map[string]GeomElType{
	"hex":      Hex,
	"hexa":     Hex,
	"brick":    Hex,
	"tet":      Tet,
	"tetra":    Tet,
	"wedge":    Wedge,
	"prism":    Wedge,
	"quad":     Quad,
	"tri":      Tri,
	"triangle": Tri,
	"line":     Line,
	"edge":     Line,
}

func NewGeomElType(label string) (g GeomElType, err error) {
	var ok bool
	if g, ok = GeomNameMap[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("unknown element geometry %q: %w", label, ErrConfiguration)
	}
	return
}

// FEFamily is the finite element family/order of a field.
type FEFamily uint8

const (
	First       FEFamily = iota // linear / bilinear / trilinear
	Serendipity                 // quadratic, edge nodes only
	Second                      // full quadratic Lagrange, with face and volume centers
)

var familyNames = [...]string{"FIRST", "SERENDIPITY", "SECOND"}

func (f FEFamily) String() string {
	if int(f) >= len(familyNames) {
		return fmt.Sprintf("FEFamily(%d)", f)
	}
	return familyNames[f]
}

var FamilyNameMap = map[string]FEFamily{
	"first":       First,
	"linear":      First,
	"serendipity": Serendipity,
	"quadratic":   Serendipity,
	"second":      Second,
	"biquadratic": Second,
}

func NewFEFamily(label string) (f FEFamily, err error) {
	var ok bool
	if f, ok = FamilyNameMap[strings.ToLower(strings.TrimSpace(label))]; !ok {
		err = fmt.Errorf("unknown finite element family %q: %w", label, ErrConfiguration)
	}
	return
}

type BCFLAG uint8

const (
	BC_None BCFLAG = iota
	BC_Dirichlet
	BC_Neuman
)

var BCNameMap = map[string]BCFLAG{
	"none":      BC_None,
	"dirichlet": BC_Dirichlet,
	"neuman":    BC_Neuman,
	"neumann":   BC_Neuman,
}

func (b BCFLAG) String() string {
	switch b {
	case BC_Dirichlet:
		return "Dirichlet"
	case BC_Neuman:
		return "Neuman"
	default:
		return "None"
	}
}
