package InputParameters

import (
	"fmt"
	"sort"

	"github.com/ghodss/yaml"
	"github.com/notargets/femtk/types"
)

// Parameters obtained from the YAML input file
type InputParametersFE struct {
	Title            string         `yaml:"Title"`
	Geometry         string         `yaml:"Geometry"` // element shape of the structured meshes
	Families         []string       `yaml:"Families"`
	Levels           int            `yaml:"Levels"`        // refinement levels of the study
	BaseDivisions    int            `yaml:"BaseDivisions"` // cells per side at level 1
	MeshFile         string         `yaml:"MeshFile"`      // .neu or .su2, replaces the structured mesh
	Ranks            int            `yaml:"Ranks"`
	Partitioner      string         `yaml:"Partitioner"` // contiguous or metis
	QuadratureDegree int            `yaml:"QuadratureDegree"`
	Tolerance        float64        `yaml:"Tolerance"`
	MaxIterations    int            `yaml:"MaxIterations"`
	BCs              map[int]string `yaml:"BCs"` // boundary tag to dirichlet or neumann, dirichlet when absent
	GeometryFamily   string         `yaml:"GeometryFamily"` // interpolates the coordinates, the field family when empty
	Projection       bool           `yaml:"Projection"`     // also build the gradient projection matrices
}

func NewInputParametersFE() *InputParametersFE {
	return &InputParametersFE{
		Title:         "Poisson convergence",
		Geometry:      "quad",
		Families:      []string{"first", "serendipity", "second"},
		Levels:        4,
		BaseDivisions: 2,
		Ranks:         1,
		Partitioner:   "contiguous",
		Tolerance:     1.e-12,
	}
}

func (ip *InputParametersFE) Parse(data []byte) error {
	if err := yaml.Unmarshal(data, ip); err != nil {
		return fmt.Errorf("input parameters: %v: %w", err, types.ErrConfiguration)
	}
	return ip.Validate()
}

// Validate checks the names in the file against the known geometries, families and conditions.
func (ip *InputParametersFE) Validate() (err error) {
	if _, err = ip.GeomElType(); err != nil {
		return
	}
	if _, err = ip.FEFamilies(); err != nil {
		return
	}
	if _, err = ip.BCFlags(); err != nil {
		return
	}
	if _, _, err = ip.GeomFamily(); err != nil {
		return
	}
	switch {
	case ip.Levels < 1, ip.BaseDivisions < 1, ip.Ranks < 1:
		return fmt.Errorf("levels %d, base divisions %d and ranks %d must be positive: %w",
			ip.Levels, ip.BaseDivisions, ip.Ranks, types.ErrConfiguration)
	case ip.Partitioner != "contiguous" && ip.Partitioner != "metis":
		return fmt.Errorf("partitioner %q: %w", ip.Partitioner, types.ErrConfiguration)
	}
	return
}

func (ip *InputParametersFE) GeomElType() (types.GeomElType, error) {
	return types.NewGeomElType(ip.Geometry)
}

func (ip *InputParametersFE) FEFamilies() (families []types.FEFamily, err error) {
	if len(ip.Families) == 0 {
		return nil, fmt.Errorf("no finite element family: %w", types.ErrConfiguration)
	}
	families = make([]types.FEFamily, len(ip.Families))
	for i, label := range ip.Families {
		if families[i], err = types.NewFEFamily(label); err != nil {
			return nil, err
		}
	}
	return
}

// GeomFamily is the family interpolating the coordinates; separate is false for isoparametric studies.
func (ip *InputParametersFE) GeomFamily() (family types.FEFamily, separate bool, err error) {
	if ip.GeometryFamily == "" {
		return
	}
	if family, err = types.NewFEFamily(ip.GeometryFamily); err != nil {
		return
	}
	return family, true, nil
}

func (ip *InputParametersFE) BCFlags() (flags map[int]types.BCFLAG, err error) {
	flags = make(map[int]types.BCFLAG, len(ip.BCs))
	for tag, label := range ip.BCs {
		flag, ok := types.BCNameMap[label]
		if !ok || flag == types.BC_None {
			return nil, fmt.Errorf("boundary condition %q on tag %d: %w", label, tag, types.ErrConfiguration)
		}
		flags[tag] = flag
	}
	return
}

func (ip *InputParametersFE) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", ip.Title)
	if ip.MeshFile != "" {
		fmt.Printf("[%s]\t= Mesh File\n", ip.MeshFile)
	} else {
		fmt.Printf("[%s]\t\t\t= Geometry\n", ip.Geometry)
		fmt.Printf("[%d]\t\t\t\t= Base Divisions\n", ip.BaseDivisions)
	}
	fmt.Printf("%v\t= Families\n", ip.Families)
	fmt.Printf("[%d]\t\t\t\t= Levels\n", ip.Levels)
	fmt.Printf("[%d]\t\t\t\t= Ranks (%s)\n", ip.Ranks, ip.Partitioner)
	if ip.GeometryFamily != "" {
		fmt.Printf("[%s]\t\t\t= Geometry Family\n", ip.GeometryFamily)
	}
	if ip.Projection {
		fmt.Printf("[%v]\t\t\t= Projection\n", ip.Projection)
	}
	fmt.Printf("%8.2e\t\t= Tolerance\n", ip.Tolerance)
	keys := make([]int, 0, len(ip.BCs))
	for k := range ip.BCs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, key := range keys {
		fmt.Printf("BCs[%d] = %v\n", key, ip.BCs[key])
	}
}
