/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"

	"github.com/notargets/femtk/mesh"
	"github.com/notargets/femtk/types"
	"github.com/spf13/cobra"
)

// MeshCmd represents the mesh command
var MeshCmd = &cobra.Command{
	Use:   "mesh",
	Short: "Read, promote and partition a mesh file and report on it",
	Long: `
Reads a Gambit neutral or SU2 mesh, promotes it to the requested family,
partitions it for the requested number of ranks and prints its statistics.

femtk mesh -F grid.neu -f second -r 4`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			gridFile, _ = cmd.Flags().GetString("gridFile")
			famLabel, _ = cmd.Flags().GetString("family")
			nranks, _   = cmd.Flags().GetInt("ranks")
			family      types.FEFamily
			m           *mesh.Mesh
		)
		if len(gridFile) == 0 {
			return fmt.Errorf("must supply a grid file (-F, --gridFile) in .neu (Gambit neutral file) or .su2 format")
		}
		if family, err = types.NewFEFamily(famLabel); err != nil {
			return
		}
		if m, err = mesh.ReadMeshFile(gridFile, family); err != nil {
			return
		}
		if err = m.Partition(nranks, family); err != nil {
			return
		}
		m.PrintStatistics()
		fmt.Printf("%d %v dofs\n", m.NumGlobalDofs(family), family)
		for rank := 0; rank < m.NumRanks(); rank++ {
			start, end := m.OwnedRange(rank)
			fmt.Printf("rank %3d: elements [%d, %d)\n", rank, start, end)
		}
		return
	},
}

func init() {
	rootCmd.AddCommand(MeshCmd)
	MeshCmd.Flags().StringP("gridFile", "F", "", "Grid file in Gambit (.neu), SU2 (.su2) or Gmsh 2.2 (.msh) format")
	MeshCmd.Flags().StringP("family", "f", "first", "finite element family to promote to")
	MeshCmd.Flags().IntP("ranks", "r", 1, "number of partitions")
}
