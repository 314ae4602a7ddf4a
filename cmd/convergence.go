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
	"os"
	"strings"

	"github.com/notargets/femtk/InputParameters"
	"github.com/notargets/femtk/model_problems/Poisson"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const exampleStudy = `
########################################
Title: "Unit square"
Geometry: quad      # line, quad, tri, hex, tet or wedge
Families: [first, serendipity, second]
Levels: 4
BaseDivisions: 2
Ranks: 1
Partitioner: contiguous   # or metis
BCs:
  2: neumann        # x max side, every other side is dirichlet
GeometryFamily: second    # optional, coordinates interpolated apart from the field
Projection: false         # also build the gradient projection on every level
########################################
`

// ConvergenceCmd represents the convergence command
var ConvergenceCmd = &cobra.Command{
	Use:   "convergence",
	Short: "Poisson convergence study on refined meshes",
	Long: `
Solves -lap(u) = f with a manufactured solution on successively refined meshes for
each finite element family, and prints the L2 and H1 seminorm errors with their
observed orders.

femtk convergence -I study.yaml`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var ip *InputParameters.InputParametersFE
		if ip, err = processInput(cmd); err != nil {
			return
		}
		ip.Print()
		c, err := Poisson.NewConvergence(ip, viper.GetBool("verbose"))
		if err != nil {
			return
		}
		studies, err := c.Run()
		if err != nil {
			return
		}
		Poisson.PrintStudies(ip.Title, studies)
		if csvFile, _ := cmd.Flags().GetString("csvFile"); csvFile != "" {
			var f *os.File
			if f, err = os.Create(csvFile); err != nil {
				return
			}
			defer f.Close()
			err = Poisson.WriteCSV(f, ip.Title, studies)
		}
		return
	},
}

// processInput starts from the defaults, applies the input file and then the flags given.
func processInput(cmd *cobra.Command) (ip *InputParameters.InputParametersFE, err error) {
	ip = InputParameters.NewInputParametersFE()
	icFile, _ := cmd.Flags().GetString("inputConditionsFile")
	if len(icFile) != 0 {
		var data []byte
		if data, err = os.ReadFile(icFile); err != nil {
			return
		}
		if err = ip.Parse(data); err != nil {
			fmt.Printf("Example File:%s\n", exampleStudy)
			return
		}
	}
	flags := cmd.Flags()
	if flags.Changed("gridFile") {
		ip.MeshFile, _ = flags.GetString("gridFile")
	}
	if flags.Changed("geometry") {
		ip.Geometry, _ = flags.GetString("geometry")
	}
	if flags.Changed("families") {
		fams, _ := flags.GetString("families")
		ip.Families = strings.Split(fams, ",")
	}
	if flags.Changed("levels") {
		ip.Levels, _ = flags.GetInt("levels")
	}
	if flags.Changed("ranks") {
		ip.Ranks, _ = flags.GetInt("ranks")
	}
	if flags.Changed("metis") {
		ip.Partitioner = "metis"
	}
	if flags.Changed("geometryFamily") {
		ip.GeometryFamily, _ = flags.GetString("geometryFamily")
	}
	if flags.Changed("projection") {
		ip.Projection, _ = flags.GetBool("projection")
	}
	err = ip.Validate()
	return
}

func init() {
	rootCmd.AddCommand(ConvergenceCmd)
	ConvergenceCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file of study parameters")
	ConvergenceCmd.Flags().StringP("gridFile", "F", "", "Grid file in Gambit (.neu), SU2 (.su2) or Gmsh 2.2 (.msh) format, replaces the structured meshes")
	ConvergenceCmd.Flags().StringP("geometry", "g", "quad", "element shape of the structured meshes")
	ConvergenceCmd.Flags().StringP("families", "f", "first,serendipity,second", "comma separated finite element families")
	ConvergenceCmd.Flags().IntP("levels", "l", 4, "number of refinement levels")
	ConvergenceCmd.Flags().IntP("ranks", "r", 1, "number of parallel ranks")
	ConvergenceCmd.Flags().String("csvFile", "", "also write the results as CSV, for convOrder")
	ConvergenceCmd.Flags().Bool("metis", false, "partition with METIS instead of contiguous ranges")
	ConvergenceCmd.Flags().String("geometryFamily", "", "family interpolating the coordinates, the field family when empty")
	ConvergenceCmd.Flags().Bool("projection", false, "build the gradient projection matrices on every level")
}
