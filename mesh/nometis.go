//go:build !metis

package mesh

import "fmt"

const metisAvailable = false

func (mp *MeshPartitioner) partitionGraph() (int32, error) {
	return 0, fmt.Errorf("built without METIS, rebuild with -tags metis")
}
