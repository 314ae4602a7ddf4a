//go:build netlib

package utils

/*
#cgo LDFLAGS: -lopenblas -lgfortran -lm -lpthread
*/
import "C"

import (
	"log"

	"gonum.org/v1/gonum/blas/blas64"
	netblas "gonum.org/v1/netlib/blas/netlib"
)

// Built with -tags netlib, dense gonum operations (the LU fallback of the solver, reference
// Vandermonde inversions) run on OpenBLAS.
func init() {
	blas64.Use(netblas.Implementation{})
	log.Printf("using netlib to accelerate BLAS")
}
