package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/notargets/femtk/norms"
)

var (
	csvFile string
)

func main() {
	csvFilePtr := flag.String("csvFile", csvFile, "file containing entries of a convergence study")
	flag.Parse()
	csvFile = *csvFilePtr
	if len(csvFile) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	fmt.Printf("Input file: %v\n", csvFile)
	f, err := os.Open(csvFile)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer f.Close()
	studies, err := readCSV(bufio.NewReader(f))
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	for _, cs := range studies {
		l2, h1 := norms.ConvergenceOrder(cs.l2), norms.ConvergenceOrder(cs.h1)
		fmt.Printf("Title = %s, Family = %s\n", cs.title, cs.family)
		for i := range cs.n {
			if i == 0 {
				fmt.Printf("%5d, %12.4e, %8s, %12.4e, %8s\n", cs.n[i], cs.l2[i], "-", cs.h1[i], "-")
				continue
			}
			fmt.Printf("%5d, %12.4e, %8.3f, %12.4e, %8.3f\n", cs.n[i], cs.l2[i], l2[i-1], cs.h1[i], h1[i-1])
		}
	}
}

type ConvergenceStudy struct {
	title, family string
	n             []int
	l2, h1        []float64
}

func NewConvergenceStudy(title, family string) *ConvergenceStudy {
	return &ConvergenceStudy{
		title:  title,
		family: family,
	}
}

func (cs *ConvergenceStudy) Add(n int, l2, h1 float64) {
	cs.n = append(cs.n, n)
	cs.l2 = append(cs.l2, l2)
	cs.h1 = append(cs.h1, h1)
}

// readCSV groups the rows "title,family,N,dofs,L2,H1" by title and family, in file order.
func readCSV(r io.Reader) (studies []*ConvergenceStudy, err error) {
	var (
		records [][]string
		byKey   = make(map[string]*ConvergenceStudy)
	)
	if records, err = csv.NewReader(r).ReadAll(); err != nil {
		return
	}
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) < 6 {
			return nil, fmt.Errorf("line %d: %d fields, want 6", i+1, len(rec))
		}
		var (
			n      int
			l2, h1 float64
		)
		if n, err = strconv.Atoi(rec[2]); err != nil {
			return
		}
		if l2, err = strconv.ParseFloat(rec[4], 64); err != nil {
			return
		}
		if h1, err = strconv.ParseFloat(rec[5], 64); err != nil {
			return
		}
		key := rec[0] + "/" + rec[1]
		cs, ok := byKey[key]
		if !ok {
			cs = NewConvergenceStudy(rec[0], rec[1])
			byKey[key] = cs
			studies = append(studies, cs)
		}
		cs.Add(n, l2, h1)
	}
	for _, cs := range studies {
		sort.Sort(byN{cs})
	}
	return
}

type byN struct{ *ConvergenceStudy }

func (b byN) Len() int           { return len(b.n) }
func (b byN) Less(i, j int) bool { return b.n[i] < b.n[j] }
func (b byN) Swap(i, j int) {
	b.n[i], b.n[j] = b.n[j], b.n[i]
	b.l2[i], b.l2[j] = b.l2[j], b.l2[i]
	b.h1[i], b.h1[j] = b.h1[j], b.h1[i]
}
