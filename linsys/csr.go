package linsys

import (
	"errors"
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"

	"github.com/arturcastiel/opm-simulators/grid"
)

// ErrEmptyPattern is returned when the computed sparsity pattern holds no
// nonzeros, which only happens for a malformed grid
var ErrEmptyPattern = errors.New("sparsity pattern has no nonzeros")

// CSRMatrix is a square matrix in compressed sparse row form. Row i holds
// columns JA[IA[i]:IA[i+1]] with values SA[IA[i]:IA[i+1]].
type CSRMatrix struct {
	M   int // Rows (and columns)
	NNZ int

	IA []int
	JA []int
	SA []float64
}

// Construct builds the (N+W)x(N+W) pressure system pattern for grid g with
// optional wells: one diagonal per unknown, a symmetric pair for every
// interior face and a symmetric pair for every well perforation. Well w is
// unknown N+w. Rows are sorted by column on return.
func Construct(g *grid.Grid, w *grid.Perforations) (*CSRMatrix, error) {
	nc := g.NumCells
	nnu := nc + w.NumWells()

	A := &CSRMatrix{
		M:  nnu,
		IA: make([]int, nnu+1),
	}

	// Count entries per row, offset by one for the prefix sum
	for i := 0; i < nnu; i++ {
		A.IA[i+1] = 1
	}
	for f := 0; f < g.NumFaces; f++ {
		c1, c2 := g.Neighbours(f)
		if c1 >= 0 && c2 >= 0 {
			A.IA[c1+1]++
			A.IA[c2+1]++
		}
	}
	for well := 0; well < w.NumWells(); well++ {
		for _, c := range w.WellCells(well) {
			A.IA[c+1]++       // c -> w
			A.IA[nc+well+1]++ // w -> c
		}
	}

	nnz := 0
	for i := 1; i <= nnu; i++ {
		nnz += A.IA[i]
	}
	if nnz == 0 {
		return nil, fmt.Errorf("%d unknowns: %w", nnu, ErrEmptyPattern)
	}

	// Shift counts into start offsets: IA[i+1] is the fill cursor of row i
	for i := 1; i <= nnu; i++ {
		A.IA[i] += A.IA[i-1]
	}
	copy(A.IA[1:], A.IA[:nnu])
	A.IA[0] = 0

	A.NNZ = nnz
	A.JA = make([]int, nnz)
	A.SA = make([]float64, nnz)

	push := func(row, col int) {
		A.JA[A.IA[row+1]] = col
		A.IA[row+1]++
	}

	for i := 0; i < nnu; i++ {
		push(i, i)
	}
	for f := 0; f < g.NumFaces; f++ {
		c1, c2 := g.Neighbours(f)
		if c1 >= 0 && c2 >= 0 {
			push(c1, c2)
			push(c2, c1)
		}
	}
	for well := 0; well < w.NumWells(); well++ {
		for _, c := range w.WellCells(well) {
			push(c, nc+well)
			push(nc+well, c)
		}
	}

	if A.IA[nnu] != nnz {
		return nil, fmt.Errorf("pattern fill wrote %d entries, counted %d", A.IA[nnu], nnz)
	}

	A.SortRows()
	A.mergeRepeated()
	return A, nil
}

// mergeRepeated collapses repeated columns within a row into one entry, as
// produced by a well perforating the same cell twice or by parallel faces
// between two cells. Requires sorted rows.
func (A *CSRMatrix) mergeRepeated() {
	out, lo := 0, 0
	for i := 0; i < A.M; i++ {
		hi := A.IA[i+1]
		start := out
		for k := lo; k < hi; k++ {
			if out > start && A.JA[out-1] == A.JA[k] {
				A.SA[out-1] += A.SA[k]
				continue
			}
			A.JA[out], A.SA[out] = A.JA[k], A.SA[k]
			out++
		}
		lo = hi
		A.IA[i+1] = out
	}
	A.NNZ = out
	A.JA = A.JA[:out]
	A.SA = A.SA[:out]
}

// SortRows orders the columns of every row ascending, carrying values along
func (A *CSRMatrix) SortRows() {
	for i := 0; i < A.M; i++ {
		lo, hi := A.IA[i], A.IA[i+1]
		sort.Sort(rowSorter{ja: A.JA[lo:hi], sa: A.SA[lo:hi]})
	}
}

type rowSorter struct {
	ja []int
	sa []float64
}

func (r rowSorter) Len() int           { return len(r.ja) }
func (r rowSorter) Less(a, b int) bool { return r.ja[a] < r.ja[b] }
func (r rowSorter) Swap(a, b int) {
	r.ja[a], r.ja[b] = r.ja[b], r.ja[a]
	r.sa[a], r.sa[b] = r.sa[b], r.sa[a]
}

// ElementIndex returns the position of entry (i,j) in JA/SA, or -1 when the
// entry is not part of the pattern. Requires sorted rows.
func (A *CSRMatrix) ElementIndex(i, j int) int {
	lo, hi := A.IA[i], A.IA[i+1]
	k := lo + sort.SearchInts(A.JA[lo:hi], j)
	if k < hi && A.JA[k] == j {
		return k
	}
	return -1
}

// At returns entry (i,j), zero outside the pattern
func (A *CSRMatrix) At(i, j int) float64 {
	if k := A.ElementIndex(i, j); k >= 0 {
		return A.SA[k]
	}
	return 0
}

// Zero clears all values, keeping the pattern
func (A *CSRMatrix) Zero() {
	for k := range A.SA {
		A.SA[k] = 0
	}
}

// MulVec computes y = A*x
func (A *CSRMatrix) MulVec(x, y []float64) {
	for i := 0; i < A.M; i++ {
		var sum float64
		for k := A.IA[i]; k < A.IA[i+1]; k++ {
			sum += A.SA[k] * x[A.JA[k]]
		}
		y[i] = sum
	}
}

// RowSum returns the sum of the values in row i
func (A *CSRMatrix) RowSum(i int) float64 {
	var sum float64
	for k := A.IA[i]; k < A.IA[i+1]; k++ {
		sum += A.SA[k]
	}
	return sum
}

// Diagonal extracts the main diagonal
func (A *CSRMatrix) Diagonal() []float64 {
	d := make([]float64, A.M)
	for i := 0; i < A.M; i++ {
		d[i] = A.At(i, i)
	}
	return d
}

// IsStructurallySymmetric reports whether (j,i) is in the pattern for every
// (i,j) in the pattern
func (A *CSRMatrix) IsStructurallySymmetric() bool {
	for i := 0; i < A.M; i++ {
		for k := A.IA[i]; k < A.IA[i+1]; k++ {
			if A.ElementIndex(A.JA[k], i) < 0 {
				return false
			}
		}
	}
	return true
}

// Sparse wraps the matrix as a james-bowman sparse CSR, which satisfies
// mat.Matrix. The storage is shared, not copied.
func (A *CSRMatrix) Sparse() *sparse.CSR {
	return sparse.NewCSR(A.M, A.M, A.IA, A.JA, A.SA)
}

// Dense expands the matrix into a gonum dense matrix
func (A *CSRMatrix) Dense() *mat.Dense {
	D := mat.NewDense(A.M, A.M, nil)
	for i := 0; i < A.M; i++ {
		for k := A.IA[i]; k < A.IA[i+1]; k++ {
			D.Set(i, A.JA[k], A.SA[k])
		}
	}
	return D
}

// Clone returns a deep copy
func (A *CSRMatrix) Clone() *CSRMatrix {
	B := &CSRMatrix{
		M:   A.M,
		NNZ: A.NNZ,
		IA:  append([]int(nil), A.IA...),
		JA:  append([]int(nil), A.JA...),
		SA:  append([]float64(nil), A.SA...),
	}
	return B
}
