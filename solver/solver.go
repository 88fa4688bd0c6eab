package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/arturcastiel/opm-simulators/linsys"
)

var (
	ErrSingular     = errors.New("matrix is singular to working precision")
	ErrNotConverged = errors.New("iterative solver did not converge")
)

// Solver solves A*x = b in place of x
type Solver interface {
	Solve(A *linsys.CSRMatrix, b, x []float64) error
}

// Kind names accepted by New
const (
	KindLU = "lu"
	KindCG = "cg"
)

// New returns the solver named by kind
func New(kind string, tol float64, maxIter int) (Solver, error) {
	switch kind {
	case KindLU, "":
		return DenseLU{}, nil
	case KindCG:
		if tol <= 0 || maxIter <= 0 {
			return nil, fmt.Errorf("cg needs positive tolerance and iteration limit, got %g and %d", tol, maxIter)
		}
		return &CG{Tolerance: tol, MaxIterations: maxIter}, nil
	default:
		return nil, fmt.Errorf("unknown solver kind %q", kind)
	}
}

// DenseLU factorises a dense copy of the system. Only practical for small
// grids but exact up to rounding.
type DenseLU struct{}

const condLimit = 1e15

func (DenseLU) Solve(A *linsys.CSRMatrix, b, x []float64) error {
	if len(b) != A.M || len(x) != A.M {
		return fmt.Errorf("system of size %d, got rhs %d and solution %d", A.M, len(b), len(x))
	}

	var lu mat.LU
	lu.Factorize(mat.DenseCopyOf(A.Sparse()))
	if c := lu.Cond(); math.IsInf(c, 1) || c > condLimit {
		return fmt.Errorf("condition number %g: %w", c, ErrSingular)
	}

	// x backs the result vector
	xv := mat.NewVecDense(A.M, x)
	if err := lu.SolveVecTo(xv, false, mat.NewVecDense(A.M, b)); err != nil {
		return fmt.Errorf("lu solve: %w", err)
	}
	return nil
}

// CG is a Jacobi preconditioned conjugate gradient solver for the symmetric
// positive definite systems produced by TPFA. x holds the initial guess.
type CG struct {
	Tolerance     float64 // Relative residual
	MaxIterations int

	// Iterations used by the last call
	Iterations int
}

func (s *CG) Solve(A *linsys.CSRMatrix, b, x []float64) error {
	n := A.M
	if len(b) != n || len(x) != n {
		return fmt.Errorf("system of size %d, got rhs %d and solution %d", n, len(b), len(x))
	}

	inv := A.Diagonal()
	for i, d := range inv {
		if d == 0 {
			return fmt.Errorf("zero diagonal in row %d: %w", i, ErrSingular)
		}
		inv[i] = 1 / d
	}

	r := make([]float64, n)
	z := make([]float64, n)
	p := make([]float64, n)
	q := make([]float64, n)

	// r = b - A*x
	A.MulVec(x, q)
	floats.SubTo(r, b, q)

	bnorm := floats.Norm(b, 2)
	if bnorm == 0 {
		bnorm = 1
	}

	floats.MulTo(z, inv, r)
	copy(p, z)
	rz := floats.Dot(r, z)

	s.Iterations = 0
	for s.Iterations < s.MaxIterations {
		if floats.Norm(r, 2)/bnorm <= s.Tolerance {
			return nil
		}
		s.Iterations++

		A.MulVec(p, q)
		pq := floats.Dot(p, q)
		if pq <= 0 {
			return fmt.Errorf("non-positive curvature %g at iteration %d: %w", pq, s.Iterations, ErrSingular)
		}
		alpha := rz / pq
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, q)

		floats.MulTo(z, inv, r)
		rzNew := floats.Dot(r, z)
		beta := rzNew / rz
		rz = rzNew

		// p = z + beta*p
		floats.AddScaledTo(p, z, beta, p)
	}

	if floats.Norm(r, 2)/bnorm <= s.Tolerance {
		return nil
	}
	return fmt.Errorf("%d iterations, residual %g: %w", s.Iterations, floats.Norm(r, 2)/bnorm, ErrNotConverged)
}
