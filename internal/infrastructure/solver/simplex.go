// Package solver adapts gonum's simplex implementation to the linprog model.
package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/alchemorsel/nutriplan/internal/domain/linprog"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
)

// DefaultTolerance is the reduced-cost tolerance passed to the simplex method.
const DefaultTolerance = 1e-10

// feasibilityTolerance bounds the constraint violation accepted when the
// returned point is checked against the original problem.
const feasibilityTolerance = 1e-6

// Simplex solves bounded linear programs with gonum's dense simplex method.
//
// A problem in the form
//
//	min c·x  s.t.  Gx <= h,  Ax = b,  l <= x <= u
//
// is rewritten in standard form over y = x - l >= 0 with one slack per
// inequality row and one slack per finite upper bound.
type Simplex struct {
	Tolerance float64
}

var _ outbound.LPSolver = (*Simplex)(nil)

// NewSimplex returns a solver using DefaultTolerance.
func NewSimplex() *Simplex {
	return &Simplex{Tolerance: DefaultTolerance}
}

// Solve runs the simplex method. The error return is reserved for malformed
// problems; infeasible, unbounded and numerically broken solves are reported
// through Solution.Status.
func (s *Simplex) Solve(problem *linprog.Problem) (sol *linprog.Solution, err error) {
	if problem == nil {
		return nil, fmt.Errorf("%w: nil problem", linprog.ErrShapeMismatch)
	}
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if !problem.Finite() {
		return &linprog.Solution{
			Status:  linprog.StatusNumericalError,
			Message: "problem contains NaN or infinite coefficients",
		}, nil
	}

	defer func() {
		if r := recover(); r != nil {
			sol = &linprog.Solution{
				Status:  linprog.StatusNumericalError,
				Message: fmt.Sprintf("simplex panicked: %v", r),
			}
			err = nil
		}
	}()

	std, status, msg := toStandardForm(problem)
	if status != "" {
		return &linprog.Solution{Status: status, Message: msg}, nil
	}

	x := make([]float64, problem.NumVars())
	for j, b := range problem.Bounds {
		x[j] = b.Lower
	}

	if len(std.cols) > 0 {
		tol := s.Tolerance
		if tol <= 0 {
			tol = DefaultTolerance
		}
		_, optX, solveErr := lp.Simplex(std.c, std.a, std.b, tol, nil)
		if solveErr != nil {
			return classify(solveErr), nil
		}
		for k, j := range std.cols {
			x[j] = problem.Bounds[j].Lower + math.Max(optX[k], 0)
		}
	}

	for j, b := range problem.Bounds {
		x[j] = math.Min(math.Max(x[j], b.Lower), b.Upper)
	}

	if violation := maxViolation(problem, x); violation > feasibilityTolerance {
		if len(std.cols) == 0 {
			return &linprog.Solution{
				Status:  linprog.StatusInfeasible,
				Message: "lower bounds violate constraints that no variable can influence",
			}, nil
		}
		return &linprog.Solution{
			Status:  linprog.StatusNumericalError,
			Message: fmt.Sprintf("solution violates constraints by %g", violation),
		}, nil
	}

	return &linprog.Solution{
		Status:    linprog.StatusOptimal,
		X:         x,
		Objective: dot(problem.Cost, x),
		Message:   "optimization terminated successfully",
	}, nil
}

// standardForm is min c·z s.t. a z = b, z >= 0. cols maps the leading
// structural columns of z back to problem variables.
type standardForm struct {
	c    []float64
	a    *mat.Dense
	b    []float64
	cols []int
}

func toStandardForm(p *linprog.Problem) (*standardForm, linprog.Status, string) {
	n := p.NumVars()

	lower := make([]float64, n)
	for j, b := range p.Bounds {
		lower[j] = b.Lower
	}

	// A variable that appears in no row and has no finite upper bound sits at
	// its lower bound, or makes the problem unbounded if its cost is negative.
	// gonum rejects all-zero columns, so such variables never reach it.
	var cols []int
	for j := 0; j < n; j++ {
		if !math.IsInf(p.Bounds[j].Upper, 1) || columnUsed(p, j) {
			cols = append(cols, j)
			continue
		}
		if p.Cost[j] < 0 {
			return nil, linprog.StatusUnbounded, fmt.Sprintf("variable %d decreases the objective without limit", j)
		}
	}

	var upper []int
	for _, j := range cols {
		if !math.IsInf(p.Bounds[j].Upper, 1) {
			upper = append(upper, j)
		}
	}

	type eqRow struct {
		coeffs []float64
		rhs    float64
	}
	var equalities []eqRow
	for i, row := range p.A {
		rhs := p.B[i] - dot(row, lower)
		if isZero(row) {
			if math.Abs(rhs) > feasibilityTolerance {
				return nil, linprog.StatusInfeasible, fmt.Sprintf("equality row %d has no coefficients but a non-zero right-hand side", i)
			}
			continue
		}
		equalities = append(equalities, eqRow{coeffs: row, rhs: rhs})
	}

	nStruct := len(cols)
	nIneq := len(p.G)
	nUpper := len(upper)
	rows := nIneq + len(equalities) + nUpper
	width := nStruct + nIneq + nUpper

	if nStruct == 0 {
		// Nothing left to optimize; the lower bounds must satisfy every row.
		return &standardForm{}, "", ""
	}
	if rows > width {
		return nil, linprog.StatusNumericalError, "more equality constraints than free variables"
	}

	a := mat.NewDense(rows, width, nil)
	b := make([]float64, rows)
	c := make([]float64, width)
	for k, j := range cols {
		c[k] = p.Cost[j]
	}

	r := 0
	for i, row := range p.G {
		for k, j := range cols {
			a.Set(r, k, row[j])
		}
		a.Set(r, nStruct+i, 1)
		b[r] = p.H[i] - dot(row, lower)
		r++
	}
	for _, eq := range equalities {
		for k, j := range cols {
			a.Set(r, k, eq.coeffs[j])
		}
		b[r] = eq.rhs
		r++
	}
	for u, j := range upper {
		for k, col := range cols {
			if col == j {
				a.Set(r, k, 1)
				break
			}
		}
		a.Set(r, nStruct+nIneq+u, 1)
		b[r] = p.Bounds[j].Upper - p.Bounds[j].Lower
		r++
	}

	return &standardForm{c: c, a: a, b: b, cols: cols}, "", ""
}

func classify(err error) *linprog.Solution {
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return &linprog.Solution{Status: linprog.StatusInfeasible, Message: err.Error()}
	case errors.Is(err, lp.ErrUnbounded):
		return &linprog.Solution{Status: linprog.StatusUnbounded, Message: err.Error()}
	default:
		return &linprog.Solution{Status: linprog.StatusNumericalError, Message: err.Error()}
	}
}

func maxViolation(p *linprog.Problem, x []float64) float64 {
	var worst float64
	for i, row := range p.G {
		if v := dot(row, x) - p.H[i]; v > worst {
			worst = v
		}
	}
	for i, row := range p.A {
		if v := math.Abs(dot(row, x) - p.B[i]); v > worst {
			worst = v
		}
	}
	return worst
}

func columnUsed(p *linprog.Problem, j int) bool {
	for _, row := range p.G {
		if row[j] != 0 {
			return true
		}
	}
	for _, row := range p.A {
		if row[j] != 0 {
			return true
		}
	}
	return false
}

func isZero(values []float64) bool {
	for _, v := range values {
		if v != 0 {
			return false
		}
	}
	return true
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
