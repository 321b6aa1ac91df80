// Package linprog describes a bounded linear program and its solution in
// solver-neutral terms:
//
//	minimize   Cost · x
//	subject to G x <= H
//	           A x  = B
//	           Bounds[i].Lower <= x[i] <= Bounds[i].Upper
package linprog

import (
	"errors"
	"fmt"
	"math"
)

// ErrShapeMismatch is returned by Validate when dimensions disagree.
var ErrShapeMismatch = errors.New("linear program dimensions disagree")

// Bound is a closed interval for one decision variable. Upper may be +Inf.
type Bound struct {
	Lower float64
	Upper float64
}

// Problem is one linear program.
type Problem struct {
	Cost []float64

	// Inequality rows G x <= H. Labels name each row for diagnostics.
	G      [][]float64
	H      []float64
	Labels []string

	// Equality rows A x = B.
	A [][]float64
	B []float64

	Bounds []Bound
}

// NumVars returns the number of decision variables.
func (p *Problem) NumVars() int {
	return len(p.Cost)
}

// AddInequality appends the row coeffs · x <= rhs.
func (p *Problem) AddInequality(label string, coeffs []float64, rhs float64) {
	row := make([]float64, len(coeffs))
	copy(row, coeffs)
	p.G = append(p.G, row)
	p.H = append(p.H, rhs)
	p.Labels = append(p.Labels, label)
}

// AddEquality appends the row coeffs · x = rhs.
func (p *Problem) AddEquality(coeffs []float64, rhs float64) {
	row := make([]float64, len(coeffs))
	copy(row, coeffs)
	p.A = append(p.A, row)
	p.B = append(p.B, rhs)
}

// Validate checks that every row and the bounds agree with the cost vector length.
func (p *Problem) Validate() error {
	n := len(p.Cost)
	if n == 0 {
		return fmt.Errorf("%w: no decision variables", ErrShapeMismatch)
	}
	if len(p.Bounds) != n {
		return fmt.Errorf("%w: %d bounds for %d variables", ErrShapeMismatch, len(p.Bounds), n)
	}
	if len(p.G) != len(p.H) {
		return fmt.Errorf("%w: %d inequality rows but %d right-hand sides", ErrShapeMismatch, len(p.G), len(p.H))
	}
	if len(p.Labels) != 0 && len(p.Labels) != len(p.G) {
		return fmt.Errorf("%w: %d labels for %d inequality rows", ErrShapeMismatch, len(p.Labels), len(p.G))
	}
	for i, row := range p.G {
		if len(row) != n {
			return fmt.Errorf("%w: inequality row %d has %d columns, want %d", ErrShapeMismatch, i, len(row), n)
		}
	}
	if len(p.A) != len(p.B) {
		return fmt.Errorf("%w: %d equality rows but %d right-hand sides", ErrShapeMismatch, len(p.A), len(p.B))
	}
	for i, row := range p.A {
		if len(row) != n {
			return fmt.Errorf("%w: equality row %d has %d columns, want %d", ErrShapeMismatch, i, len(row), n)
		}
	}
	for i, b := range p.Bounds {
		if b.Lower > b.Upper {
			return fmt.Errorf("%w: variable %d has lower bound %g above upper bound %g", ErrShapeMismatch, i, b.Lower, b.Upper)
		}
	}
	return nil
}

// Finite reports whether every coefficient, right-hand side and lower bound is a
// finite number. Upper bounds may be +Inf.
func (p *Problem) Finite() bool {
	if !allFinite(p.Cost) || !allFinite(p.H) || !allFinite(p.B) {
		return false
	}
	for _, row := range p.G {
		if !allFinite(row) {
			return false
		}
	}
	for _, row := range p.A {
		if !allFinite(row) {
			return false
		}
	}
	for _, b := range p.Bounds {
		if math.IsNaN(b.Lower) || math.IsInf(b.Lower, 0) || math.IsNaN(b.Upper) || math.IsInf(b.Upper, -1) {
			return false
		}
	}
	return true
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
