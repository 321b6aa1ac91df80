package linprog

// Status is the terminal state reported by a solver.
type Status string

const (
	StatusOptimal        Status = "optimal"
	StatusInfeasible     Status = "infeasible"
	StatusUnbounded      Status = "unbounded"
	StatusNumericalError Status = "numerical_error"
)

// Solution is the raw solver output. X is only meaningful when Status is optimal.
type Solution struct {
	Status    Status
	X         []float64
	Objective float64
	Message   string
}

// Optimal reports whether the solver found an optimum.
func (s *Solution) Optimal() bool {
	return s != nil && s.Status == StatusOptimal
}

// Failed reports an expected, recoverable failure: no feasible point or no finite optimum.
func (s *Solution) Failed() bool {
	return s != nil && (s.Status == StatusInfeasible || s.Status == StatusUnbounded)
}
