package optimize

// Status reports why the solver stopped.
type Status int

const (
	// StatusRunning means the iteration limit and tolerances have not
	// been reached yet.
	StatusRunning Status = iota
	// StatusGtol means the gradient norm dropped below gtol.
	StatusGtol
	// StatusFtol means the relative cost reduction dropped below ftol.
	StatusFtol
	// StatusXtol means the step norm dropped below xtol relative to x.
	StatusXtol
	// StatusMaxIter means the iteration budget was exhausted.
	StatusMaxIter
	// StatusStalled means the trust region collapsed without an
	// acceptable step.
	StatusStalled
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusGtol:
		return "gradient tolerance satisfied"
	case StatusFtol:
		return "cost tolerance satisfied"
	case StatusXtol:
		return "step tolerance satisfied"
	case StatusMaxIter:
		return "maximum iterations reached"
	case StatusStalled:
		return "trust region collapsed"
	default:
		return "unknown"
	}
}

// Success reports whether the solver stopped on a convergence
// tolerance rather than a budget or failure condition.
func (s Status) Success() bool {
	switch s {
	case StatusGtol, StatusFtol, StatusXtol:
		return true
	}
	return false
}
