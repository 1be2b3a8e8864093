package strategy

import "fmt"

// InsufficientDataError means a strategy lacked enough history to produce a
// trustworthy estimate. It is recoverable: the ensemble excludes the
// strategy, and a standalone run reports the container as skipped.
type InsufficientDataError struct {
	Strategy string
	Reason   string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("strategy %s: insufficient data: %s", e.Strategy, e.Reason)
}

func insufficient(strategy, format string, args ...interface{}) error {
	return &InsufficientDataError{Strategy: strategy, Reason: fmt.Sprintf(format, args...)}
}
