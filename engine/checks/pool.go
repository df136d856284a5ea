package checks

import (
	"time"
)

// Runner fans checks out across a bounded pool of workers. Scheduled
// rounds and ad-hoc admin tests share the same pool so a burst of manual
// tests can't exhaust the host.
type Runner struct {
	Workers int
	Timeout time.Duration

	slots chan struct{}
}

func NewRunner(workers int, timeout time.Duration) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		Workers: workers,
		Timeout: timeout,
		slots:   make(chan struct{}, workers),
	}
}

// Dispatch starts every check, at most Workers at a time, and streams
// results to resultsChan. The caller collects exactly len(checks) results.
func (r *Runner) Dispatch(checks []Check, resultsChan chan Result) {
	for _, check := range checks {
		go func(c Check) {
			r.slots <- struct{}{}
			defer func() { <-r.slots }()
			resultsChan <- c.Run(r.Timeout)
		}(check)
	}
}

// Collect gathers n results from resultsChan
func Collect(resultsChan chan Result, n int) []Result {
	results := make([]Result, 0, n)
	for len(results) < n {
		results = append(results, <-resultsChan)
	}
	return results
}
