package checks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerDispatchCollect(t *testing.T) {
	runner := NewRunner(4, 2*time.Second)

	jobs := make([]Check, 0, 10)
	for i := 0; i < 10; i++ {
		jobs = append(jobs, Check{TeamID: uint(i), Command: "true"})
	}

	resultsChan := make(chan Result)
	runner.Dispatch(jobs, resultsChan)
	results := Collect(resultsChan, len(jobs))

	require.Len(t, results, 10)
	for _, result := range results {
		assert.True(t, result.Status)
	}
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	// 6 checks of ~300ms through 2 workers need at least 3 batches
	runner := NewRunner(2, 5*time.Second)

	jobs := make([]Check, 0, 6)
	for i := 0; i < 6; i++ {
		jobs = append(jobs, Check{Command: "sleep 0.3"})
	}

	start := time.Now()
	resultsChan := make(chan Result)
	runner.Dispatch(jobs, resultsChan)
	results := Collect(resultsChan, len(jobs))
	elapsed := time.Since(start)

	require.Len(t, results, 6)
	assert.GreaterOrEqual(t, elapsed, 800*time.Millisecond, "pool must not run more than Workers checks at once")
}

func TestRunnerMinimumWorkers(t *testing.T) {
	runner := NewRunner(0, time.Second)
	assert.Equal(t, 1, runner.Workers)
}
