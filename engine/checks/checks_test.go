package checks

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCommand(t *testing.T) {
	t.Run("substitutes env placeholders", func(t *testing.T) {
		env := []EnvPair{{Key: "HOST", Value: "10.0.0.5"}, {Key: "PORT", Value: "8080"}}
		rendered := RenderCommand("curl -s {HOST}:{PORT}", env)
		assert.Equal(t, "curl -s 10.0.0.5:8080", rendered)
	})

	t.Run("shell escapes hostile values", func(t *testing.T) {
		env := []EnvPair{{Key: "HOST", Value: "x; rm -rf /"}}
		rendered := RenderCommand("ping {HOST}", env)
		assert.Equal(t, "ping 'x; rm -rf /'", rendered)
	})

	t.Run("unknown placeholders pass through", func(t *testing.T) {
		rendered := RenderCommand("echo {MISSING}", nil)
		assert.Equal(t, "echo {MISSING}", rendered)
	})
}

func TestCheckRun(t *testing.T) {
	t.Run("zero exit is up with stdout captured", func(t *testing.T) {
		check := Check{TeamID: 1, TeamName: "alpha", ServiceName: "web", Command: "echo ok"}
		result := check.Run(2 * time.Second)
		assert.True(t, result.Status)
		assert.Equal(t, "ok\n", result.Stdout)
		assert.Equal(t, "alpha", result.TeamName)
		assert.Equal(t, "web", result.ServiceName)
	})

	t.Run("non-zero exit is down with stderr captured", func(t *testing.T) {
		check := Check{Command: "echo broken >&2; exit 3"}
		result := check.Run(2 * time.Second)
		assert.False(t, result.Status)
		assert.Contains(t, result.Stderr, "broken")
	})

	t.Run("exec failure is down, not a crash", func(t *testing.T) {
		check := Check{Command: "/definitely/not/a/real/binary"}
		result := check.Run(2 * time.Second)
		assert.False(t, result.Status)
		assert.NotEmpty(t, result.Stderr)
	})

	t.Run("timeout kills the command and records down", func(t *testing.T) {
		check := Check{Command: "sleep 10"}
		start := time.Now()
		result := check.Run(500 * time.Millisecond)
		assert.False(t, result.Status)
		assert.Contains(t, result.Stderr, "timeout")
		assert.Less(t, time.Since(start), 5*time.Second)
	})

	t.Run("child only sees the team's env pairs", func(t *testing.T) {
		t.Setenv("TALLY_LEAK_CHECK", "leaked")
		check := Check{
			Command: "echo \"$TALLY_LEAK_CHECK|$FLAG\"",
			Env:     []EnvPair{{Key: "FLAG", Value: "team-one"}},
		}
		result := check.Run(2 * time.Second)
		require.True(t, result.Status)
		assert.Equal(t, "|team-one", strings.TrimSpace(result.Stdout))
	})
}
