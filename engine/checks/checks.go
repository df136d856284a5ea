package checks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
)

// Check is one (team, service) health check: a shell command template
// rendered against the team's env pairs.
type Check struct {
	TeamID      uint
	TeamName    string
	ServiceName string
	Command     string
	Env         []EnvPair
}

type EnvPair struct {
	Key   string
	Value string
}

type Result struct {
	TeamID      uint   `json:"teamid,omitempty"`
	TeamName    string `json:"team,omitempty"`
	ServiceName string `json:"name,omitempty"`
	Status      bool   `json:"status"`
	Stdout      string `json:"stdout,omitempty"`
	Stderr      string `json:"stderr,omitempty"`
}

// RenderCommand substitutes {KEY} placeholders in the command template.
// Values are shell escaped, who knows what format they are.
func RenderCommand(command string, env []EnvPair) string {
	formedCommand := command
	for _, pair := range env {
		formedCommand = strings.Replace(formedCommand, "{"+pair.Key+"}", shellescape.Quote(pair.Value), -1)
	}
	return formedCommand
}

// Run executes the check through the shell with a hard timeout. The child
// gets only the team's env pairs, not the engine's environment. Up means
// the command exited zero.
func (c Check) Run(timeout time.Duration) Result {
	checkResult := Result{
		TeamID:      c.TeamID,
		TeamName:    c.TeamName,
		ServiceName: c.ServiceName,
		Status:      false,
	}

	formedCommand := RenderCommand(c.Command, c.Env)
	slog.Debug("running service check", "team", c.TeamName, "service", c.ServiceName, "command", formedCommand)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", formedCommand) // #nosec G204 -- service checks intentionally run operator-defined commands

	// empty env, then only the team's pairs
	cmd.Env = []string{}
	for _, pair := range c.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", pair.Key, pair.Value))
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	checkResult.Stdout = stdout.String()
	checkResult.Stderr = stderr.String()

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			checkResult.Stderr = strings.TrimRight(checkResult.Stderr+"\ntimeout after "+timeout.String(), "\n")
		} else if checkResult.Stderr == "" {
			checkResult.Stderr = err.Error()
		}
		return checkResult
	}

	checkResult.Status = true
	return checkResult
}
