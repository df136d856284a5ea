package engine

import (
	"fmt"
	"log"
	"log/slog"
	"sync"
	"time"

	"tally/engine/checks"
	"tally/engine/config"
	"tally/engine/db"
)

type ScoringEngine struct {
	Config *config.ConfigSettings
	Clock  *Clock
	Runner *checks.Runner

	// bounded per-(team, service) uptime window for the scoreboard
	historyMutex sync.RWMutex
	history      map[uint]map[string][]bool

	credentialsMutex sync.RWMutex
	credentials      map[uint]map[string]string

	// stateMutex freezes everything for save/load. Rounds and handlers
	// take it shared.
	stateMutex sync.RWMutex

	// signals
	ResetChan chan struct{}
}

func NewEngine(conf *config.ConfigSettings) *ScoringEngine {
	se := &ScoringEngine{
		Config:      conf,
		Clock:       &Clock{},
		Runner:      checks.NewRunner(conf.MiscSettings.Workers, time.Duration(conf.MiscSettings.Timeout)*time.Second),
		history:     make(map[uint]map[string][]bool),
		credentials: make(map[uint]map[string]string),
		ResetChan:   make(chan struct{}),
	}
	if conf.MiscSettings.StartActive {
		se.Clock.Start()
	}
	return se
}

// Start runs the round and autosave drivers until a reset or load asks
// for a restart. The caller loops around it.
func (se *ScoringEngine) Start() {
	if err := se.loadHistories(); err != nil {
		log.Fatalf("failed to load check histories: %v", err)
	}

	done := make(chan struct{})

	// round driver
	go func() {
		ticker := time.NewTicker(time.Duration(se.Config.MiscSettings.Delay) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if !se.Clock.Active() {
					continue
				}
				se.runRound()
			}
		}
	}()

	// autosave driver
	go func() {
		ticker := time.NewTicker(time.Duration(se.Config.MiscSettings.AutosaveInterval) * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if !se.Clock.Active() {
					continue
				}
				if err := se.Autosave(); err != nil {
					slog.Error("autosave failed", "error", err)
				}
			}
		}
	}()

	<-se.ResetChan
	close(done)
	slog.Info("engine loop ending (probably due to reset or load)")
}

// runRound fires every enabled service against every team through the
// worker pool and appends the results to the scoring history
func (se *ScoringEngine) runRound() {
	se.stateMutex.RLock()
	defer se.stateMutex.RUnlock()

	if err := se.applyDueSideEffects(); err != nil {
		slog.Error("failed to apply inject side effects", "error", err)
	}

	jobs, err := se.buildChecks("")
	if err != nil {
		slog.Error("failed to build service checks", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	slog.Debug("Starting service checks...", "count", len(jobs))
	resultsChan := make(chan checks.Result)
	se.Runner.Dispatch(jobs, resultsChan)
	results := checks.Collect(resultsChan, len(jobs))

	rows := make([]db.CheckResultSchema, 0, len(results))
	for _, result := range results {
		slog.Debug("service check finished", "team", result.TeamName, "service_name", result.ServiceName, "result", result.Status)
		rows = append(rows, db.CheckResultSchema{
			TeamID:      result.TeamID,
			ServiceName: result.ServiceName,
			Status:      result.Status,
			Stdout:      result.Stdout,
			Stderr:      result.Stderr,
		})
	}

	if err := db.CreateCheckResults(rows); err != nil {
		slog.Error("failed to record check results", "error", err)
		return
	}

	se.historyMutex.Lock()
	for _, row := range rows {
		if _, ok := se.history[row.TeamID]; !ok {
			se.history[row.TeamID] = make(map[string][]bool)
		}
		window := append(se.history[row.TeamID][row.ServiceName], row.Status)
		if max := se.Config.MiscSettings.HistoryWindow; len(window) > max {
			window = window[len(window)-max:]
		}
		se.history[row.TeamID][row.ServiceName] = window
	}
	se.historyMutex.Unlock()

	slog.Debug("finished all service checks")
}

// buildChecks renders one check per (team, service) pair. A service name
// narrows to that service only, and skips the multiplier gate so ad-hoc
// tests work on disabled services.
func (se *ScoringEngine) buildChecks(serviceName string) ([]checks.Check, error) {
	teams, err := db.GetTeams()
	if err != nil {
		return nil, fmt.Errorf("failed to get teams: %v", err)
	}
	services, err := db.GetServices()
	if err != nil {
		return nil, fmt.Errorf("failed to get services: %v", err)
	}

	var jobs []checks.Check
	for _, service := range services {
		if serviceName != "" && service.Name != serviceName {
			continue
		}
		if serviceName == "" && service.Multiplier == 0 {
			continue
		}
		for _, team := range teams {
			env := make([]checks.EnvPair, 0, len(team.Env))
			for _, pair := range team.Env {
				env = append(env, checks.EnvPair{Key: pair.Key, Value: pair.Value})
			}
			jobs = append(jobs, checks.Check{
				TeamID:      team.ID,
				TeamName:    team.Name,
				ServiceName: service.Name,
				Command:     service.Command,
				Env:         env,
			})
		}
	}
	return jobs, nil
}

// TestService runs a service against every team right now, through the
// same bounded pool as scheduled rounds. Results are returned to the
// caller and never enter the scoring history.
func (se *ScoringEngine) TestService(serviceName string) ([]checks.Result, error) {
	se.stateMutex.RLock()
	defer se.stateMutex.RUnlock()

	if _, err := db.GetServiceByName(serviceName); err != nil {
		return nil, err
	}

	jobs, err := se.buildChecks(serviceName)
	if err != nil {
		return nil, err
	}

	resultsChan := make(chan checks.Result)
	se.Runner.Dispatch(jobs, resultsChan)
	return checks.Collect(resultsChan, len(jobs)), nil
}

// HistorySnapshot deep-copies the uptime windows for the API
func (se *ScoringEngine) HistorySnapshot() map[uint]map[string][]bool {
	se.historyMutex.RLock()
	defer se.historyMutex.RUnlock()

	snapshot := make(map[uint]map[string][]bool, len(se.history))
	for teamID, services := range se.history {
		snapshot[teamID] = make(map[string][]bool, len(services))
		for name, window := range services {
			snapshot[teamID][name] = append([]bool(nil), window...)
		}
	}
	return snapshot
}

func (se *ScoringEngine) loadHistories() error {
	teams, err := db.GetTeams()
	if err != nil {
		return err
	}
	services, err := db.GetServices()
	if err != nil {
		return err
	}

	history := make(map[uint]map[string][]bool)
	for _, team := range teams {
		history[team.ID] = make(map[string][]bool)
		for _, service := range services {
			results, err := db.GetHistory(team.ID, service.Name, se.Config.MiscSettings.HistoryWindow)
			if err != nil {
				return err
			}
			window := make([]bool, 0, len(results))
			for _, result := range results {
				window = append(window, result.Status)
			}
			history[team.ID][service.Name] = window
		}
	}

	se.historyMutex.Lock()
	se.history = history
	se.historyMutex.Unlock()
	return nil
}

// Reset zeroes the clock and wipes the check history. Teams, services
// and injects stay put, and scores recompute to zero.
func (se *ScoringEngine) Reset() error {
	slog.Info("resetting scores")

	se.stateMutex.Lock()
	if err := db.ResetScores(); err != nil {
		se.stateMutex.Unlock()
		slog.Error("failed to reset scores", "error", err)
		return fmt.Errorf("failed to reset scores: %v", err)
	}

	se.historyMutex.Lock()
	se.history = make(map[uint]map[string][]bool)
	se.historyMutex.Unlock()

	se.Clock.Stop()
	se.Clock.Reset()
	se.stateMutex.Unlock()

	se.ResetChan <- struct{}{}
	slog.Info("scores reset successfully")
	return nil
}
