package api

import (
	"net/http"

	"tally/engine/db"
)

type AdminTeam struct {
	Name string            `json:"name"`
	Env  map[string]string `json:"env"`
}

type AdminInfo struct {
	Teams    []AdminTeam `json:"teams"`
	Services []string    `json:"services"`
	Active   bool        `json:"active"`
}

// GetConfig returns the full admin snapshot: teams with their env pairs,
// service names and the clock's active flag
func GetConfig(w http.ResponseWriter, r *http.Request) {
	teams, err := db.GetTeams()
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	services, err := db.GetServices()
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	info := AdminInfo{Teams: []AdminTeam{}, Services: []string{}, Active: eng.Clock.Active()}
	for _, team := range teams {
		at := AdminTeam{Name: team.Name, Env: make(map[string]string, len(team.Env))}
		for _, pair := range team.Env {
			at.Env[pair.Key] = pair.Value
		}
		info.Teams = append(info.Teams, at)
	}
	for _, service := range services {
		info.Services = append(info.Services, service.Name)
	}

	WriteJSON(w, http.StatusOK, info)
}
