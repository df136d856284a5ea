package api

import (
	"net/http"
	"sort"

	"tally/engine/db"
)

type ScoreboardTeam struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
	Ups   []bool `json:"ups"`
}

type Scoreboard struct {
	Teams    []ScoreboardTeam `json:"teams"`
	Services []string         `json:"services"`
}

type ServiceScore struct {
	Score   int    `json:"score"`
	Up      bool   `json:"up"`
	History []bool `json:"history"`
}

type TeamScoreDetail struct {
	Services []string       `json:"services"`
	Scores   []ServiceScore `json:"scores"`
}

// GetScoreboard returns every team's score and latest per-service status.
// Ranking is score descending with ties broken by name.
func GetScoreboard(w http.ResponseWriter, r *http.Request) {
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
	scores, err := db.GetScores()
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	histories := eng.HistorySnapshot()

	board := Scoreboard{Teams: []ScoreboardTeam{}, Services: []string{}}
	for _, service := range services {
		board.Services = append(board.Services, service.Name)
	}

	for _, team := range teams {
		row := ScoreboardTeam{Name: team.Name, Score: scores[team.ID], Ups: []bool{}}
		for _, service := range services {
			up := false
			if window := histories[team.ID][service.Name]; len(window) > 0 {
				up = window[len(window)-1]
			}
			row.Ups = append(row.Ups, up)
		}
		board.Teams = append(board.Teams, row)
	}

	sort.SliceStable(board.Teams, func(i, j int) bool {
		if board.Teams[i].Score != board.Teams[j].Score {
			return board.Teams[i].Score > board.Teams[j].Score
		}
		return board.Teams[i].Name < board.Teams[j].Name
	})

	WriteJSON(w, http.StatusOK, board)
}

// GetTeamScore returns one team's per-service breakdown with the rolling
// uptime window, oldest first
func GetTeamScore(w http.ResponseWriter, r *http.Request) {
	teamName := r.PathValue("team")
	team, err := db.GetTeamByName(teamName)
	if err != nil {
		WriteDBError(w, err, "team")
		return
	}

	services, err := db.GetServices()
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	detail := TeamScoreDetail{Services: []string{}, Scores: []ServiceScore{}}
	histories := eng.HistorySnapshot()

	for _, service := range services {
		score, err := db.GetServiceScore(team.ID, service.Name)
		if err != nil {
			WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}

		window := histories[team.ID][service.Name]
		if window == nil {
			window = []bool{}
		}
		up := false
		if len(window) > 0 {
			up = window[len(window)-1]
		}

		detail.Services = append(detail.Services, service.Name)
		detail.Scores = append(detail.Scores, ServiceScore{Score: score, Up: up, History: window})
	}

	WriteJSON(w, http.StatusOK, detail)
}
