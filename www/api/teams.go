package api

import (
	"encoding/json"
	"net/http"

	"tally/engine/db"
)

func GetTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := db.GetTeams()
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, teams)
}

func CreateTeam(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		Env  []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"env"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed payload"})
		return
	}
	if body.Name == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "team name is required"})
		return
	}

	team := db.TeamSchema{Name: body.Name}
	seen := make(map[string]bool)
	for i, pair := range body.Env {
		if pair.Key == "" || seen[pair.Key] {
			WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "env keys must be unique and non-empty"})
			return
		}
		seen[pair.Key] = true
		team.Env = append(team.Env, db.TeamEnvSchema{Key: pair.Key, Value: pair.Value, Position: i})
	}

	team, err := db.CreateTeam(team)
	if err != nil {
		WriteDBError(w, err, "team")
		return
	}
	WriteJSON(w, http.StatusCreated, team)
}

func RenameTeam(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "new team name is required"})
		return
	}

	if err := db.RenameTeam(r.PathValue("team"), body.Name); err != nil {
		WriteDBError(w, err, "team")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "team renamed"})
}

// DeleteTeam cascades to env pairs, credential groups, check history and
// submissions, and drops the team's cached credential view
func DeleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := db.DeleteTeam(r.PathValue("team")); err != nil {
		WriteDBError(w, err, "team")
		return
	}
	eng.InvalidateCredentials()
	WriteJSON(w, http.StatusOK, map[string]any{"message": "team deleted"})
}

func SetTeamEnv(w http.ResponseWriter, r *http.Request) {
	team, err := db.GetTeamByName(r.PathValue("team"))
	if err != nil {
		WriteDBError(w, err, "team")
		return
	}

	var body struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Key == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "env key is required"})
		return
	}

	if err := db.SetTeamEnv(team.ID, body.Key, body.Value); err != nil {
		WriteDBError(w, err, "env pair")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "env pair saved"})
}

func DeleteTeamEnv(w http.ResponseWriter, r *http.Request) {
	team, err := db.GetTeamByName(r.PathValue("team"))
	if err != nil {
		WriteDBError(w, err, "team")
		return
	}

	if err := db.DeleteTeamEnv(team.ID, r.PathValue("name")); err != nil {
		WriteDBError(w, err, "env pair")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "env pair deleted"})
}
