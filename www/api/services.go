package api

import (
	"encoding/json"
	"net/http"

	"tally/engine/db"
)

type TestResult struct {
	Team    string `json:"team"`
	Up      bool   `json:"up"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func GetServices(w http.ResponseWriter, r *http.Request) {
	services, err := db.GetServices()
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, services)
}

func CreateService(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name       string `json:"name"`
		Command    string `json:"command"`
		Multiplier int    `json:"multiplier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed payload"})
		return
	}
	if body.Name == "" || body.Command == "" || body.Multiplier < 0 {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "name, command and a non-negative multiplier are required"})
		return
	}

	service, err := db.CreateService(db.ServiceSchema{
		Name:       body.Name,
		Command:    body.Command,
		Multiplier: body.Multiplier,
	})
	if err != nil {
		WriteDBError(w, err, "service")
		return
	}
	WriteJSON(w, http.StatusCreated, service)
}

func UpdateService(w http.ResponseWriter, r *http.Request) {
	service, err := db.GetServiceByName(r.PathValue("name"))
	if err != nil {
		WriteDBError(w, err, "service")
		return
	}

	var body struct {
		Command    *string `json:"command"`
		Multiplier *int    `json:"multiplier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed payload"})
		return
	}
	if body.Command != nil {
		if *body.Command == "" {
			WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "command can't be empty"})
			return
		}
		service.Command = *body.Command
	}
	if body.Multiplier != nil {
		if *body.Multiplier < 0 {
			WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "multiplier can't be negative"})
			return
		}
		service.Multiplier = *body.Multiplier
	}

	service, err = db.UpdateService(service)
	if err != nil {
		WriteDBError(w, err, "service")
		return
	}
	WriteJSON(w, http.StatusOK, service)
}

func DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := db.DeleteService(r.PathValue("name")); err != nil {
		WriteDBError(w, err, "service")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "service deleted"})
}

// TestService runs a service against every team right now and returns
// the ephemeral results without touching the scoring history
func TestService(w http.ResponseWriter, r *http.Request) {
	results, err := eng.TestService(r.PathValue("name"))
	if err != nil {
		WriteDBError(w, err, "service")
		return
	}

	out := make([]TestResult, 0, len(results))
	for _, result := range results {
		out = append(out, TestResult{
			Team:    result.TeamName,
			Up:      result.Status,
			Message: result.Stdout,
			Error:   result.Stderr,
		})
	}
	WriteJSON(w, http.StatusOK, out)
}
