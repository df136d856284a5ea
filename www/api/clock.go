package api

import (
	"net/http"
)

type TimeData struct {
	Minutes int  `json:"minutes"`
	Seconds int  `json:"seconds"`
	Active  bool `json:"active"`
}

// GetTime returns one consistent clock snapshot
func GetTime(w http.ResponseWriter, r *http.Request) {
	minutes, seconds, active := eng.Clock.Snapshot()
	WriteJSON(w, http.StatusOK, TimeData{Minutes: minutes, Seconds: seconds, Active: active})
}

func StartCompetition(w http.ResponseWriter, r *http.Request) {
	eng.Clock.Start()
	WriteJSON(w, http.StatusOK, map[string]any{"message": "competition started"})
}

func StopCompetition(w http.ResponseWriter, r *http.Request) {
	eng.Clock.Stop()
	WriteJSON(w, http.StatusOK, map[string]any{"message": "competition stopped"})
}

// ResetScores zeroes the clock and wipes the scoring history
func ResetScores(w http.ResponseWriter, r *http.Request) {
	if err := eng.Reset(); err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "scores reset"})
}
