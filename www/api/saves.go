package api

import (
	"encoding/json"
	"net/http"
)

func ListSaves(w http.ResponseWriter, r *http.Request) {
	listing, err := eng.ListSaves()
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, listing)
}

func CreateSave(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "save name is required"})
		return
	}

	if err := eng.Save(body.Name); err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"message": "state saved"})
}

// LoadSave atomically replaces all live state with a snapshot. The clock
// comes back stopped.
func LoadSave(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "save name is required"})
		return
	}

	if err := eng.Load(body.Name); err != nil {
		WriteDBError(w, err, "save")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "state loaded"})
}
