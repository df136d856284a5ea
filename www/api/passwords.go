package api

import (
	"io"
	"net/http"
)

// GetPasswordGroups lists all of one team's credential groups. Goes
// through the team-scope check so teams never see each other's groups.
func GetPasswordGroups(w http.ResponseWriter, r *http.Request) {
	team, ok := RequireTeamScope(w, r)
	if !ok {
		return
	}

	groups, err := eng.GetPasswordGroups(team.ID)
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, groups)
}

func GetPasswordGroup(w http.ResponseWriter, r *http.Request) {
	team, ok := RequireTeamScope(w, r)
	if !ok {
		return
	}

	groups, err := eng.GetPasswordGroups(team.ID)
	if err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}

	groupName := r.PathValue("group")
	blob, ok := groups[groupName]
	if !ok {
		WriteJSON(w, http.StatusNotFound, map[string]any{"error": "password group not found"})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"group": groupName, "passwords": blob})
}

// WritePasswordGroup overwrites a group's blob wholesale. The body is
// the raw blob, one credential per line.
func WritePasswordGroup(w http.ResponseWriter, r *http.Request) {
	team, ok := RequireTeamScope(w, r)
	if !ok {
		return
	}

	groupName := r.PathValue("group")
	if groupName == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "missing group name"})
		return
	}

	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "failed to read body"})
		return
	}

	if err := eng.SetPasswordGroup(team.ID, groupName, string(blob)); err != nil {
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "passwords saved"})
}

func DeletePasswordGroup(w http.ResponseWriter, r *http.Request) {
	team, ok := RequireTeamScope(w, r)
	if !ok {
		return
	}

	if err := eng.DeletePasswordGroup(team.ID, r.PathValue("group")); err != nil {
		WriteDBError(w, err, "password group")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": "password group deleted"})
}
