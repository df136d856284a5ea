package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"tally/engine"
	"tally/engine/config"
	"tally/engine/db"

	"gorm.io/gorm"
)

var (
	conf *config.ConfigSettings
	eng  *engine.ScoringEngine
)

func SetConfig(c *config.ConfigSettings) {
	conf = c
}

func SetEngine(e *engine.ScoringEngine) {
	eng = e
}

// WriteJSON writes a JSON response with the given status code.
// Errors are logged but not returned since there's nothing actionable
// the caller can do if the response write fails.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

// WriteDBError maps a storage error onto the API taxonomy
func WriteDBError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		WriteJSON(w, http.StatusNotFound, map[string]any{"error": what + " not found"})
	case errors.Is(err, gorm.ErrDuplicatedKey):
		WriteJSON(w, http.StatusConflict, map[string]any{"error": what + " already exists"})
	default:
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

// SafeOpen opens a file within the given base directory safely.
// It prevents directory traversal attacks using os.Root.
func SafeOpen(baseDir, relativePath string) (*os.File, error) {
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open root directory: %w", err)
	}
	defer root.Close()
	return root.Open(relativePath)
}

// SafeCreate creates a file within the given base directory safely.
func SafeCreate(baseDir, relativePath string) (*os.File, error) {
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open root directory: %w", err)
	}
	defer root.Close()
	return root.Create(relativePath)
}

// SafeMkdirAll creates nested directories within baseDir safely,
// preventing directory traversal attacks using os.Root.
func SafeMkdirAll(baseDir, relativePath string, perm os.FileMode) error {
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return err
	}
	defer root.Close()
	parts := strings.Split(filepath.ToSlash(filepath.Clean(relativePath)), "/")
	for i := range parts {
		dir := strings.Join(parts[:i+1], "/")
		if err := root.Mkdir(dir, perm); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

// IsAdmin reports whether the request context carries the admin role
func IsAdmin(r *http.Request) bool {
	roles, ok := r.Context().Value("roles").([]string)
	if !ok {
		return false
	}
	for _, role := range roles {
		if role == "admin" {
			return true
		}
	}
	return false
}

// RequireTeamScope resolves the {team} path segment and enforces that
// the session belongs to that team. Admins bypass the scope check.
func RequireTeamScope(w http.ResponseWriter, r *http.Request) (db.TeamSchema, bool) {
	teamName := r.PathValue("team")
	if teamName == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "missing team name"})
		return db.TeamSchema{}, false
	}

	if !IsAdmin(r) {
		username, _ := r.Context().Value("username").(string)
		if username != teamName {
			WriteJSON(w, http.StatusForbidden, map[string]any{"error": "forbidden"})
			return db.TeamSchema{}, false
		}
	}

	team, err := db.GetTeamByName(teamName)
	if err != nil {
		WriteDBError(w, err, "team")
		return db.TeamSchema{}, false
	}
	return team, true
}

// CheckCompetitionStarted returns false and writes error response if the
// clock is not running. Admins always have access.
func CheckCompetitionStarted(w http.ResponseWriter, r *http.Request) bool {
	if IsAdmin(r) {
		return true
	}
	if !eng.Clock.Active() {
		WriteJSON(w, http.StatusForbidden, map[string]string{"error": "Competition has not started"})
		return false
	}
	return true
}
