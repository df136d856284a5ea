package engine

import (
	"strings"

	"tally/engine/db"
)

// NormalizeBlob tidies a credential blob: trims each line and drops
// blank ones, so "user:pass" rows come back in a stable shape.
func NormalizeBlob(blob string) string {
	lines := strings.Split(strings.ReplaceAll(blob, "\r\n", "\n"), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// GetPasswordGroups reads a team's credential groups through the cache
func (se *ScoringEngine) GetPasswordGroups(teamID uint) (map[string]string, error) {
	se.credentialsMutex.RLock()
	if cached, ok := se.credentials[teamID]; ok {
		out := make(map[string]string, len(cached))
		for group, blob := range cached {
			out[group] = blob
		}
		se.credentialsMutex.RUnlock()
		return out, nil
	}
	se.credentialsMutex.RUnlock()

	groups, err := db.GetPasswordGroups(teamID)
	if err != nil {
		return nil, err
	}

	cached := make(map[string]string, len(groups))
	for _, group := range groups {
		cached[group.GroupName] = group.Blob
	}

	se.credentialsMutex.Lock()
	se.credentials[teamID] = cached
	se.credentialsMutex.Unlock()

	out := make(map[string]string, len(cached))
	for group, blob := range cached {
		out[group] = blob
	}
	return out, nil
}

// SetPasswordGroup overwrites one group's blob wholesale
func (se *ScoringEngine) SetPasswordGroup(teamID uint, groupName string, blob string) error {
	normalized := NormalizeBlob(blob)
	if err := db.UpsertPasswordGroup(teamID, groupName, normalized); err != nil {
		return err
	}

	se.credentialsMutex.Lock()
	if cached, ok := se.credentials[teamID]; ok {
		cached[groupName] = normalized
	}
	se.credentialsMutex.Unlock()
	return nil
}

func (se *ScoringEngine) DeletePasswordGroup(teamID uint, groupName string) error {
	if err := db.DeletePasswordGroup(teamID, groupName); err != nil {
		return err
	}

	se.credentialsMutex.Lock()
	if cached, ok := se.credentials[teamID]; ok {
		delete(cached, groupName)
	}
	se.credentialsMutex.Unlock()
	return nil
}

// InvalidateCredentials drops every cached credential view. Called after
// a load replaces the underlying rows, and after team deletion.
func (se *ScoringEngine) InvalidateCredentials() {
	se.credentialsMutex.Lock()
	se.credentials = make(map[uint]map[string]string)
	se.credentialsMutex.Unlock()
}
