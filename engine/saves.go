package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"tally/engine/db"
)

// autosaveSlots bounds how many autosaves exist before the oldest slot
// gets overwritten
const autosaveSlots = 12

type saveBlob struct {
	SavedAt        time.Time        `json:"saved_at"`
	ElapsedSeconds int64            `json:"elapsed_seconds"`
	State          db.StateSnapshot `json:"state"`
}

// Save captures a consistent snapshot of all competition state under the
// given name. Saving over an existing name overwrites it.
func (se *ScoringEngine) Save(name string) error {
	return se.save(name, false)
}

// Autosave writes into a rotating slot named by the current wall-clock
// interval, so at most autosaveSlots autosaves exist at once
func (se *ScoringEngine) Autosave() error {
	slot := (time.Now().Unix() / 60 / int64(se.Config.MiscSettings.AutosaveInterval)) % autosaveSlots
	return se.save(fmt.Sprintf("autosave-%d", slot), true)
}

func (se *ScoringEngine) save(name string, autosave bool) error {
	se.stateMutex.Lock()
	defer se.stateMutex.Unlock()

	state, err := db.CaptureState()
	if err != nil {
		return fmt.Errorf("failed to capture state: %v", err)
	}

	blob, err := json.Marshal(saveBlob{
		SavedAt:        time.Now(),
		ElapsedSeconds: int64(se.Clock.Elapsed() / time.Second),
		State:          state,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize snapshot: %v", err)
	}

	if err := db.UpsertSave(name, autosave, blob); err != nil {
		return fmt.Errorf("failed to store snapshot: %v", err)
	}

	slog.Info("saved competition state", "name", name, "autosave", autosave)
	return nil
}

// Load replaces all live state with a stored snapshot. The clock comes
// back stopped, credential caches are dropped, and the engine loop is
// restarted so its own caches reload. A failed load leaves the prior
// state intact.
func (se *ScoringEngine) Load(name string) error {
	save, err := db.GetSave(name)
	if err != nil {
		return err
	}

	var blob saveBlob
	if err := json.Unmarshal(save.Blob, &blob); err != nil {
		return fmt.Errorf("snapshot %s is corrupt: %v", name, err)
	}

	se.stateMutex.Lock()
	if err := db.ReplaceState(blob.State); err != nil {
		se.stateMutex.Unlock()
		return fmt.Errorf("failed to restore snapshot %s: %v", name, err)
	}

	se.Clock.Restore(time.Duration(blob.ElapsedSeconds) * time.Second)
	se.InvalidateCredentials()
	se.stateMutex.Unlock()

	se.ResetChan <- struct{}{}
	slog.Info("loaded competition state", "name", name, "saved_at", blob.SavedAt)
	return nil
}

// SaveListing partitions the snapshot index by provenance
type SaveListing struct {
	Saves     []SaveEntry `json:"saves"`
	Autosaves []SaveEntry `json:"autosaves"`
}

type SaveEntry struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

func (se *ScoringEngine) ListSaves() (SaveListing, error) {
	listing := SaveListing{Saves: []SaveEntry{}, Autosaves: []SaveEntry{}}

	saves, err := db.ListSaves()
	if err != nil {
		return listing, err
	}

	for _, save := range saves {
		entry := SaveEntry{Name: save.Name, Timestamp: save.Timestamp}
		if save.Autosave {
			listing.Autosaves = append(listing.Autosaves, entry)
		} else {
			listing.Saves = append(listing.Saves, entry)
		}
	}
	return listing, nil
}
