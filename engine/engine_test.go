package engine

import (
	"encoding/json"
	"testing"
	"time"

	"tally/engine/db"
	"tally/tests/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *ScoringEngine {
	t.Helper()
	testutil.OpenTestDB(t)
	se := NewEngine(testutil.TestConfig())

	// keep reset/load signals from blocking without a running Start loop
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-se.ResetChan:
			case <-done:
				return
			}
		}
	}()
	t.Cleanup(func() { close(done) })

	return se
}

func TestResetZeroesScoresAndClock(t *testing.T) {
	se := newTestEngine(t)

	team, err := db.CreateTeam(db.TeamSchema{Name: "alpha"})
	require.NoError(t, err)
	_, err = db.CreateService(db.ServiceSchema{Name: "web", Command: "true", Multiplier: 2})
	require.NoError(t, err)
	require.NoError(t, db.CreateCheckResults([]db.CheckResultSchema{
		{TeamID: team.ID, ServiceName: "web", Status: true},
	}))

	se.Clock.Restore(10 * time.Minute)
	se.Clock.Start()

	require.NoError(t, se.Reset())

	assert.False(t, se.Clock.Active())
	assert.Equal(t, time.Duration(0), se.Clock.Elapsed())

	scores, err := db.GetScores()
	require.NoError(t, err)
	assert.Empty(t, scores)

	teams, err := db.GetTeams()
	require.NoError(t, err)
	assert.Len(t, teams, 1, "reset must not touch teams")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	se := newTestEngine(t)

	team, err := db.CreateTeam(db.TeamSchema{
		Name: "alpha",
		Env:  []db.TeamEnvSchema{{Key: "HOST", Value: "10.0.1.1", Position: 0}},
	})
	require.NoError(t, err)
	_, err = db.CreateService(db.ServiceSchema{Name: "web", Command: "true", Multiplier: 2})
	require.NoError(t, err)
	require.NoError(t, db.CreateCheckResults([]db.CheckResultSchema{
		{TeamID: team.ID, ServiceName: "web", Status: true},
		{TeamID: team.ID, ServiceName: "web", Status: true},
	}))
	inject, err := db.CreateInject(db.InjectSchema{Uuid: uuid.New().String(), Name: "patch", StartMinute: 0, DurationMinutes: 30})
	require.NoError(t, err)
	_, err = db.CreateSubmission(db.SubmissionSchema{
		Uuid: uuid.New().String(), InjectID: inject.ID, TeamID: team.ID,
		Filename: "patch.sh", StoredName: "patch.sh", UploadTime: 5,
	})
	require.NoError(t, err)
	require.NoError(t, se.SetPasswordGroup(team.ID, "linux", "root:toor"))

	se.Clock.Restore(10 * time.Minute)

	require.NoError(t, se.Save("midgame"))

	// wreck the live state
	require.NoError(t, se.Reset())
	require.NoError(t, db.DeleteTeam("alpha"))

	require.NoError(t, se.Load("midgame"))

	restored, err := db.GetTeamByName("alpha")
	require.NoError(t, err)
	require.Len(t, restored.Env, 1)
	assert.Equal(t, "10.0.1.1", restored.Env[0].Value)

	scores, err := db.GetScores()
	require.NoError(t, err)
	assert.Equal(t, 4, scores[restored.ID], "scores must equal their pre-reset value")

	loadedInject, err := db.GetInjectByUuid(inject.Uuid)
	require.NoError(t, err)
	submissions, err := db.GetSubmissionsForTeamInject(loadedInject.ID, restored.ID)
	require.NoError(t, err)
	require.Len(t, submissions, 1)
	assert.Equal(t, 5, submissions[0].UploadTime)

	groups, err := se.GetPasswordGroups(restored.ID)
	require.NoError(t, err)
	assert.Equal(t, "root:toor", groups["linux"])

	assert.Equal(t, 10*time.Minute, se.Clock.Elapsed())
	assert.False(t, se.Clock.Active(), "a loaded clock comes back stopped")
}

func TestLoadUnknownSave(t *testing.T) {
	se := newTestEngine(t)
	assert.Error(t, se.Load("nope"))
}

func TestListSavesPartitionsByProvenance(t *testing.T) {
	se := newTestEngine(t)

	require.NoError(t, se.Save("midgame"))
	require.NoError(t, se.Autosave())

	listing, err := se.ListSaves()
	require.NoError(t, err)
	require.Len(t, listing.Saves, 1)
	assert.Equal(t, "midgame", listing.Saves[0].Name)
	require.Len(t, listing.Autosaves, 1)
	assert.Contains(t, listing.Autosaves[0].Name, "autosave-")
}

func TestSaveOverwritesSameName(t *testing.T) {
	se := newTestEngine(t)

	require.NoError(t, se.Save("midgame"))
	require.NoError(t, se.Save("midgame"))

	listing, err := se.ListSaves()
	require.NoError(t, err)
	assert.Len(t, listing.Saves, 1)
}

func TestApplyDueSideEffects(t *testing.T) {
	se := newTestEngine(t)

	_, err := db.CreateService(db.ServiceSchema{Name: "web", Command: "true", Multiplier: 1})
	require.NoError(t, err)

	effects, err := json.Marshal([]map[string]any{
		{"add_service": map[string]any{"name": "backup", "command": "true", "multiplier": 1}},
		{"edit_service": map[string]any{"name": "web", "command": "false", "multiplier": 5}},
		{"unknown_kind": map[string]any{"whatever": true}},
	})
	require.NoError(t, err)

	inject, err := db.CreateInject(db.InjectSchema{
		Uuid: uuid.New().String(), Name: "sabotage", StartMinute: 5, DurationMinutes: 10,
		SideEffects: effects,
	})
	require.NoError(t, err)

	// before the start minute nothing happens
	require.NoError(t, se.applyDueSideEffects())
	_, err = db.GetServiceByName("backup")
	assert.Error(t, err)

	se.Clock.Restore(5 * time.Minute)
	require.NoError(t, se.applyDueSideEffects())

	backup, err := db.GetServiceByName("backup")
	require.NoError(t, err)
	assert.Equal(t, 1, backup.Multiplier)

	web, err := db.GetServiceByName("web")
	require.NoError(t, err)
	assert.Equal(t, 5, web.Multiplier)
	assert.Equal(t, "false", web.Command)

	// applied exactly once
	refreshed, err := db.GetInjectByUuid(inject.Uuid)
	require.NoError(t, err)
	assert.True(t, refreshed.SideEffectsApplied)

	require.NoError(t, db.DeleteService("backup"))
	require.NoError(t, se.applyDueSideEffects())
	_, err = db.GetServiceByName("backup")
	assert.Error(t, err, "side effects must not re-apply")
}

func TestRecordSubmissionGates(t *testing.T) {
	se := newTestEngine(t)

	team, err := db.CreateTeam(db.TeamSchema{Name: "alpha"})
	require.NoError(t, err)
	inject, err := db.CreateInject(db.InjectSchema{
		Uuid: uuid.New().String(), Name: "patch", StartMinute: 10, DurationMinutes: 5,
		RestrictUploads: true, FileTypes: []string{"pdf"},
	})
	require.NoError(t, err)

	t.Run("rejected while the clock is stopped", func(t *testing.T) {
		_, err := se.RecordSubmission(inject, team.ID, "report.pdf", uuid.New().String())
		assert.Error(t, err)
	})

	se.Clock.Restore(9 * time.Minute)
	se.Clock.Start()

	t.Run("rejected before the start minute", func(t *testing.T) {
		se.Clock.Stop()
		se.Clock.Restore(9 * time.Minute)
		se.Clock.Start()
		_, err := se.RecordSubmission(inject, team.ID, "report.pdf", uuid.New().String())
		assert.Error(t, err)
	})

	t.Run("accepted in the window, late after it", func(t *testing.T) {
		se.Clock.Stop()
		se.Clock.Restore(12 * time.Minute)
		se.Clock.Start()
		onTime, err := se.RecordSubmission(inject, team.ID, "report.pdf", uuid.New().String())
		require.NoError(t, err)
		assert.False(t, onTime.Late)
		assert.Equal(t, "report.pdf", onTime.StoredName)

		se.Clock.Stop()
		se.Clock.Restore(16 * time.Minute)
		se.Clock.Start()
		late, err := se.RecordSubmission(inject, team.ID, "report.pdf", uuid.New().String())
		require.NoError(t, err)
		assert.True(t, late.Late)
		assert.Equal(t, "report (2).pdf", late.StoredName, "stored names must not collide")
	})

	t.Run("wrong extension rejected", func(t *testing.T) {
		_, err := se.RecordSubmission(inject, team.ID, "report.txt", uuid.New().String())
		assert.Error(t, err)
	})
}
