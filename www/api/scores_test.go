package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"tally/engine"
	"tally/engine/db"
	"tally/tests/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedScoreboard(t *testing.T) {
	t.Helper()
	testutil.OpenTestDB(t)
	conf := testutil.TestConfig()
	SetConfig(conf)
	SetEngine(engine.NewEngine(conf))

	alpha, err := db.CreateTeam(db.TeamSchema{Name: "alpha"})
	require.NoError(t, err)
	bravo, err := db.CreateTeam(db.TeamSchema{Name: "bravo"})
	require.NoError(t, err)
	_, err = db.CreateService(db.ServiceSchema{Name: "web", Command: "true", Multiplier: 2})
	require.NoError(t, err)
	_, err = db.CreateService(db.ServiceSchema{Name: "dns", Command: "true", Multiplier: 3})
	require.NoError(t, err)

	require.NoError(t, db.CreateCheckResults([]db.CheckResultSchema{
		{TeamID: alpha.ID, ServiceName: "web", Status: true},
		{TeamID: bravo.ID, ServiceName: "web", Status: true},
		{TeamID: bravo.ID, ServiceName: "dns", Status: true},
	}))
}

func TestGetScoreboard(t *testing.T) {
	seedScoreboard(t)

	rr := httptest.NewRecorder()
	GetScoreboard(rr, httptest.NewRequest("GET", "/api/scores", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var board Scoreboard
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &board))

	assert.Equal(t, []string{"dns", "web"}, board.Services)

	// bravo (5) outranks alpha (2)
	require.Len(t, board.Teams, 2)
	assert.Equal(t, "bravo", board.Teams[0].Name)
	assert.Equal(t, 5, board.Teams[0].Score)
	assert.Equal(t, "alpha", board.Teams[1].Name)
	assert.Equal(t, 2, board.Teams[1].Score)
}

func TestGetScoreboardTiesBreakByName(t *testing.T) {
	testutil.OpenTestDB(t)
	conf := testutil.TestConfig()
	SetConfig(conf)
	SetEngine(engine.NewEngine(conf))

	_, err := db.CreateTeam(db.TeamSchema{Name: "zulu"})
	require.NoError(t, err)
	_, err = db.CreateTeam(db.TeamSchema{Name: "alpha"})
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	GetScoreboard(rr, httptest.NewRequest("GET", "/api/scores", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var board Scoreboard
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &board))
	require.Len(t, board.Teams, 2)
	assert.Equal(t, "alpha", board.Teams[0].Name)
	assert.Equal(t, "zulu", board.Teams[1].Name)
}

func TestGetTeamScore(t *testing.T) {
	seedScoreboard(t)

	r := httptest.NewRequest("GET", "/api/scores/bravo", nil)
	r.SetPathValue("team", "bravo")
	rr := httptest.NewRecorder()
	GetTeamScore(rr, r)
	require.Equal(t, http.StatusOK, rr.Code)

	var detail TeamScoreDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detail))
	require.Equal(t, []string{"dns", "web"}, detail.Services)
	assert.Equal(t, 3, detail.Scores[0].Score)
	assert.Equal(t, 2, detail.Scores[1].Score)

	t.Run("unknown team is a 404", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/scores/ghost", nil)
		r.SetPathValue("team", "ghost")
		rr := httptest.NewRecorder()
		GetTeamScore(rr, r)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
