package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tally/engine/config"
	"tally/engine/db"
	"tally/tests/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSessionCookieCreation tests secure cookie creation
func TestSessionCookieCreation(t *testing.T) {
	// Ensure CookieEncoder is initialized
	require.NotNil(t, CookieEncoder, "CookieEncoder should be initialized")

	t.Run("encode and decode session", func(t *testing.T) {
		session := map[string]any{
			"username": "test_user",
			"roles":    []string{"team"},
		}

		encoded, err := CookieEncoder.Encode(COOKIENAME, session)
		require.NoError(t, err)
		assert.NotEmpty(t, encoded)

		var decoded map[string]any
		err = CookieEncoder.Decode(COOKIENAME, encoded, &decoded)
		require.NoError(t, err)

		assert.Equal(t, session["username"], decoded["username"])
	})

	t.Run("tampered cookie fails decode", func(t *testing.T) {
		session := map[string]any{"username": "admin"}
		encoded, _ := CookieEncoder.Encode(COOKIENAME, session)

		tampered := encoded + "tampered"

		var decoded map[string]any
		err := CookieEncoder.Decode(COOKIENAME, tampered, &decoded)
		assert.Error(t, err, "tampered cookie should fail to decode")
	})

	t.Run("different cookie name fails", func(t *testing.T) {
		session := map[string]any{"username": "user"}
		encoded, _ := CookieEncoder.Encode(COOKIENAME, session)

		var decoded map[string]any
		err := CookieEncoder.Decode("wrong_cookie_name", encoded, &decoded)
		assert.Error(t, err, "wrong cookie name should fail")
	})
}

// TestAuthenticateRoundTrip runs a real cookie through the request path
func TestAuthenticateRoundTrip(t *testing.T) {
	session := map[string]any{
		"username": "alpha",
		"roles":    []string{"team"},
	}
	encoded, err := CookieEncoder.Encode(COOKIENAME, session)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/scores", nil)
	r.AddCookie(&http.Cookie{Name: COOKIENAME, Value: encoded})

	username, roles := Authenticate(httptest.NewRecorder(), r)
	assert.Equal(t, "alpha", username)
	assert.Equal(t, []string{"team"}, roles)

	t.Run("missing cookie means no session", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/scores", nil)
		username, roles := Authenticate(httptest.NewRecorder(), r)
		assert.Empty(t, username)
		assert.Nil(t, roles)
	})
}

func doLogin(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/login", strings.NewReader(body))
	Login(rr, r)
	return rr
}

func TestLogin(t *testing.T) {
	testutil.OpenTestDB(t)
	conf := testutil.TestConfig()
	conf.Admin = []config.Admin{{Name: "root", Pw: "hunter2"}}
	SetConfig(conf)

	team, err := db.CreateTeam(db.TeamSchema{Name: "alpha"})
	require.NoError(t, err)
	require.NoError(t, db.SetTeamEnv(team.ID, "TEAM_PASSWORD", "s3cret"))

	t.Run("admin login", func(t *testing.T) {
		rr := doLogin(t, `{"username":"root","password":"hunter2"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "admin")

		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, COOKIENAME, cookies[0].Name)
		assert.True(t, cookies[0].HttpOnly)
	})

	t.Run("team login via TEAM_PASSWORD", func(t *testing.T) {
		rr := doLogin(t, `{"username":"alpha","password":"s3cret"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "team")
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		rr := doLogin(t, `{"username":"alpha","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Empty(t, rr.Result().Cookies())
	})

	t.Run("unknown user rejected", func(t *testing.T) {
		rr := doLogin(t, `{"username":"ghost","password":"s3cret"}`)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("empty fields rejected", func(t *testing.T) {
		rr := doLogin(t, `{"username":"","password":""}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestLogout(t *testing.T) {
	SetConfig(testutil.TestConfig())

	rr := httptest.NewRecorder()
	Logout(rr, httptest.NewRequest("GET", "/api/logout", nil))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, COOKIENAME, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
