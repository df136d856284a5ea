package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"tally/engine/config"
	"tally/engine/db"

	"github.com/go-ldap/ldap/v3"
	"github.com/gorilla/securecookie"
)

const COOKIENAME = "tally"

// CookieEncoder signs and encrypts session cookies. Keys are per-process,
// so sessions don't survive a restart.
var CookieEncoder = securecookie.New(
	securecookie.GenerateRandomKey(64),
	securecookie.GenerateRandomKey(32),
)

// Authenticate decodes the session cookie into (username, roles).
// An empty username means no valid session.
func Authenticate(w http.ResponseWriter, r *http.Request) (string, []string) {
	cookie, err := r.Cookie(COOKIENAME)
	if err != nil {
		return "", nil
	}

	session := make(map[string]any)
	if err := CookieEncoder.Decode(COOKIENAME, cookie.Value, &session); err != nil {
		return "", nil
	}

	username, _ := session["username"].(string)
	var roles []string
	switch v := session["roles"].(type) {
	case []string:
		roles = v
	case []any:
		for _, role := range v {
			if s, ok := role.(string); ok {
				roles = append(roles, s)
			}
		}
	}
	return username, roles
}

// Login authenticates against the configured admins, then team
// TEAM_PASSWORD env pairs, then LDAP when configured
func Login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing fields"})
		return
	}

	if strings.TrimSpace(creds.Username) == "" || strings.TrimSpace(creds.Password) == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "Username or password can't be empty."})
		return
	}

	var roles []string

	for _, admin := range conf.Admin {
		if creds.Username == admin.Name && creds.Password == admin.Pw {
			roles = []string{"admin"}
			break
		}
	}

	if roles == nil {
		if teamLogin(creds.Username, creds.Password) {
			roles = []string{"team"}
		}
	}

	if roles == nil && conf.LdapSettings != (config.LdapAuthConfig{}) {
		ldapRoles, err := ldapLogin(creds.Username, creds.Password)
		if err != nil {
			slog.Debug("ldap login failed", "username", creds.Username, "error", err)
		}
		roles = ldapRoles
	}

	if roles == nil {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "Incorrect username or password."})
		return
	}

	session := map[string]any{
		"username": creds.Username,
		"roles":    roles,
	}
	encoded, err := CookieEncoder.Encode(COOKIENAME, session)
	if err != nil {
		slog.Error("failed to encode session cookie", "error", err)
		WriteJSON(w, http.StatusInternalServerError, map[string]any{"error": "Failed to create session"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     COOKIENAME,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   conf.SslSettings != (config.SslConfig{}),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400,
	})

	WriteJSON(w, http.StatusOK, map[string]any{"status": "success", "roles": roles})
}

func Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     COOKIENAME,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   conf.SslSettings != (config.SslConfig{}),
		SameSite: http.SameSiteLaxMode,
	})
	WriteJSON(w, http.StatusOK, map[string]any{"message": "logged out"})
}

// teamLogin checks the team's TEAM_PASSWORD env pair
func teamLogin(username string, password string) bool {
	team, err := db.GetTeamByName(username)
	if err != nil {
		return false
	}
	expected, err := db.GetTeamEnvPair(team.ID, "TEAM_PASSWORD")
	if err != nil {
		return false
	}
	return expected != "" && expected == password
}

func ldapLogin(username string, password string) ([]string, error) {
	ldapServer, err := ldap.DialURL(conf.LdapSettings.LdapConnectUrl)
	if err != nil {
		return nil, err
	}
	defer ldapServer.Close()

	binddn := fmt.Sprintf("samaccountname=%s,%s", username, conf.LdapSettings.LdapSearchBaseDn)
	if err := ldapServer.Bind(binddn, password); err != nil {
		return nil, err
	}

	searchRequest := ldap.NewSearchRequest(
		conf.LdapSettings.LdapSearchBaseDn,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf("(samaccountname=%s)", username),
		[]string{"cn", "memberOf"},
		nil,
	)
	searchResult, err := ldapServer.Search(searchRequest)
	if err != nil {
		return nil, err
	}

	if len(searchResult.Entries) == 0 {
		return nil, fmt.Errorf("user %s not found", username)
	}

	for _, entry := range searchResult.Entries {
		for _, memberOf := range entry.GetAttributeValues("memberOf") {
			if strings.EqualFold(memberOf, conf.LdapSettings.LdapAdminGroupDn) {
				return []string{"admin"}, nil
			}
			if strings.EqualFold(memberOf, conf.LdapSettings.LdapTeamGroupDn) {
				return []string{"team"}, nil
			}
		}
	}
	return nil, fmt.Errorf("user %s has no authorized groups", username)
}
