package www

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"tally/engine"
	"tally/engine/config"
	"tally/www/api"
	"tally/www/middleware"
)

type Router struct {
	Config *config.ConfigSettings
	Engine *engine.ScoringEngine
}

func (router *Router) Start() {
	// choose http/https
	var protocol string
	if router.Config.SslSettings == (config.SslConfig{}) {
		protocol = "http"
	} else {
		protocol = "https"
	}

	mux := http.NewServeMux()
	api.SetConfig(router.Config)
	api.SetEngine(router.Engine)

	headers := middleware.SecurityHeaders(router.Config)

	/******************************************
	|                                         |
	|              PUBLIC ROUTES              |
	|                                         |
	******************************************/

	UNAUTH := middleware.MiddlewareChain(middleware.Logging, headers, middleware.Cors, middleware.Authentication("anonymous", "team", "admin"))

	mux.HandleFunc("POST /api/login", api.Login)

	mux.HandleFunc("GET /api/scores", UNAUTH(api.GetScoreboard))
	mux.HandleFunc("GET /api/scores/{team}", UNAUTH(api.GetTeamScore))
	mux.HandleFunc("GET /api/time", UNAUTH(api.GetTime))

	/******************************************
	|                                         |
	|               AUTH ROUTES               |
	|                                         |
	******************************************/

	ALLAUTH := middleware.MiddlewareChain(middleware.Logging, headers, middleware.Authentication("team", "admin"))

	mux.HandleFunc("GET /api/logout", ALLAUTH(api.Logout))

	/******************************************
	|                                         |
	|               TEAM ROUTES               |
	|                                         |
	******************************************/

	TEAMAUTH := middleware.MiddlewareChain(middleware.Logging, headers, middleware.Authentication("team", "admin"))

	mux.HandleFunc("GET /api/team/{team}/injects", TEAMAUTH(api.GetTeamInjects))
	mux.HandleFunc("GET /api/team/{team}/injects/{uuid}", TEAMAUTH(api.GetTeamInject))
	mux.HandleFunc("POST /api/team/{team}/injects/{uuid}/upload", TEAMAUTH(api.CreateSubmission))

	mux.HandleFunc("GET /api/team/{team}/passwords", TEAMAUTH(api.GetPasswordGroups))
	mux.HandleFunc("GET /api/team/{team}/passwords/{group}", TEAMAUTH(api.GetPasswordGroup))
	mux.HandleFunc("POST /api/team/{team}/passwords/{group}", TEAMAUTH(api.WritePasswordGroup))

	/******************************************
	|                                         |
	|               ADMIN ROUTES              |
	|                                         |
	******************************************/

	ADMINAUTH := middleware.MiddlewareChain(middleware.Logging, headers, middleware.Authentication("admin"))

	mux.HandleFunc("GET /api/admin/service", ADMINAUTH(api.GetServices))
	mux.HandleFunc("POST /api/admin/service", ADMINAUTH(api.CreateService))
	mux.HandleFunc("GET /api/admin/service/{name}", ADMINAUTH(api.TestService))
	mux.HandleFunc("POST /api/admin/service/{name}", ADMINAUTH(api.UpdateService))
	mux.HandleFunc("DELETE /api/admin/service/{name}", ADMINAUTH(api.DeleteService))

	mux.HandleFunc("GET /api/admin/team", ADMINAUTH(api.GetTeams))
	mux.HandleFunc("POST /api/admin/team", ADMINAUTH(api.CreateTeam))
	mux.HandleFunc("POST /api/admin/team/{team}", ADMINAUTH(api.RenameTeam))
	mux.HandleFunc("DELETE /api/admin/team/{team}", ADMINAUTH(api.DeleteTeam))
	mux.HandleFunc("POST /api/admin/team/{team}/env", ADMINAUTH(api.SetTeamEnv))
	mux.HandleFunc("DELETE /api/admin/team/{team}/env/{name}", ADMINAUTH(api.DeleteTeamEnv))

	mux.HandleFunc("GET /api/admin/team/{team}/passwords", ADMINAUTH(api.GetPasswordGroups))
	mux.HandleFunc("POST /api/admin/team/{team}/passwords/{group}", ADMINAUTH(api.WritePasswordGroup))
	mux.HandleFunc("DELETE /api/admin/team/{team}/passwords/{group}", ADMINAUTH(api.DeletePasswordGroup))

	mux.HandleFunc("POST /api/admin/start", ADMINAUTH(api.StartCompetition))
	mux.HandleFunc("POST /api/admin/stop", ADMINAUTH(api.StopCompetition))
	mux.HandleFunc("POST /api/admin/reset", ADMINAUTH(api.ResetScores))

	mux.HandleFunc("GET /api/admin/injects", ADMINAUTH(api.GetInjects))
	mux.HandleFunc("POST /api/admin/injects", ADMINAUTH(api.CreateInject))
	mux.HandleFunc("POST /api/admin/injects/{uuid}", ADMINAUTH(api.UpdateInject))
	mux.HandleFunc("DELETE /api/admin/injects/{uuid}", ADMINAUTH(api.DeleteInject))

	mux.HandleFunc("GET /api/admin/saves", ADMINAUTH(api.ListSaves))
	mux.HandleFunc("POST /api/admin/saves", ADMINAUTH(api.CreateSave))
	mux.HandleFunc("POST /api/admin/saves/load", ADMINAUTH(api.LoadSave))

	mux.HandleFunc("GET /api/admin/config", ADMINAUTH(api.GetConfig))

	// start server
	server := http.Server{
		Addr:    fmt.Sprintf("%s:%d", router.Config.RequiredSettings.BindAddress, router.Config.MiscSettings.Port),
		Handler: mux,
	}
	slog.Info(fmt.Sprintf("Starting Web Server on %s://%s:%d", protocol, router.Config.RequiredSettings.BindAddress, router.Config.MiscSettings.Port))

	if router.Config.SslSettings != (config.SslConfig{}) {
		log.Fatal(server.ListenAndServeTLS(router.Config.SslSettings.HttpsCert, router.Config.SslSettings.HttpsKey))
	} else {
		log.Fatal(server.ListenAndServe())
	}
}
