package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"tally/engine"
	"tally/engine/config"
	"tally/engine/db"
	"tally/www"
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

var opts struct {
	configPath string
	logger     struct {
		level string
	}
}

func main() {
	flag.StringVar(&opts.configPath, "config", "./config/event.conf", "Path to the event configuration")
	flag.StringVar(&opts.logger.level, "log-level", "info", "Set the log level")
	flag.Parse()

	logLevel, ok := logLevels[opts.logger.level]
	if !ok {
		log.Fatalf("Invalid log level: %s", opts.logger.level)
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	conf := config.ConfigSettings{}
	if err := conf.SetConfig(opts.configPath); err != nil {
		log.Fatalln("Failed to load config:", err)
	}

	db.Connect(conf.RequiredSettings.DBConnectURL)

	if err := db.AddTeams(&conf); err != nil {
		log.Fatalln("Failed to add teams to DB:", err)
	}
	if err := db.AddServices(&conf); err != nil {
		log.Fatalln("Failed to add services to DB:", err)
	}
	if err := db.AddInjects(&conf); err != nil {
		log.Fatalln("Failed to add injects to DB:", err)
	}

	eng := engine.NewEngine(&conf)

	// start engine, restart if it stops (a load or reset breaks the loop)
	go func() {
		for {
			eng.Start()
		}
	}()

	router := www.Router{Config: &conf, Engine: eng}
	router.Start()
}
