package config

import (
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type ConfigSettings struct {
	// General engine settings
	RequiredSettings RequiredConfig `toml:"RequiredSettings,omitempty" json:"RequiredSettings,omitempty"`

	// LDAP settings
	LdapSettings LdapAuthConfig `toml:"LdapSettings,omitempty" json:"LdapSettings,omitempty"`

	// Optional settings
	SslSettings SslConfig `toml:"SslSettings,omitempty" json:"SslSettings,omitempty"`

	MiscSettings MiscConfig `toml:"MiscSettings,omitempty" json:"MiscSettings,omitempty"`

	Admin   []Admin
	Team    []Team
	Service []Service
	Inject  []Inject
}

type RequiredConfig struct {
	EventName    string
	DBConnectURL string
	BindAddress  string
}

type LdapAuthConfig struct {
	LdapConnectUrl   string
	LdapBindDn       string
	LdapBindPassword string
	LdapSearchBaseDn string
	LdapAdminGroupDn string
	LdapTeamGroupDn  string
}

type SslConfig struct {
	HttpsCert string `toml:"httpscert,omitempty" json:"httpscert,omitempty"`
	HttpsKey  string `toml:"httpskey,omitempty" json:"httpskey,omitempty"`
}

type MiscConfig struct {
	Port    int
	LogFile string

	// start the clock immediately on boot instead of waiting for an admin
	StartActive bool

	// Round settings
	Delay   int
	Timeout int
	Workers int

	// Scoreboard settings
	HistoryWindow int

	// Save settings
	AutosaveInterval int

	// Submission settings
	SubmissionDir string
}

type Admin struct {
	Name string
	Pw   string
}

type EnvPair struct {
	Key   string
	Value string
}

type Team struct {
	Name string
	Env  []EnvPair `toml:"Env,omitempty" json:"Env,omitempty"`
}

type Service struct {
	Name       string
	Command    string
	Multiplier int
}

type Inject struct {
	Name        string
	Markdown    string // inline markdown body
	File        string // or path to a markdown file, relative to the config
	Start       int    // minutes from competition start
	Duration    int    // minutes; ignored when sticky
	Sticky      bool
	FileTypes   []string `toml:"FileTypes,omitempty" json:"FileTypes,omitempty"`
	SideEffects string   `toml:"SideEffects,omitempty" json:"SideEffects,omitempty"` // raw JSON directives
}

// Load in a config
func (conf *ConfigSettings) SetConfig(path string) error {
	tempConf := ConfigSettings{}
	fileContent, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("configuration file (%s) not found: %v", path, err)
	}

	if md, err := toml.Decode(string(fileContent), &tempConf); err != nil {
		return err
	} else {
		for _, undecoded := range md.Undecoded() {
			slog.Warn("undecoded configuration key \"" + undecoded.String() + "\" will not be used.")
		}
	}

	// resolve markdown files relative to the config file
	for i, inject := range tempConf.Inject {
		if inject.Markdown == "" && inject.File != "" {
			body, err := os.ReadFile(filepath.Join(filepath.Dir(path), inject.File))
			if err != nil {
				return fmt.Errorf("inject %s markdown file: %v", inject.Name, err)
			}
			tempConf.Inject[i].Markdown = string(body)
		}
	}

	// check the configuration and set defaults
	if err := checkConfig(&tempConf); err != nil {
		log.Fatalln("configuration file ("+path+") is invalid:", err)
	}

	// if we're here, the config is valid
	*conf = tempConf

	return nil
}

// general error checking
func checkConfig(conf *ConfigSettings) error {
	var errResult error

	// required settings

	if conf.RequiredSettings.EventName == "" {
		errResult = errors.Join(errResult, errors.New("event title blank or not specified"))
	}

	if conf.RequiredSettings.DBConnectURL == "" {
		errResult = errors.Join(errResult, errors.New("no db connect url specified"))
	}

	if conf.RequiredSettings.BindAddress == "" {
		errResult = errors.Join(errResult, errors.New("no bind address specified"))
	}

	for _, admin := range conf.Admin {
		if admin.Name == "" || admin.Pw == "" {
			errResult = errors.Join(errResult, errors.New("admin "+admin.Name+" missing required property"))
		}
	}

	dupeTeamMap := make(map[string]bool)
	for _, team := range conf.Team {
		if team.Name == "" {
			errResult = errors.Join(errResult, errors.New("a team is missing a name"))
		}
		if _, ok := dupeTeamMap[team.Name]; ok {
			errResult = errors.Join(errResult, errors.New("duplicate team name found: "+team.Name))
		}
		dupeTeamMap[team.Name] = true

		dupeKeyMap := make(map[string]bool)
		for _, pair := range team.Env {
			if pair.Key == "" {
				errResult = errors.Join(errResult, errors.New("team "+team.Name+" has an env pair with no key"))
			}
			if _, ok := dupeKeyMap[pair.Key]; ok {
				errResult = errors.Join(errResult, errors.New("team "+team.Name+" has duplicate env key "+pair.Key))
			}
			dupeKeyMap[pair.Key] = true
		}
	}

	dupeServiceMap := make(map[string]bool)
	for _, service := range conf.Service {
		if service.Name == "" {
			errResult = errors.Join(errResult, errors.New("a service is missing a name"))
		}
		if _, ok := dupeServiceMap[service.Name]; ok {
			errResult = errors.Join(errResult, errors.New("duplicate service name found: "+service.Name))
		}
		dupeServiceMap[service.Name] = true

		if service.Command == "" {
			errResult = errors.Join(errResult, errors.New("no command found for service "+service.Name))
		}
		if service.Multiplier < 0 {
			errResult = errors.Join(errResult, errors.New("service "+service.Name+" has a negative multiplier"))
		}
	}

	dupeInjectMap := make(map[string]bool)
	for i, inject := range conf.Inject {
		if inject.Name == "" {
			errResult = errors.Join(errResult, errors.New("an inject is missing a name"))
		}
		if _, ok := dupeInjectMap[inject.Name]; ok {
			errResult = errors.Join(errResult, errors.New("duplicate inject name found: "+inject.Name))
		}
		dupeInjectMap[inject.Name] = true

		if inject.Start < 0 {
			errResult = errors.Join(errResult, errors.New("inject "+inject.Name+" has a negative start"))
		}
		if !inject.Sticky && inject.Duration <= 0 {
			errResult = errors.Join(errResult, errors.New("inject "+inject.Name+" needs a positive duration or sticky"))
		}
		for j, ext := range inject.FileTypes {
			conf.Inject[i].FileTypes[j] = strings.ToLower(strings.TrimPrefix(ext, "."))
		}
	}

	// optional settings

	if conf.MiscSettings.Delay == 0 {
		conf.MiscSettings.Delay = 60
	}

	if conf.SslSettings != (SslConfig{}) {
		if conf.SslSettings.HttpsCert == "" || conf.SslSettings.HttpsKey == "" {
			errResult = errors.Join(errResult, errors.New("https requires a cert and key pair"))
		}
	}

	if conf.MiscSettings.Port == 0 {
		if conf.SslSettings != (SslConfig{}) {
			conf.MiscSettings.Port = 443
		} else {
			conf.MiscSettings.Port = 80
		}
	}

	if conf.MiscSettings.Timeout == 0 {
		conf.MiscSettings.Timeout = 5
	}
	if conf.MiscSettings.Timeout >= conf.MiscSettings.Delay {
		errResult = errors.Join(errResult, errors.New("timeout must be smaller than delay"))
	}

	if conf.MiscSettings.Workers == 0 {
		conf.MiscSettings.Workers = 16
	}

	if conf.MiscSettings.HistoryWindow == 0 {
		conf.MiscSettings.HistoryWindow = 10
	}

	if conf.MiscSettings.AutosaveInterval == 0 {
		conf.MiscSettings.AutosaveInterval = 5
	}

	if conf.MiscSettings.SubmissionDir == "" {
		conf.MiscSettings.SubmissionDir = "submissions"
	}

	// errResult is nil by default if no errors occured
	return errResult
}
