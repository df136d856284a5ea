package db

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"tally/engine/config"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	db *gorm.DB
)

func dialector(connectURL string) gorm.Dialector {
	if strings.HasPrefix(connectURL, "sqlite:") {
		split := strings.SplitN(connectURL, ":", 2)
		filename := split[1]
		return sqlite.Open(fmt.Sprintf("%s?mode=rwc", filename))
	} else {
		return postgres.Open(connectURL)
	}
}

func Connect(connectURL string) {
	var err error

	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			IgnoreRecordNotFoundError: true, // Ignore ErrRecordNotFound error for logger
		},
	)

	db, err = gorm.Open(dialector(connectURL), &gorm.Config{
		TranslateError: true,
		Logger:         newLogger,
	})
	if err != nil {
		log.Fatalf("Failed to connect database %s: %v", connectURL, err)
	}

	slog.Info("Connected to DB")

	err = db.AutoMigrate(&TeamSchema{}, &TeamEnvSchema{}, &ServiceSchema{},
		&CheckResultSchema{}, &InjectSchema{}, &SubmissionSchema{},
		&PasswordGroupSchema{}, &SaveSchema{})
	if err != nil {
		log.Fatalln("Failed to auto migrate:", err)
	}
}

// AddTeams seeds teams from the config, then pulls any extra teams from LDAP
func AddTeams(conf *config.ConfigSettings) error {
	for _, team := range conf.Team {
		t := TeamSchema{Name: team.Name}
		result := db.Where(&t).First(&t)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				for i, pair := range team.Env {
					t.Env = append(t.Env, TeamEnvSchema{Key: pair.Key, Value: pair.Value, Position: i})
				}
				if _, err := CreateTeam(t); err != nil {
					return err
				}
			} else {
				return result.Error
			}
		}
	}

	// check for teams from other sources
	// ldap
	if conf.LdapSettings != (config.LdapAuthConfig{}) {
		conn, err := ldap.DialURL(conf.LdapSettings.LdapConnectUrl)
		if err != nil {
			return err
		}
		defer conn.Close()

		err = conn.Bind(conf.LdapSettings.LdapBindDn, conf.LdapSettings.LdapBindPassword)
		if err != nil {
			return err
		}

		searchRequest := ldap.NewSearchRequest(
			conf.LdapSettings.LdapSearchBaseDn,
			ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
			fmt.Sprintf("(&(objectClass=person)(memberOf=%s))", conf.LdapSettings.LdapTeamGroupDn),
			[]string{"sAMAccountName"},
			nil,
		)

		sr, err := conn.Search(searchRequest)
		if err != nil {
			return err
		}

		for _, entry := range sr.Entries {
			teamName := entry.GetAttributeValue("sAMAccountName")
			t := TeamSchema{Name: teamName}
			result := db.Where(&t).First(&t)
			if result.Error != nil {
				if errors.Is(result.Error, gorm.ErrRecordNotFound) {
					if _, err := CreateTeam(t); err != nil {
						return err
					}
				} else {
					return result.Error
				}
			}
		}
	}
	return nil
}

// AddServices seeds services from the config
func AddServices(conf *config.ConfigSettings) error {
	for _, service := range conf.Service {
		s := ServiceSchema{Name: service.Name}
		result := db.Where(&s).First(&s)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				s.Command = service.Command
				s.Multiplier = service.Multiplier
				if _, err := CreateService(s); err != nil {
					return err
				}
			} else {
				return result.Error
			}
		}
	}
	return nil
}

// AddInjects seeds injects from the config
func AddInjects(conf *config.ConfigSettings) error {
	for _, inject := range conf.Inject {
		i := InjectSchema{Name: inject.Name}
		result := db.Where(&i).First(&i)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				i.Uuid = uuid.New().String()
				i.Markdown = inject.Markdown
				i.StartMinute = inject.Start
				i.DurationMinutes = inject.Duration
				i.Sticky = inject.Sticky
				if inject.FileTypes != nil {
					i.RestrictUploads = true
					i.FileTypes = inject.FileTypes
				}
				if inject.SideEffects != "" {
					i.SideEffects = json.RawMessage(inject.SideEffects)
				}
				if _, err := CreateInject(i); err != nil {
					return err
				}
			} else {
				return result.Error
			}
		}
	}
	return nil
}

// ResetScores truncates the check history. Scores recompute to zero.
func ResetScores() error {
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("TRUNCATE TABLE check_result_schemas").Error; err != nil {
			return err
		}
	} else {
		// https://gorm.io/docs/delete.html#Block-Global-Delete
		if err := db.Where("1 = 1").Delete(&CheckResultSchema{}).Error; err != nil {
			return err
		}
	}

	return nil
}
