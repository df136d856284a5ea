package db

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

// SaveSchema is one stored snapshot. Autosaves share the namespace with
// named saves and differ only by provenance.
type SaveSchema struct {
	ID        uint
	Name      string `gorm:"unique"`
	Timestamp time.Time
	Autosave  bool
	Blob      []byte
}

// StateSnapshot is the portable form of all competition state. Rows are
// keyed by name so a restore can rebuild foreign keys on a fresh table set.
type StateSnapshot struct {
	Teams    []TeamSnapshot    `json:"teams"`
	Services []ServiceSnapshot `json:"services"`
	Injects  []InjectSnapshot  `json:"injects"`
	Checks   []CheckSnapshot   `json:"checks"`
}

type TeamSnapshot struct {
	Name   string             `json:"name"`
	Env    []EnvSnapshot      `json:"env"`
	Groups []PasswordSnapshot `json:"groups"`
}

type EnvSnapshot struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type PasswordSnapshot struct {
	Group string `json:"group"`
	Blob  string `json:"blob"`
}

type ServiceSnapshot struct {
	Name       string `json:"name"`
	Command    string `json:"command"`
	Multiplier int    `json:"multiplier"`
}

type InjectSnapshot struct {
	Uuid               string               `json:"uuid"`
	Name               string               `json:"name"`
	Markdown           string               `json:"markdown"`
	StartMinute        int                  `json:"start"`
	DurationMinutes    int                  `json:"duration"`
	Sticky             bool                 `json:"sticky"`
	RestrictUploads    bool                 `json:"restrict_uploads"`
	FileTypes          []string             `json:"file_types,omitempty"`
	SideEffects        json.RawMessage      `json:"side_effects,omitempty"`
	SideEffectsApplied bool                 `json:"side_effects_applied"`
	Completed          bool                 `json:"completed"`
	Submissions        []SubmissionSnapshot `json:"submissions"`
}

type SubmissionSnapshot struct {
	Uuid       string    `json:"uuid"`
	Team       string    `json:"team"`
	Filename   string    `json:"filename"`
	StoredName string    `json:"stored_name"`
	UploadTime int       `json:"upload_time"`
	Late       bool      `json:"late"`
	CreatedAt  time.Time `json:"created_at"`
}

type CheckSnapshot struct {
	Team      string    `json:"team"`
	Service   string    `json:"service"`
	Status    bool      `json:"status"`
	Stdout    string    `json:"stdout,omitempty"`
	Stderr    string    `json:"stderr,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func UpsertSave(name string, autosave bool, blob []byte) error {
	var save SaveSchema
	result := db.Where("name = ?", name).First(&save)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			save = SaveSchema{Name: name, Timestamp: time.Now(), Autosave: autosave, Blob: blob}
			return db.Create(&save).Error
		}
		return result.Error
	}
	return db.Model(&SaveSchema{}).Where("id = ?", save.ID).
		Updates(map[string]interface{}{"timestamp": time.Now(), "autosave": autosave, "blob": blob}).Error
}

func GetSave(name string) (SaveSchema, error) {
	var save SaveSchema
	result := db.Where("name = ?", name).First(&save)
	if result.Error != nil {
		return SaveSchema{}, result.Error
	}
	return save, nil
}

// ListSaves returns all saves without their blobs, newest first
func ListSaves() ([]SaveSchema, error) {
	var saves []SaveSchema
	result := db.Select("id", "name", "timestamp", "autosave").Order("timestamp desc").Find(&saves)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return saves, nil
		}
		return nil, result.Error
	}
	return saves, nil
}

// CaptureState reads every aggregate into a snapshot
func CaptureState() (StateSnapshot, error) {
	var snap StateSnapshot

	teams, err := GetTeams()
	if err != nil {
		return snap, err
	}
	teamNames := make(map[uint]string, len(teams))
	for _, team := range teams {
		ts := TeamSnapshot{Name: team.Name, Env: []EnvSnapshot{}, Groups: []PasswordSnapshot{}}
		for _, pair := range team.Env {
			ts.Env = append(ts.Env, EnvSnapshot{Key: pair.Key, Value: pair.Value})
		}
		groups, err := GetPasswordGroups(team.ID)
		if err != nil {
			return snap, err
		}
		for _, group := range groups {
			ts.Groups = append(ts.Groups, PasswordSnapshot{Group: group.GroupName, Blob: group.Blob})
		}
		snap.Teams = append(snap.Teams, ts)
		teamNames[team.ID] = team.Name
	}

	services, err := GetServices()
	if err != nil {
		return snap, err
	}
	for _, service := range services {
		snap.Services = append(snap.Services, ServiceSnapshot{
			Name:       service.Name,
			Command:    service.Command,
			Multiplier: service.Multiplier,
		})
	}

	injects, err := GetInjects()
	if err != nil {
		return snap, err
	}
	for _, inject := range injects {
		is := InjectSnapshot{
			Uuid:               inject.Uuid,
			Name:               inject.Name,
			Markdown:           inject.Markdown,
			StartMinute:        inject.StartMinute,
			DurationMinutes:    inject.DurationMinutes,
			Sticky:             inject.Sticky,
			RestrictUploads:    inject.RestrictUploads,
			FileTypes:          inject.FileTypes,
			SideEffects:        inject.SideEffects,
			SideEffectsApplied: inject.SideEffectsApplied,
			Completed:          inject.Completed,
			Submissions:        []SubmissionSnapshot{},
		}
		submissions, err := GetSubmissionsForInject(inject.ID)
		if err != nil {
			return snap, err
		}
		for _, submission := range submissions {
			is.Submissions = append(is.Submissions, SubmissionSnapshot{
				Uuid:       submission.Uuid,
				Team:       teamNames[submission.TeamID],
				Filename:   submission.Filename,
				StoredName: submission.StoredName,
				UploadTime: submission.UploadTime,
				Late:       submission.Late,
				CreatedAt:  submission.CreatedAt,
			})
		}
		snap.Injects = append(snap.Injects, is)
	}

	checks, err := GetAllCheckResults()
	if err != nil {
		return snap, err
	}
	for _, check := range checks {
		snap.Checks = append(snap.Checks, CheckSnapshot{
			Team:      teamNames[check.TeamID],
			Service:   check.ServiceName,
			Status:    check.Status,
			Stdout:    check.Stdout,
			Stderr:    check.Stderr,
			CreatedAt: check.CreatedAt,
		})
	}

	return snap, nil
}

// ReplaceState swaps all live state for the snapshot's contents in one
// transaction. On error the prior state is left intact.
func ReplaceState(snap StateSnapshot) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, schema := range []interface{}{
			&SubmissionSchema{}, &CheckResultSchema{}, &PasswordGroupSchema{},
			&TeamEnvSchema{}, &InjectSchema{}, &ServiceSchema{}, &TeamSchema{},
		} {
			if err := tx.Where("1 = 1").Delete(schema).Error; err != nil {
				return err
			}
		}

		teamIDs := make(map[string]uint, len(snap.Teams))
		for _, ts := range snap.Teams {
			team := TeamSchema{Name: ts.Name}
			for i, pair := range ts.Env {
				team.Env = append(team.Env, TeamEnvSchema{Key: pair.Key, Value: pair.Value, Position: i})
			}
			for _, group := range ts.Groups {
				team.PasswordGroups = append(team.PasswordGroups, PasswordGroupSchema{GroupName: group.Group, Blob: group.Blob})
			}
			if err := tx.Create(&team).Error; err != nil {
				return err
			}
			teamIDs[team.Name] = team.ID
		}

		for _, ss := range snap.Services {
			service := ServiceSchema{Name: ss.Name, Command: ss.Command, Multiplier: ss.Multiplier}
			if err := tx.Create(&service).Error; err != nil {
				return err
			}
		}

		for _, is := range snap.Injects {
			inject := InjectSchema{
				Uuid:               is.Uuid,
				Name:               is.Name,
				Markdown:           is.Markdown,
				StartMinute:        is.StartMinute,
				DurationMinutes:    is.DurationMinutes,
				Sticky:             is.Sticky,
				RestrictUploads:    is.RestrictUploads,
				FileTypes:          is.FileTypes,
				SideEffects:        is.SideEffects,
				SideEffectsApplied: is.SideEffectsApplied,
				Completed:          is.Completed,
			}
			if err := tx.Create(&inject).Error; err != nil {
				return err
			}
			for _, sub := range is.Submissions {
				teamID, ok := teamIDs[sub.Team]
				if !ok {
					return errors.New("snapshot submission references unknown team " + sub.Team)
				}
				submission := SubmissionSchema{
					Uuid:       sub.Uuid,
					InjectID:   inject.ID,
					TeamID:     teamID,
					Filename:   sub.Filename,
					StoredName: sub.StoredName,
					UploadTime: sub.UploadTime,
					Late:       sub.Late,
					CreatedAt:  sub.CreatedAt,
				}
				if err := tx.Omit("Team").Create(&submission).Error; err != nil {
					return err
				}
			}
		}

		for _, cs := range snap.Checks {
			teamID, ok := teamIDs[cs.Team]
			if !ok {
				return errors.New("snapshot check references unknown team " + cs.Team)
			}
			check := CheckResultSchema{
				TeamID:      teamID,
				ServiceName: cs.Service,
				Status:      cs.Status,
				Stdout:      cs.Stdout,
				Stderr:      cs.Stderr,
				CreatedAt:   cs.CreatedAt,
			}
			if err := tx.Create(&check).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
