package db

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

type InjectSchema struct {
	ID              uint
	Uuid            string `gorm:"unique"`
	Name            string `gorm:"unique"`
	Markdown        string
	StartMinute     int
	DurationMinutes int // ignored when sticky
	Sticky          bool

	// RestrictUploads false means any file type is accepted. True with an
	// empty FileTypes list means no uploads are accepted at all.
	RestrictUploads bool
	FileTypes       pq.StringArray `gorm:"type:text[]"`

	// SideEffects holds keyed directives applied when the inject starts.
	// Unknown kinds are preserved but never interpreted.
	SideEffects        json.RawMessage
	SideEffectsApplied bool

	Completed bool

	Submissions []SubmissionSchema `gorm:"foreignKey:InjectID;constraint:OnDelete:CASCADE"`
}

type SubmissionSchema struct {
	ID         uint
	Uuid       string `gorm:"unique"`
	InjectID   uint   `gorm:"index"`
	TeamID     uint   `gorm:"index"`
	Team       TeamSchema
	Filename   string // name the team uploaded
	StoredName string // deduplicated name on disk
	UploadTime int    // elapsed competition minutes at upload
	Late       bool
	CreatedAt  time.Time
}

// CreateInject creates a new inject in the database using the provided schema
func CreateInject(inject InjectSchema) (InjectSchema, error) {
	result := db.Create(&inject)
	if result.Error != nil {
		return InjectSchema{}, result.Error
	}
	return inject, nil
}

// GetInjects retrieves all injects from the database
func GetInjects() ([]InjectSchema, error) {
	var injects []InjectSchema
	result := db.Order("start_minute, id").Find(&injects)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return injects, nil
		}
		return nil, result.Error
	}
	return injects, nil
}

func GetInjectByUuid(uuid string) (InjectSchema, error) {
	var inject InjectSchema
	result := db.Where("uuid = ?", uuid).First(&inject)
	if result.Error != nil {
		return InjectSchema{}, result.Error
	}
	return inject, nil
}

// UpdateInject
func UpdateInject(inject InjectSchema) (InjectSchema, error) {
	result := db.Save(&inject)
	if result.Error != nil {
		return InjectSchema{}, result.Error
	}
	return inject, nil
}

// DeleteInject deletes an inject and its submissions
func DeleteInject(inject InjectSchema) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("inject_id = ?", inject.ID).Delete(&SubmissionSchema{}).Error; err != nil {
			return err
		}
		return tx.Delete(&InjectSchema{}, inject.ID).Error
	})
}

func MarkSideEffectsApplied(injectID uint) error {
	return db.Model(&InjectSchema{}).Where("id = ?", injectID).Update("side_effects_applied", true).Error
}

func CreateSubmission(submission SubmissionSchema) (SubmissionSchema, error) {
	result := db.Omit("Team").Create(&submission)
	if result.Error != nil {
		return SubmissionSchema{}, result.Error
	}
	return submission, nil
}

// GetSubmissionsForInject returns every team's submissions for an inject
func GetSubmissionsForInject(injectID uint) ([]SubmissionSchema, error) {
	var submissions []SubmissionSchema
	result := db.Preload("Team").Where("inject_id = ?", injectID).Order("id").Find(&submissions)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return submissions, nil
		}
		return nil, result.Error
	}
	return submissions, nil
}

// GetSubmissionsForTeamInject returns one team's submissions for an inject
func GetSubmissionsForTeamInject(injectID uint, teamID uint) ([]SubmissionSchema, error) {
	var submissions []SubmissionSchema
	result := db.Where("inject_id = ? AND team_id = ?", injectID, teamID).Order("id").Find(&submissions)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return submissions, nil
		}
		return nil, result.Error
	}
	return submissions, nil
}

// GetStoredNamesForInject lists disk names already taken for an inject,
// across all teams
func GetStoredNamesForInject(injectID uint) ([]string, error) {
	var names []string
	result := db.Model(&SubmissionSchema{}).Where("inject_id = ?", injectID).Pluck("stored_name", &names)
	if result.Error != nil {
		return nil, result.Error
	}
	return names, nil
}
