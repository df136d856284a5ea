package db

import (
	"errors"

	"gorm.io/gorm"
)

type TeamSchema struct {
	ID             uint
	Name           string                `gorm:"unique"`
	Env            []TeamEnvSchema       `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	Checks         []CheckResultSchema   `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	SubmissionData []SubmissionSchema    `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
	PasswordGroups []PasswordGroupSchema `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE"`
}

// TeamEnvSchema is one key/value pair used to parameterize checks.
// Position preserves the order pairs were entered in.
type TeamEnvSchema struct {
	ID       uint
	TeamID   uint   `gorm:"uniqueIndex:idx_team_env_key"`
	Key      string `gorm:"uniqueIndex:idx_team_env_key"`
	Value    string
	Position int
}

func CreateTeam(team TeamSchema) (TeamSchema, error) {
	result := db.Create(&team)
	if result.Error != nil {
		return TeamSchema{}, result.Error
	}
	return team, nil
}

func GetTeams() ([]TeamSchema, error) {
	var teams []TeamSchema
	result := db.Preload("Env", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position")
	}).Order("name").Find(&teams)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return teams, nil
		} else {
			return nil, result.Error
		}
	}
	return teams, nil
}

func GetTeamByName(name string) (TeamSchema, error) {
	var team TeamSchema
	result := db.Preload("Env", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position")
	}).Where("name = ?", name).First(&team)
	if result.Error != nil {
		return TeamSchema{}, result.Error
	}
	return team, nil
}

func RenameTeam(oldName string, newName string) error {
	team, err := GetTeamByName(oldName)
	if err != nil {
		return err
	}
	result := db.Model(&TeamSchema{}).Where("id = ?", team.ID).Update("name", newName)
	return result.Error
}

// DeleteTeam removes a team. Env pairs, password groups, check history
// and submissions go with it.
func DeleteTeam(name string) error {
	team, err := GetTeamByName(name)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ?", team.ID).Delete(&TeamEnvSchema{}).Error; err != nil {
			return err
		}
		if err := tx.Where("team_id = ?", team.ID).Delete(&CheckResultSchema{}).Error; err != nil {
			return err
		}
		if err := tx.Where("team_id = ?", team.ID).Delete(&SubmissionSchema{}).Error; err != nil {
			return err
		}
		if err := tx.Where("team_id = ?", team.ID).Delete(&PasswordGroupSchema{}).Error; err != nil {
			return err
		}
		return tx.Delete(&TeamSchema{}, team.ID).Error
	})
}

// SetTeamEnv upserts one env pair, appending to the order on insert
func SetTeamEnv(teamID uint, key string, value string) error {
	var pair TeamEnvSchema
	result := db.Where("team_id = ? AND key = ?", teamID, key).First(&pair)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			var count int64
			if err := db.Model(&TeamEnvSchema{}).Where("team_id = ?", teamID).Count(&count).Error; err != nil {
				return err
			}
			pair = TeamEnvSchema{TeamID: teamID, Key: key, Value: value, Position: int(count)}
			return db.Create(&pair).Error
		}
		return result.Error
	}
	return db.Model(&TeamEnvSchema{}).Where("id = ?", pair.ID).Update("value", value).Error
}

func DeleteTeamEnv(teamID uint, key string) error {
	result := db.Where("team_id = ? AND key = ?", teamID, key).Delete(&TeamEnvSchema{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetTeamEnvPair returns the value of one env key for a team
func GetTeamEnvPair(teamID uint, key string) (string, error) {
	var pair TeamEnvSchema
	result := db.Where("team_id = ? AND key = ?", teamID, key).First(&pair)
	if result.Error != nil {
		return "", result.Error
	}
	return pair.Value, nil
}
