package db

import (
	"errors"

	"gorm.io/gorm"
)

// PasswordGroupSchema holds one named credential blob per (team, group).
// The blob is overwritten wholesale, never edited line by line.
type PasswordGroupSchema struct {
	ID        uint
	TeamID    uint   `gorm:"uniqueIndex:idx_team_group"`
	GroupName string `gorm:"uniqueIndex:idx_team_group"`
	Blob      string
}

func UpsertPasswordGroup(teamID uint, groupName string, blob string) error {
	var group PasswordGroupSchema
	result := db.Where("team_id = ? AND group_name = ?", teamID, groupName).First(&group)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			group = PasswordGroupSchema{TeamID: teamID, GroupName: groupName, Blob: blob}
			return db.Create(&group).Error
		}
		return result.Error
	}
	return db.Model(&PasswordGroupSchema{}).Where("id = ?", group.ID).Update("blob", blob).Error
}

func GetPasswordGroup(teamID uint, groupName string) (PasswordGroupSchema, error) {
	var group PasswordGroupSchema
	result := db.Where("team_id = ? AND group_name = ?", teamID, groupName).First(&group)
	if result.Error != nil {
		return PasswordGroupSchema{}, result.Error
	}
	return group, nil
}

// GetPasswordGroups returns all of one team's groups and nothing else
func GetPasswordGroups(teamID uint) ([]PasswordGroupSchema, error) {
	var groups []PasswordGroupSchema
	result := db.Where("team_id = ?", teamID).Order("group_name").Find(&groups)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return groups, nil
		}
		return nil, result.Error
	}
	return groups, nil
}

func DeletePasswordGroup(teamID uint, groupName string) error {
	result := db.Where("team_id = ? AND group_name = ?", teamID, groupName).Delete(&PasswordGroupSchema{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
