package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// CheckResultSchema is one health check outcome. Rows are append-only;
// scores are always recomputed from them.
type CheckResultSchema struct {
	ID          uint
	TeamID      uint `gorm:"index"`
	ServiceName string
	Status      bool
	Stdout      string
	Stderr      string
	CreatedAt   time.Time
}

// CreateCheckResults persists one round's worth of results in a single transaction
func CreateCheckResults(results []CheckResultSchema) error {
	if len(results) == 0 {
		return nil
	}
	return db.Create(&results).Error
}

// TeamScoreRow is one leaderboard aggregation row
type TeamScoreRow struct {
	TeamID uint
	Score  int
}

// GetScores aggregates score per team: sum of service multipliers over
// passed checks, joined by service name so deleted services drop out.
func GetScores() (map[uint]int, error) {
	var rows []TeamScoreRow
	result := db.Table("check_result_schemas").
		Select("check_result_schemas.team_id AS team_id, COALESCE(SUM(service_schemas.multiplier), 0) AS score").
		Joins("JOIN service_schemas ON service_schemas.name = check_result_schemas.service_name").
		Where("check_result_schemas.status = ?", true).
		Group("check_result_schemas.team_id").
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	scores := make(map[uint]int, len(rows))
	for _, row := range rows {
		scores[row.TeamID] = row.Score
	}
	return scores, nil
}

// GetServiceScore aggregates one team's score for a single service
func GetServiceScore(teamID uint, serviceName string) (int, error) {
	var score int
	result := db.Table("check_result_schemas").
		Select("COALESCE(SUM(service_schemas.multiplier), 0)").
		Joins("JOIN service_schemas ON service_schemas.name = check_result_schemas.service_name").
		Where("check_result_schemas.team_id = ? AND check_result_schemas.service_name = ? AND check_result_schemas.status = ?", teamID, serviceName, true).
		Scan(&score)
	if result.Error != nil {
		return 0, result.Error
	}
	return score, nil
}

// GetHistory returns the last window results for a (team, service) pair,
// oldest first
func GetHistory(teamID uint, serviceName string, window int) ([]CheckResultSchema, error) {
	var results []CheckResultSchema
	result := db.Where("team_id = ? AND service_name = ?", teamID, serviceName).
		Order("id desc").Limit(window).Find(&results)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return results, nil
		}
		return nil, result.Error
	}

	// reverse into oldest-first order
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

// GetAllCheckResults returns the full check history, oldest first
func GetAllCheckResults() ([]CheckResultSchema, error) {
	var results []CheckResultSchema
	result := db.Order("id").Find(&results)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return results, nil
		}
		return nil, result.Error
	}
	return results, nil
}
