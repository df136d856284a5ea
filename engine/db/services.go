package db

import (
	"errors"

	"gorm.io/gorm"
)

type ServiceSchema struct {
	ID         uint
	Name       string `gorm:"unique"`
	Command    string
	Multiplier int
}

func CreateService(service ServiceSchema) (ServiceSchema, error) {
	result := db.Create(&service)
	if result.Error != nil {
		return ServiceSchema{}, result.Error
	}
	return service, nil
}

func GetServices() ([]ServiceSchema, error) {
	var services []ServiceSchema
	result := db.Order("name").Find(&services)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return services, nil
		} else {
			return nil, result.Error
		}
	}
	return services, nil
}

func GetServiceByName(name string) (ServiceSchema, error) {
	var service ServiceSchema
	result := db.Where("name = ?", name).First(&service)
	if result.Error != nil {
		return ServiceSchema{}, result.Error
	}
	return service, nil
}

func UpdateService(service ServiceSchema) (ServiceSchema, error) {
	result := db.Save(&service)
	if result.Error != nil {
		return ServiceSchema{}, result.Error
	}
	return service, nil
}

// DeleteService removes a service and its contribution to every team's
// score view (the check history rows that reference it by name).
func DeleteService(name string) error {
	service, err := GetServiceByName(name)
	if err != nil {
		return err
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("service_name = ?", name).Delete(&CheckResultSchema{}).Error; err != nil {
			return err
		}
		return tx.Delete(&ServiceSchema{}, service.ID).Error
	})
}
