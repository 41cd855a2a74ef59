package database

import "labbook/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.Profile{},
		&models.Problem{},
		&models.Post{},
		&models.Solution{},
		&models.Validation{},
		&models.Collaborator{},
	}
}
