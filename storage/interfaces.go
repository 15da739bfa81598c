package storage

import "rental-price-tracker/models"

// RegistryStore defines the interface for persisting the booking registry
// as one atomic unit
type RegistryStore interface {
	Load() (*models.Registry, error)
	Save(reg *models.Registry) error
}

// MirrorStore defines the interface for pushing the registry to a remote
// read-model (dashboard database)
type MirrorStore interface {
	Sync(reg *models.Registry) error
	Close() error
}
