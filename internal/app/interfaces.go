package app

import (
	"github.com/robfig/cron/v3"
	"github.com/sanamente/catalogd/config"
	"github.com/sanamente/catalogd/internal/auth"
	"github.com/sanamente/catalogd/internal/catalog"
	"github.com/sanamente/catalogd/internal/store"
	"gorm.io/gorm"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// StoreProvider provides the document store collaborator
type StoreProvider interface {
	Store() store.Store
}

// AuthProvider provides the session provider and gate
type AuthProvider interface {
	Auth() *auth.JWTProvider
	Gate() *auth.Gate
}

// CatalogProvider provides the catalog mutation service
type CatalogProvider interface {
	Catalog() *catalog.Service
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context.
// Services should depend on specific providers or this combined interface.
type AppContext interface {
	DBProvider
	ConfigProvider
	StoreProvider
	AuthProvider
	CatalogProvider
	SchedulerProvider

	// Application lifecycle methods
	MigrateDB() error
	DropAll()
	Release()
}
