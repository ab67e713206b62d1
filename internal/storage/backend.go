package storage

import (
	"context"
	"errors"
	"fmt"
)

// Slot names. Each holds one JSON document per installation.
const (
	SlotConsultations = "medical-diagnoses"
	SlotLabResults    = "lab-results"
	SlotLanguage      = "user-language"
	SlotAccessibility = "accessibility-settings"
	SlotUsageEvents   = "medcare-usage-events"
	SlotLicense       = "medcare-commercial-license"
	SlotInstallation  = "installation"
)

// globalScope holds slots that exist before an installation id is known.
const globalScope = ""

var ErrNotFound = errors.New("record not found")

// Backend is a key/value slot store partitioned by installation.
// Writes replace the whole slot value.
type Backend interface {
	Get(ctx context.Context, installation, slot string) ([]byte, bool, error)
	Set(ctx context.Context, installation, slot string, value []byte) error
	Close() error
}

type BackendConfig struct {
	Driver        string
	DBPath        string
	DatabaseURL   string
	MongoURI      string
	MongoDatabase string
}

// OpenBackend opens the backend named by cfg.Driver and prepares its schema.
func OpenBackend(ctx context.Context, cfg BackendConfig) (Backend, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return OpenSQLite(cfg.DBPath)
	case "postgres":
		return OpenPostgres(ctx, cfg.DatabaseURL)
	case "mongo":
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
