package backend

import (
	"context"

	"familybudget/internal/amqp"
	"familybudget/internal/services"
	"familybudget/internal/sheets"
	"familybudget/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the wired infrastructure and its cleanup function
type BackendResult struct {
	Repository storage.Repository
	// AMQP is nil when no broker is configured.
	AMQP *amqp.Client
	// Reporter is nil when status export is disabled.
	Reporter sheets.StatusReporter
	Cleanup  CleanupFunc
}

// ChangePublisher returns the AMQP client as a publisher, or an untyped nil
// so services fall back to inline alert evaluation.
func (r *BackendResult) ChangePublisher() services.ChangePublisher {
	if r.AMQP == nil {
		return nil
	}
	return r.AMQP
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets status export, optional
	GoogleSpreadsheetID   string
	GoogleReportSheetName string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
