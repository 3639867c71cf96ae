package backend

import (
	"context"

	"coppia/internal/amqp"
	"coppia/internal/ledger"
	"coppia/internal/services"
	"coppia/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult holds the store and the optional outbound adapters built for it.
// Publisher and Exporter are nil when their integration is disabled or unreachable.
type BackendResult struct {
	Store     ledger.Store
	Publisher *amqp.Client
	Exporter  sheets.Exporter
	Cleanup   CleanupFunc
}

// ServiceOptions wires the optional adapters into a FinanceService.
func (r *BackendResult) ServiceOptions() []services.Option {
	var opts []services.Option
	if r.Publisher != nil {
		opts = append(opts, services.WithPublisher(r.Publisher))
	}
	if r.Exporter != nil {
		opts = append(opts,
			services.WithUnlockExporter(r.Exporter),
			services.WithReportWriter(r.Exporter))
	}
	return opts
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// AMQP is optional. An empty URL disables it.
	AMQPURL  string
	Topology amqp.Topology

	// Sheets export is optional. An empty spreadsheet id disables it.
	GoogleSpreadsheetID string
	GoogleSheetName     string
	GoogleReportSheet   string
	credentials         sheetsCredentials
}

type sheetsCredentials struct {
	file string
	json string
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
