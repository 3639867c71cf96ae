package backend

import (
	"context"
	"errors"
	"fmt"

	"coppia/internal/amqp"
	"coppia/internal/config"
	"coppia/internal/ledger"
	"coppia/internal/log"
	gsheet "coppia/internal/sheets/google"
	"coppia/internal/storage"
	"coppia/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend opens the store, then attaches AMQP and the Sheets export when
// configured. Optional integrations that fail to start are logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := f.createStore(cfg)
	if err != nil {
		return nil, err
	}
	result := &BackendResult{Store: store}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.Topology)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, evaluating inline", "error", err)
		} else {
			result.Publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", cfg.Topology.Exchange,
				"evaluate_queue", cfg.Topology.EvaluateQueue,
				"notify_queue", cfg.Topology.NotifyQueue)
		}
	}

	if cfg.GoogleSpreadsheetID != "" {
		exporter, err := gsheet.NewFromConfig(ctx, &config.Config{
			GoogleSpreadsheetID:      cfg.GoogleSpreadsheetID,
			GoogleSheetName:          cfg.GoogleSheetName,
			GoogleReportSheetName:    cfg.GoogleReportSheet,
			GoogleServiceAccountFile: cfg.credentials.file,
			GoogleServiceAccountJSON: cfg.credentials.json,
		})
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize Google Sheets export, continuing without it", "error", err)
		} else {
			result.Exporter = exporter
			f.logger.InfoContext(ctx, "Initialized Google Sheets export", "sheet", cfg.GoogleSheetName)
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if result.Publisher != nil {
			errs = append(errs, result.Publisher.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}

	f.logger.InfoContext(ctx, "Backend ready",
		"type", cfg.Type.String(),
		"amqp_enabled", result.Publisher != nil,
		"sheets_enabled", result.Exporter != nil)
	return result, nil
}

func (f *DefaultFactory) createStore(cfg Config) (ledger.Store, error) {
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", cfg.SQLiteDBPath)
		return repo, nil
	case MemoryBackend:
		f.logger.Info("Initialized memory store")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
