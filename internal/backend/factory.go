package backend

import (
	"context"
	"errors"
	"fmt"
	"os"

	"budgetboard/internal/ledger/csvfile"
	"budgetboard/internal/ledger/memory"
	"budgetboard/internal/ledger/sheets"
	"budgetboard/internal/ledger/sqlite"
	"budgetboard/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case CSVBackend:
		return f.createCSVBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createCSVBackend(config Config) (*Result, error) {
	f.logger.Info("Initialized CSV backend", "path", config.CSVPath)
	return &Result{Source: csvfile.New(config.CSVPath)}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	store, err := sqlite.New(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{
		Source:   store,
		Writer:   store,
		Importer: store,
		Cleanup:  store.Close,
	}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := sheets.New(ctx, sheets.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "sheet", config.GoogleSheetName)

	return &Result{Source: cli, Writer: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*Result, error) {
	store := memory.New()
	if config.CSVPath != "" {
		seed, err := csvfile.New(config.CSVPath).Snapshot(ctx)
		switch {
		case errors.Is(err, os.ErrNotExist):
			f.logger.Info("No seed ledger found, starting empty", "path", config.CSVPath)
		case err != nil:
			return nil, fmt.Errorf("seed memory backend: %w", err)
		default:
			store.Replace(seed)
		}
	}

	f.logger.Info("Initialized memory backend", log.FieldTransactions, store.Len())

	return &Result{Source: store, Writer: store, Importer: store}, nil
}
