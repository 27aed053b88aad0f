// Package storage opens the persistence layers a run needs.
package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/storage/badger"
	"github.com/ternarybob/todayvn/internal/storage/report"
)

// Storage bundles the run ledger and the artifact store
type Storage struct {
	Ledger  *badger.Manager
	Reports *report.Store
}

// New opens the badger ledger and the report artifact directory
func New(logger arbor.ILogger, config *common.Config) (*Storage, error) {
	reports, err := report.NewStore(config.Storage.DataDir, logger)
	if err != nil {
		return nil, err
	}

	ledger, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}

	return &Storage{Ledger: ledger, Reports: reports}, nil
}

// Close releases the ledger database
func (s *Storage) Close() error {
	return s.Ledger.Close()
}
