package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/todayvn/internal/common"
	"github.com/ternarybob/todayvn/internal/interfaces"
)

// Manager owns the ledger database and the storages built on it
type Manager struct {
	db     *BadgerDB
	runs   *RunStorage
	logger arbor.ILogger
}

// NewManager opens the ledger database
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	logger.Debug().Str("path", config.Path).Msg("Badger storage manager initialized")

	return &Manager{
		db:     db,
		runs:   NewRunStorage(db, logger),
		logger: logger,
	}, nil
}

// RunStorage returns the run ledger
func (m *Manager) RunStorage() interfaces.RunStorage {
	return m.runs
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
