package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tento/internal/common"
	"github.com/ternarybob/tento/internal/interfaces"
)

// Manager bundles the Badger-backed stores behind the StorageManager
// interface.
type Manager struct {
	db      *BadgerDB
	corpus  interfaces.CorpusStorage
	jobs    interfaces.JobStorage
	results interfaces.ResultStorage
	logger  arbor.ILogger
}

// NewManager opens the database and wires the stores.
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize badger storage: %w", err)
	}

	return &Manager{
		db:      db,
		corpus:  NewCorpusStorage(db, logger),
		jobs:    NewJobStorage(db, logger),
		results: NewResultStorage(db, logger),
		logger:  logger,
	}, nil
}

func (m *Manager) Corpus() interfaces.CorpusStorage {
	return m.corpus
}

func (m *Manager) Jobs() interfaces.JobStorage {
	return m.jobs
}

func (m *Manager) Results() interfaces.ResultStorage {
	return m.results
}

func (m *Manager) Close() error {
	m.logger.Debug().Msg("Closing storage manager")
	return m.db.Close()
}
