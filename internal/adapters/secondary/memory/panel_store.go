package memory

import (
	"sync"

	"github.com/lorrc/ticket-broker/internal/core/domain"
	"github.com/lorrc/ticket-broker/internal/core/ports"
)

// PanelStore is an in-memory ports.PanelConfigStore. The last write for a
// scope wins.
type PanelStore struct {
	mu     sync.RWMutex
	panels map[string]domain.PanelConfig
}

var _ ports.PanelConfigStore = (*PanelStore)(nil)

func NewPanelStore() *PanelStore {
	return &PanelStore{panels: make(map[string]domain.PanelConfig)}
}

func (s *PanelStore) Put(cfg domain.PanelConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.panels[cfg.ScopeID] = cfg
}

func (s *PanelStore) Get(scopeID string) (domain.PanelConfig, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.panels[scopeID]
	return cfg, ok
}
